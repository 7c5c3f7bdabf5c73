package star

import (
	"context"
	"fmt"
	"time"

	"telcodw/internal/metrics"
	"telcodw/internal/schema"
	"telcodw/internal/source"
	"telcodw/internal/storage"
	"telcodw/internal/transform"
)

// Engine promotes staged churn rows into the star schema: it refreshes the
// dimensions with insert-if-absent semantics, resolves surrogate keys and
// appends fact rows. Promotion is idempotent for dimensions and append-only
// for facts, so rerunning over the same staging data duplicates fact rows.
type Engine struct {
	Repo storage.Warehouse

	// Logf receives stage progress lines. Required.
	Logf func(format string, v ...any)

	// Now overrides the load timestamp, used for the calendar dimension row.
	// Nil means time.Now.
	Now func() time.Time
}

// Promote runs the full promotion pass against the warehouse.
//
// The load-date row goes into dim_time keyed by its YYYYMMDD integer, the
// four remaining dimensions get their deduplicated candidate sets, then fact
// rows are built from whatever sits in stg_churn. Empty staging is not an
// error: the run logs a skip and returns nil, leaving dimensions refreshed.
//
// Customer surrogate keys resolve via the natural customer_id; a staged row
// whose customer_id is missing from dim_customer keeps a NULL customer_sk
// rather than being dropped. geo_sk, population_sk and service_sk stay NULL:
// the source rows carry no join key to those dimensions.
func (e *Engine) Promote(ctx context.Context, data map[string]*source.RecordSet) error {
	start := e.clock()

	dateSK, err := e.loadTime(ctx, start)
	if err != nil {
		metrics.StepFailed("promote", e.clock().Sub(start).Seconds())
		return err
	}

	if err := e.loadDimensions(ctx, data); err != nil {
		metrics.StepFailed("promote", e.clock().Sub(start).Seconds())
		return err
	}

	n, err := e.loadFact(ctx, dateSK)
	if err != nil {
		metrics.StepFailed("promote", e.clock().Sub(start).Seconds())
		return err
	}

	metrics.StepOK("promote", e.clock().Sub(start).Seconds(), n)
	return nil
}

func (e *Engine) clock() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// loadTime upserts the load-date calendar row and returns its date_sk.
func (e *Engine) loadTime(ctx context.Context, now time.Time) (int64, error) {
	y, m, d := now.Date()
	dateSK := int64(y*10000 + int(m)*100 + d)
	row := []any{
		dateSK,
		now.Format("2006-01-02"),
		int64(y),
		int64((int(m)-1)/3 + 1),
		int64(m),
		int64(d),
	}

	if err := e.Repo.UpsertIgnore(ctx, schema.Time(), schema.TimeColumns, [][]any{row}); err != nil {
		return 0, fmt.Errorf("load %s: %w", schema.DimTime, err)
	}
	e.Logf("stage=promote table=%s date_sk=%d", schema.DimTime, dateSK)
	return dateSK, nil
}

func (e *Engine) loadDimensions(ctx context.Context, data map[string]*source.RecordSet) error {
	core := data["TelcoCustomerChurn"]
	if core.Empty() {
		core = data["CustomerChurn"]
	}

	extracts := []Extract{
		ExtractCustomers(core, data["Demographics"]),
		ExtractServices(data["Services"], core),
		ExtractGeography(data["Location"]),
		ExtractPopulation(data["Population"]),
	}

	for _, ex := range extracts {
		if ex.Empty() {
			e.Logf("stage=promote table=%s rows=0 status=skip", ex.Spec.Name)
			continue
		}
		if err := e.Repo.UpsertIgnore(ctx, ex.Spec, ex.Columns, ex.Rows); err != nil {
			return fmt.Errorf("load %s: %w", ex.Spec.Name, err)
		}
		e.Logf("stage=promote table=%s rows=%d", ex.Spec.Name, len(ex.Rows))
		metrics.IncCounter(metrics.RecordsTotal, float64(len(ex.Rows)), metrics.Labels{"kind": ex.Spec.Name})
	}
	return nil
}

// loadFact reads the staging table, resolves customer surrogate keys and
// appends one fact row per staged row.
func (e *Engine) loadFact(ctx context.Context, dateSK int64) (int64, error) {
	staged, err := e.Repo.ReadAll(ctx, schema.StgChurn, transform.StagingColumns)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", schema.StgChurn, err)
	}
	if len(staged) == 0 {
		e.Logf("stage=promote status=skip reason=empty_staging")
		return 0, nil
	}

	customerSK, err := e.Repo.SelectKeyValue(ctx, schema.DimCustomer, "customer_id", "customer_sk")
	if err != nil {
		return 0, fmt.Errorf("resolve %s keys: %w", schema.DimCustomer, err)
	}

	facts := make([][]any, 0, len(staged))
	var unresolved int
	for _, row := range staged {
		// Staging column order: customer_id, monthly_charges, total_charges,
		// tenure_months, churn_flag, churn_label.
		var sk any
		if row[0] != nil {
			if v, ok := customerSK[storage.NormalizeKey(row[0])]; ok {
				sk = v
			}
		}
		if sk == nil {
			unresolved++
		}
		facts = append(facts, []any{
			sk, nil, nil, nil, dateSK,
			row[3], row[1], row[2], row[4], row[5],
		})
	}

	n, err := e.Repo.Append(ctx, schema.FactChurn, schema.FactColumns, facts)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", schema.FactChurn, err)
	}
	e.Logf("stage=promote table=%s rows=%d unresolved_customer_sk=%d unresolved_keys=geo,population,service",
		schema.FactChurn, n, unresolved)
	return n, nil
}
