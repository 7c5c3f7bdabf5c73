// Package etl stages raw churn exports into the warehouse staging table.
package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"telcodw/internal/metrics"
	"telcodw/internal/schema"
	"telcodw/internal/source"
	"telcodw/internal/storage"
	"telcodw/internal/transform"
)

// Pipeline runs the staging load: ensure the warehouse DDL, transform the
// core churn export into the staged fact shape, append to stg_churn.
type Pipeline struct {
	Repo storage.Warehouse

	// Logf receives stage progress lines. Required.
	Logf func(format string, v ...any)
}

// Run executes one staging load over extracted source data.
//
// A missing core export is fatal: without TelcoCustomerChurn or
// CustomerChurn there is nothing to stage, and the error propagates so the
// run exits nonzero. The warehouse schema is still ensured first. A
// transformed dataset missing any staging column is likewise a hard error
// before anything is written.
func (p *Pipeline) Run(ctx context.Context, data map[string]*source.RecordSet) error {
	start := time.Now()

	if err := p.Repo.EnsureSchema(ctx, schema.Tables()); err != nil {
		metrics.StepFailed("stage", time.Since(start).Seconds())
		return fmt.Errorf("ensure schema: %w", err)
	}

	ds, err := transform.BuildFact(data, p.Logf)
	if err != nil {
		metrics.StepFailed("stage", time.Since(start).Seconds())
		return err
	}

	rows, err := projectRows(ds, transform.StagingColumns)
	if err != nil {
		metrics.StepFailed("stage", time.Since(start).Seconds())
		return err
	}

	n, err := p.Repo.Append(ctx, schema.StgChurn, transform.StagingColumns, rows)
	if err != nil {
		metrics.StepFailed("stage", time.Since(start).Seconds())
		return fmt.Errorf("append %s: %w", schema.StgChurn, err)
	}

	p.Logf("stage=load table=%s rows=%d", schema.StgChurn, n)
	metrics.StepOK("stage", time.Since(start).Seconds(), n)
	return nil
}

// projectRows reorders dataset cells into the wanted column order, failing
// fast when any wanted column is absent.
func projectRows(ds *transform.Dataset, want []string) ([][]any, error) {
	idx := make([]int, len(want))
	var missing []string
	for i, name := range want {
		idx[i] = -1
		for j, have := range ds.Columns {
			if have == name {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset missing staging columns: %s", strings.Join(missing, ", "))
	}

	out := make([][]any, len(ds.Rows))
	for r, row := range ds.Rows {
		projected := make([]any, len(idx))
		for i, j := range idx {
			if j < len(row) {
				projected[i] = row[j]
			}
		}
		out[r] = projected
	}
	return out, nil
}
