package transform

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"telcodw/internal/source"
)

// ErrNoCoreDataset is returned when neither churn export has any rows.
var ErrNoCoreDataset = errors.New("no core churn dataset found")

// StagingColumns is the exact staging-table column order. cmd/etl fails fast
// if a transformed dataset is missing any of them.
var StagingColumns = []string{
	"customer_id",
	"monthly_charges",
	"total_charges",
	"tenure_months",
	"churn_flag",
	"churn_label",
}

// Dataset is a typed, positionally-ordered row set ready for a warehouse
// append. Cell types are whatever the builder produced (string, float64,
// int64 or nil).
type Dataset struct {
	Columns []string
	Rows    [][]any
}

// churnedValues is the normalized vocabulary that marks a row as churned.
var churnedValues = map[string]struct{}{
	"yes":     {},
	"true":    {},
	"churned": {},
	"1":       {},
}

// BuildFact maps raw churn records into the canonical fact-staging shape.
//
// Core dataset selection prefers TelcoCustomerChurn and falls back to
// CustomerChurn; if neither is usable it returns ErrNoCoreDataset.
//
// Field handling:
//   - Unresolved numeric fields default the whole column to 0.
//   - Non-parseable numeric values become 0, then everything clamps to >= 0.
//   - tenure truncates toward zero to an integer.
//   - An unresolved churn column yields label "Unknown" and flag 0; otherwise
//     the flag is a membership test of the trimmed, lower-cased label against
//     {"yes","true","churned","1"}.
//
// The chosen source column per field is logged for observability; it does not
// affect behavior.
func BuildFact(data map[string]*source.RecordSet, logf func(format string, v ...any)) (*Dataset, error) {
	core := data["TelcoCustomerChurn"]
	if core.Empty() {
		core = data["CustomerChurn"]
	}
	if core.Empty() {
		return nil, ErrNoCoreDataset
	}
	core.TrimColumnNames()

	custCol, hasCust := Resolve(core.Columns, AliasCustomerID)
	monthlyCol, hasMonthly := Resolve(core.Columns, AliasMonthly)
	totalCol, hasTotal := Resolve(core.Columns, AliasTotal)
	tenureCol, hasTenure := Resolve(core.Columns, AliasTenure)
	churnCol, hasChurn := Resolve(core.Columns, AliasChurn)

	logf("stage=transform customer_id=%q monthly=%q total=%q tenure=%q churn=%q",
		custCol, monthlyCol, totalCol, tenureCol, churnCol)

	custIdx := core.ColumnIndex(custCol)
	monthlyIdx := core.ColumnIndex(monthlyCol)
	totalIdx := core.ColumnIndex(totalCol)
	tenureIdx := core.ColumnIndex(tenureCol)
	churnIdx := core.ColumnIndex(churnCol)

	out := &Dataset{Columns: StagingColumns, Rows: make([][]any, 0, core.NumRows())}

	for _, row := range core.Rows {
		var customerID any
		if hasCust {
			if v := cell(row, custIdx); v != "" {
				customerID = v
			}
		}

		var monthly, total float64
		var tenure int64
		if hasMonthly {
			monthly = clampFloat(cell(row, monthlyIdx))
		}
		if hasTotal {
			total = clampFloat(cell(row, totalIdx))
		}
		if hasTenure {
			tenure = clampInt(cell(row, tenureIdx))
		}

		label := "Unknown"
		var flag int64
		if hasChurn {
			label = cell(row, churnIdx)
			if _, churned := churnedValues[strings.ToLower(strings.TrimSpace(label))]; churned {
				flag = 1
			}
		}

		out.Rows = append(out.Rows, []any{customerID, monthly, total, tenure, flag, label})
	}

	return out, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// clampFloat coerces a source cell to a non-negative float. Anything
// unparseable counts as 0.
func clampFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || f < 0 {
		return 0
	}
	return f
}

// clampInt coerces a source cell to a non-negative integer, truncating any
// fractional part toward zero.
func clampInt(s string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || f < 0 {
		return 0
	}
	return int64(f)
}
