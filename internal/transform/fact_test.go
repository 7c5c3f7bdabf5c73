package transform

import (
	"errors"
	"testing"

	"telcodw/internal/source"
)

func discardLogf(string, ...any) {}

func TestBuildFact_CoreScenario(t *testing.T) {
	t.Parallel()

	data := map[string]*source.RecordSet{
		"TelcoCustomerChurn": {
			Columns: []string{"CustomerID", "Monthly Charges", "TotalCharges", "tenure", "Churn Label"},
			Rows: [][]string{
				{"C1", "29.85", "108.15", "9", "No"},
				{"C2", "70.70", "151.65", "2", "Yes"},
			},
		},
	}

	ds, err := BuildFact(data, discardLogf)
	if err != nil {
		t.Fatalf("BuildFact() err=%v", err)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("rows=%d want 2", len(ds.Rows))
	}

	want := [][]any{
		{"C1", 29.85, 108.15, int64(9), int64(0), "No"},
		{"C2", 70.70, 151.65, int64(2), int64(1), "Yes"},
	}
	for r, w := range want {
		got := ds.Rows[r]
		if len(got) != len(w) {
			t.Fatalf("row %d has %d cells, want %d", r, len(got), len(w))
		}
		for c := range w {
			if got[c] != w[c] {
				t.Fatalf("row %d col %s = %#v want %#v", r, ds.Columns[c], got[c], w[c])
			}
		}
	}
}

func TestBuildFact_FallbackDataset(t *testing.T) {
	t.Parallel()

	data := map[string]*source.RecordSet{
		"TelcoCustomerChurn": {Columns: []string{"CustomerID"}},
		"CustomerChurn": {
			Columns: []string{"Id", "Churn"},
			Rows:    [][]string{{"X9", "churned"}},
		},
	}

	ds, err := BuildFact(data, discardLogf)
	if err != nil {
		t.Fatalf("BuildFact() err=%v", err)
	}
	if len(ds.Rows) != 1 {
		t.Fatalf("rows=%d want 1", len(ds.Rows))
	}
	row := ds.Rows[0]
	if row[0] != "X9" || row[4] != int64(1) || row[5] != "churned" {
		t.Fatalf("fallback row = %#v", row)
	}
	// Unresolved numeric fields default to zero, not error.
	if row[1] != float64(0) || row[2] != float64(0) || row[3] != int64(0) {
		t.Fatalf("numeric defaults = %#v", row)
	}
}

func TestBuildFact_NoCoreDataset(t *testing.T) {
	t.Parallel()

	_, err := BuildFact(map[string]*source.RecordSet{}, discardLogf)
	if !errors.Is(err, ErrNoCoreDataset) {
		t.Fatalf("err=%v want ErrNoCoreDataset", err)
	}
}

func TestBuildFact_MissingChurnColumn(t *testing.T) {
	t.Parallel()

	data := map[string]*source.RecordSet{
		"TelcoCustomerChurn": {
			Columns: []string{"CustomerID", "tenure"},
			Rows:    [][]string{{"C1", "12"}},
		},
	}

	ds, err := BuildFact(data, discardLogf)
	if err != nil {
		t.Fatalf("BuildFact() err=%v", err)
	}
	row := ds.Rows[0]
	if row[4] != int64(0) || row[5] != "Unknown" {
		t.Fatalf("churn defaults = flag=%#v label=%#v", row[4], row[5])
	}
}

func TestBuildFact_EmptyCustomerIDIsNull(t *testing.T) {
	t.Parallel()

	data := map[string]*source.RecordSet{
		"TelcoCustomerChurn": {
			Columns: []string{"CustomerID", "Churn"},
			Rows:    [][]string{{"", "No"}},
		},
	}

	ds, err := BuildFact(data, discardLogf)
	if err != nil {
		t.Fatalf("BuildFact() err=%v", err)
	}
	if ds.Rows[0][0] != nil {
		t.Fatalf("customer_id = %#v want nil", ds.Rows[0][0])
	}
}

func TestClampFloat_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"29.85", 29.85},
		{" 29.85 ", 29.85},
		{"0", 0},
		{"-5", 0},
		{"", 0},
		{"n/a", 0},
		{"NaN", 0},
	}
	for _, tt := range tests {
		if got := clampFloat(tt.in); got != tt.want {
			t.Errorf("clampFloat(%q) = %v want %v", tt.in, got, tt.want)
		}
	}
}

func TestClampInt_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
	}{
		{"9", 9},
		{"9.7", 9}, // truncates toward zero
		{"-3", 0},
		{"", 0},
		{"twelve", 0},
	}
	for _, tt := range tests {
		if got := clampInt(tt.in); got != tt.want {
			t.Errorf("clampInt(%q) = %v want %v", tt.in, got, tt.want)
		}
	}
}

func TestChurnFlag_Vocabulary(t *testing.T) {
	t.Parallel()

	churned := []string{"Yes", "yes", " TRUE ", "Churned", "1"}
	kept := []string{"No", "false", "0", "maybe", ""}

	build := func(label string) int64 {
		data := map[string]*source.RecordSet{
			"TelcoCustomerChurn": {
				Columns: []string{"CustomerID", "Churn"},
				Rows:    [][]string{{"C1", label}},
			},
		}
		ds, err := BuildFact(data, discardLogf)
		if err != nil {
			t.Fatalf("BuildFact(%q) err=%v", label, err)
		}
		return ds.Rows[0][4].(int64)
	}

	for _, label := range churned {
		if build(label) != 1 {
			t.Errorf("label %q not flagged as churned", label)
		}
	}
	for _, label := range kept {
		if build(label) != 0 {
			t.Errorf("label %q flagged as churned", label)
		}
	}
}
