package mysql

import (
	"strings"
	"testing"

	"telcodw/internal/schema"
	"telcodw/internal/storage"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	ddl, err := buildCreateTableSQL(schema.Customer())
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS dim_customer",
		"`customer_sk` INT AUTO_INCREMENT PRIMARY KEY",
		"`customer_id` varchar(64) NOT NULL",
		"UNIQUE KEY (`customer_id`)",
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("ddl missing %q:\n%s", want, ddl)
		}
	}
}

func TestBuildCreateTableSQL_NaturalKeyPrimary(t *testing.T) {
	t.Parallel()

	ddl, err := buildCreateTableSQL(schema.Time())
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}
	if !strings.Contains(ddl, "`date_sk` int PRIMARY KEY") {
		t.Fatalf("dim_time primary key wrong:\n%s", ddl)
	}
	if strings.Contains(ddl, "AUTO_INCREMENT") {
		t.Fatalf("natural key must not auto-increment:\n%s", ddl)
	}
}

func TestBuildScratchSQL_TemporaryAndTyped(t *testing.T) {
	t.Parallel()

	got := buildScratchSQL("scratch_dim_time", schema.Time(), schema.TimeColumns)
	if !strings.HasPrefix(got, "CREATE TEMPORARY TABLE `scratch_dim_time` (") {
		t.Fatalf("scratch sql = %s", got)
	}
	// date_sk resolves to the primary key's int type, not a default.
	if !strings.Contains(got, "`date_sk` int") {
		t.Fatalf("scratch sql missing typed key column: %s", got)
	}
}

func TestBuildMergeSQL(t *testing.T) {
	t.Parallel()

	got := buildMergeSQL("dim_customer", "scratch_dim_customer", []string{"customer_id"}, []string{"customer_id"})
	want := "INSERT IGNORE INTO `dim_customer` (`customer_id`) SELECT `customer_id` FROM `scratch_dim_customer` s" +
		" WHERE NOT EXISTS (SELECT 1 FROM `dim_customer` d WHERE d.`customer_id` <=> s.`customer_id`);"
	if got != want {
		t.Fatalf("merge sql:\n got %s\nwant %s", got, want)
	}

	bare := buildMergeSQL("fact_churn", "scratch_fact_churn", []string{"a"}, nil)
	if strings.Contains(bare, "WHERE") {
		t.Fatalf("unexpected guard: %s", bare)
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("INSERT INTO ", "stg_churn", []string{"a", "b"}, [][]any{
		{"x", 1},
		{"y", 2},
	})
	want := "INSERT INTO `stg_churn` (`a`, `b`) VALUES (?,?), (?,?)"
	if q != want {
		t.Fatalf("insert sql:\n got %s\nwant %s", q, want)
	}
	if len(args) != 4 || args[0] != "x" || args[3] != 2 {
		t.Fatalf("args = %#v", args)
	}
}

func TestChunkRows_RespectsBindLimit(t *testing.T) {
	t.Parallel()

	cols := len(schema.ServiceColumns)
	rows := make([][]any, 500)
	for _, chunk := range chunkRows(rows, maxBindArgs/cols) {
		if len(chunk)*cols > maxBindArgs {
			t.Fatalf("chunk of %d rows exceeds %d bind args", len(chunk), maxBindArgs)
		}
	}
}

func TestBuildCreateTableSQL_RejectsUnknownConstraint(t *testing.T) {
	t.Parallel()

	_, err := buildCreateTableSQL(storage.TableSpec{
		Name:        "t",
		Columns:     []storage.ColumnSpec{{Name: "a", Type: "int"}},
		Constraints: []storage.ConstraintSpec{{Kind: "check"}},
	})
	if err == nil {
		t.Fatal("expected error for unsupported constraint kind")
	}
}
