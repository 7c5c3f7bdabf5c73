package mssql

import (
	"strings"
	"testing"

	"telcodw/internal/schema"
)

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	ddl, err := buildCreateTableSQL(schema.Customer())
	if err != nil {
		t.Fatalf("buildCreateTableSQL: %v", err)
	}
	for _, want := range []string{
		"IF OBJECT_ID(N'dim_customer', N'U') IS NULL BEGIN CREATE TABLE [dim_customer]",
		"[customer_sk] INT IDENTITY(1,1) PRIMARY KEY",
		"[customer_id] varchar(64) NOT NULL",
		"UNIQUE ([customer_id])",
		"END;",
	} {
		if !strings.Contains(ddl, want) {
			t.Errorf("ddl missing %q:\n%s", want, ddl)
		}
	}
}

func TestBuildMergeSQL_NullSafeComparison(t *testing.T) {
	t.Parallel()

	got := buildMergeSQL("dim_geography", "#scratch_dim_geography", []string{"state", "city"}, []string{"state", "city"})

	if !strings.Contains(got, "WHERE NOT EXISTS") {
		t.Fatalf("missing NOT EXISTS guard: %s", got)
	}
	// NULL attributes participate in row identity, so plain equality is not
	// enough: NULL = NULL is UNKNOWN in T-SQL.
	if !strings.Contains(got, "(d.[state] = s.[state] OR (d.[state] IS NULL AND s.[state] IS NULL))") {
		t.Fatalf("comparison is not NULL-safe: %s", got)
	}
	if !strings.Contains(got, " AND (d.[city] = s.[city]") {
		t.Fatalf("conflict columns not ANDed: %s", got)
	}
}

func TestBuildMergeSQL_NoConflictColumns(t *testing.T) {
	t.Parallel()

	got := buildMergeSQL("fact_churn", "#scratch_fact_churn", []string{"a"}, nil)
	if strings.Contains(got, "WHERE") {
		t.Fatalf("unexpected WHERE clause: %s", got)
	}
}

func TestBuildInsertSQL_NamedPlaceholders(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("#scratch_stg", []string{"a", "b"}, [][]any{
		{"x", 1},
		{"y", 2},
	})
	want := "INSERT INTO [#scratch_stg] ([a], [b]) VALUES (@p1, @p2), (@p3, @p4);"
	if q != want {
		t.Fatalf("insert sql:\n got %s\nwant %s", q, want)
	}
	if len(args) != 4 || args[1] != 1 || args[2] != "y" {
		t.Fatalf("args = %#v", args)
	}
}

func TestBuildScratchSQL_TempTableName(t *testing.T) {
	t.Parallel()

	got := buildScratchSQL("#scratch_dim_time", schema.Time(), schema.TimeColumns)
	if !strings.HasPrefix(got, "CREATE TABLE [#scratch_dim_time] (") {
		t.Fatalf("scratch sql = %s", got)
	}
	if !strings.Contains(got, "[date_sk] int") {
		t.Fatalf("scratch sql missing typed key column: %s", got)
	}
}
