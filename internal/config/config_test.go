package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.json")
	body := `{
		"job": "nightly",
		"warehouse": {"kind": "mysql", "dsn": "root:$DW_PASSWORD@tcp(db:3306)/telco_dw"},
		"source_dir": "/data/exports",
		"reader": {"encoding": "windows-1252"}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	run, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if run.Job != "nightly" || run.Warehouse.Kind != "mysql" || run.SourceDir != "/data/exports" {
		t.Fatalf("run = %+v", run)
	}
	// Sources omitted from the file fall back to the defaults.
	if len(run.Sources) != len(DefaultSources()) {
		t.Fatalf("sources = %v", run.Sources)
	}
	if run.Reader.String("encoding", "") != "windows-1252" {
		t.Fatalf("reader options = %v", run.Reader)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestExpandedDSN(t *testing.T) {
	t.Setenv("DW_TEST_PASSWORD", "s3cret")

	run := Run{Warehouse: Warehouse{DSN: "root:$DW_TEST_PASSWORD@tcp(db:3306)/telco_dw"}}
	if got := run.ExpandedDSN(); got != "root:s3cret@tcp(db:3306)/telco_dw" {
		t.Fatalf("ExpandedDSN = %q", got)
	}
}

func TestDefaultSources_CoversAllExports(t *testing.T) {
	t.Parallel()

	src := DefaultSources()
	for _, name := range []string{
		"TelcoCustomerChurn", "CustomerChurn", "Demographics",
		"Location", "Population", "Services", "Status",
	} {
		if src[name] == "" {
			t.Errorf("source %s has no default file", name)
		}
	}
}
