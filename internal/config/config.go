// Package config holds run configuration for the warehouse ETL binaries.
//
// Configuration is plain JSON decoded into Run. Every binary also accepts
// flags that override the file values, so a config file is optional for the
// common case of "point the pipeline at a DSN and a directory of exports".
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Warehouse selects the storage backend and its connection string.
//
// DSN is passed through os.ExpandEnv before use, so configs can reference
// credentials as "$DW_PASSWORD" instead of embedding them.
type Warehouse struct {
	// Kind is the registered backend kind: "mysql" | "postgres" | "sqlite" | "mssql".
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`
}

// Run is the top-level configuration shared by cmd/etl and cmd/promote.
type Run struct {
	Job       string            `json:"job"`
	Warehouse Warehouse         `json:"warehouse"`
	SourceDir string            `json:"source_dir"`
	Sources   map[string]string `json:"sources,omitempty"`
	Reader    Options           `json:"reader,omitempty"`
}

// DefaultSources maps logical source names to the spreadsheet export file
// names the pipeline expects under SourceDir. Every source is optional; a
// missing file degrades to an empty record set at extraction time.
func DefaultSources() map[string]string {
	return map[string]string{
		"TelcoCustomerChurn": "Telco_customer_churn.csv",
		"CustomerChurn":      "CustomerChurn.csv",
		"Demographics":       "Telco_customer_churn_demographics.csv",
		"Location":           "Telco_customer_churn_location.csv",
		"Population":         "Telco_customer_churn_population.csv",
		"Services":           "Telco_customer_churn_services.csv",
		"Status":             "Telco_customer_churn_status.csv",
	}
}

// Defaults returns a Run with the standard source map and an empty warehouse.
func Defaults() Run {
	return Run{
		Job:       "telco_dw",
		SourceDir: ".",
		Sources:   DefaultSources(),
		Reader:    Options{},
	}
}

// Load reads a JSON config file on top of Defaults().
//
// Errors:
//   - Returns an error if the file cannot be opened or decoded. A missing
//     config file is an error here; callers that treat the file as optional
//     should check for existence first.
func Load(path string) (Run, error) {
	r := Defaults()

	f, err := os.Open(path)
	if err != nil {
		return r, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&r); err != nil {
		return r, fmt.Errorf("decode config %s: %w", path, err)
	}
	if len(r.Sources) == 0 {
		r.Sources = DefaultSources()
	}
	return r, nil
}

// ExpandedDSN returns the warehouse DSN with environment references expanded.
func (r Run) ExpandedDSN() string { return os.ExpandEnv(r.Warehouse.DSN) }
