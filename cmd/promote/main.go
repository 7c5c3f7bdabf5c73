// Command promote builds the star schema from staged churn rows.
//
// It refreshes the surrogate-keyed dimensions from the spreadsheet exports
// (insert-if-absent, so reruns are harmless), resolves customer surrogate
// keys and appends one fact row per staged row. Run it after cmd/etl has
// populated stg_churn.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"telcodw/internal/config"
	"telcodw/internal/metrics"
	"telcodw/internal/metrics/datadog"
	"telcodw/internal/schema"
	"telcodw/internal/source"
	"telcodw/internal/star"
	"telcodw/internal/storage"

	_ "telcodw/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		storageKind       string
		dsn               string
		sourceDir         string
		metricsBackendFlg string
	)

	flag.StringVar(&cfgPath, "config", "", "run config JSON path (optional)")
	flag.StringVar(&storageKind, "storage", "", "warehouse backend kind (mysql, postgres, sqlite, mssql); overrides config")
	flag.StringVar(&dsn, "dsn", "", "warehouse DSN; overrides config")
	flag.StringVar(&sourceDir, "sources", "", "directory holding the spreadsheet exports; overrides config")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (datadog, none)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	run := config.Defaults()
	if cfgPath != "" {
		var err error
		run, err = config.Load(cfgPath)
		if err != nil {
			fatalf("%v", err)
		}
	}
	if storageKind != "" {
		run.Warehouse.Kind = storageKind
	}
	if dsn != "" {
		run.Warehouse.DSN = dsn
	}
	if sourceDir != "" {
		run.SourceDir = sourceDir
	}
	if run.Warehouse.Kind == "" {
		fatalf("no warehouse backend: set -storage or warehouse.kind in the config")
	}

	closeMetrics := setupMetrics(metricsBackendFlg, run.Job, *verbose)
	defer closeMetrics()

	ctx := context.Background()
	start := time.Now()

	repo, err := storage.New(ctx, storage.Config{Kind: run.Warehouse.Kind, DSN: run.ExpandedDSN()})
	if err != nil {
		fatalf("open warehouse: %v", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx, schema.Tables()); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	data := source.ExtractAll(log.Printf, run.SourceDir, run.Sources, run.Reader)

	eng := &star.Engine{Repo: repo, Logf: log.Printf}
	if err := eng.Promote(ctx, data); err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// setupMetrics mirrors cmd/etl: flag, then METRICS_BACKEND env, then none.
func setupMetrics(backendName, jobName string, verbose bool) func() {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if jobName == "" {
		jobName = "telcodw"
	}

	switch backendName {
	case "datadog":
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: backend=%s job_name=%s", backendName, jobName)
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
		}

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
	return func() {}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
