// Command etl stages telco churn spreadsheet exports into the warehouse.
//
// It ensures the star-schema DDL, reads every configured export from the
// source directory, transforms the core churn export into the staged fact
// shape and appends it to stg_churn. Surrogate-key promotion is a separate
// step; see cmd/promote.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"telcodw/internal/config"
	"telcodw/internal/etl"
	"telcodw/internal/metrics"
	"telcodw/internal/metrics/datadog"
	"telcodw/internal/source"
	"telcodw/internal/storage"

	// register all backends with the storage factory; -storage picks one.
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

	run, err := loadRun(cfgPath, storageKind, dsn, sourceDir)
	if err != nil {
		fatalf("%v", err)
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

	if *verbose {
		log.Printf("pipeline: storage=%s source_dir=%s sources=%d",
			run.Warehouse.Kind, run.SourceDir, len(run.Sources))
	}

	data := source.ExtractAll(log.Printf, run.SourceDir, run.Sources, run.Reader)

	p := &etl.Pipeline{Repo: repo, Logf: log.Printf}
	if err := p.Run(ctx, data); err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// loadRun merges the optional config file with flag overrides. Flags win.
func loadRun(cfgPath, storageKind, dsn, sourceDir string) (config.Run, error) {
	run := config.Defaults()
	if cfgPath != "" {
		var err error
		run, err = config.Load(cfgPath)
		if err != nil {
			return run, err
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
		return run, fmt.Errorf("no warehouse backend: set -storage or warehouse.kind in the config")
	}
	return run, nil
}

// setupMetrics installs the requested metrics backend and returns the
// shutdown func. Backend selection: flag, then METRICS_BACKEND env, then none.
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
