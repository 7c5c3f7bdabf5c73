// Command dbcheck verifies warehouse connectivity.
//
// It opens the configured backend, issues a version query and prints the
// server version. Exit status is nonzero on any failure, which makes it
// usable as a readiness probe in compose files and CI.
//
// The connection string is optional: -dsn wins, then the DW_DSN environment
// variable, then a local development default for the selected backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"telcodw/internal/storage"

	_ "telcodw/internal/storage/all"
)

// localDSNs are the development defaults used when neither -dsn nor DW_DSN
// is set, matching a warehouse running on its standard local port.
var localDSNs = map[string]string{
	"mysql":    "root@tcp(localhost:3306)/telco_dw",
	"postgres": "postgres://postgres@localhost:5432/telco_dw",
	"sqlite":   "file:telco_dw.db",
	"mssql":    "sqlserver://sa@localhost:1433?database=telco_dw",
}

func main() {
	var (
		storageKind string
		dsn         string
		timeout     time.Duration
	)

	flag.StringVar(&storageKind, "storage", "mysql", "warehouse backend kind (mysql, postgres, sqlite, mssql)")
	flag.StringVar(&dsn, "dsn", "", "warehouse DSN (default: $DW_DSN, then a local default for the backend)")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "total connection timeout")
	flag.Parse()

	dsn, err := resolveDSN(storageKind, dsn, os.Getenv("DW_DSN"))
	if err != nil {
		log.Fatalf("dbcheck: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	repo, err := storage.New(ctx, storage.Config{Kind: storageKind, DSN: dsn})
	if err != nil {
		log.Fatalf("dbcheck: open %s: %v", storageKind, err)
	}
	defer repo.Close()

	version, err := repo.Ping(ctx)
	if err != nil {
		log.Fatalf("dbcheck: ping %s: %v", storageKind, err)
	}

	fmt.Println("Connected. Server version:", version)
}

// resolveDSN picks the connection string: flag, then environment, then the
// backend's local default. An unknown kind with no explicit DSN is an error.
func resolveDSN(kind, flagDSN, envDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	if envDSN != "" {
		return envDSN, nil
	}
	if d, ok := localDSNs[kind]; ok {
		return d, nil
	}
	return "", fmt.Errorf("no DSN: set -dsn or DW_DSN for storage kind %q", kind)
}
