// Command migrate-data applies the podcastos schema to a Postgres database,
// grounded on the teacher's flag-driven migration script shape (dry-run
// support, structured progress logging) adapted from a DynamoDB-to-DynamoDB
// table copy to an idempotent relational schema apply.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/apresai/podcastos/internal/store"
)

func main() {
	var (
		dsn    = flag.String("dsn", "postgres://localhost:5432/podcastos?sslmode=disable", "Target Postgres DSN")
		dryRun = flag.Bool("dry-run", false, "Open the store without connecting to the database and skip applying the schema")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx := context.Background()

	st, err := store.Open(*dsn)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if *dryRun {
		slog.Info("dry run: store opened without connecting, schema not applied")
		return
	}

	slog.Info("applying schema")
	if err := st.ApplySchema(ctx); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}
	slog.Info("migration complete")
}
