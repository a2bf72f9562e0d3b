// Command db_init creates the database file and applies all pending
// migrations. Running it against an up-to-date database is a no-op.
package main

import (
	"context"
	"fmt"
	"os"

	dbfs "github.com/opshq/backoffice/db"
	"github.com/opshq/backoffice/internal/config"
	"github.com/opshq/backoffice/internal/db"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig("")
	if err != nil {
		fail("load config: %v", err)
	}

	database, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		fail("open %s: %v", cfg.DatabasePath, err)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		fail("migrate: %v", err)
	}
	fmt.Printf("database %s is up to date\n", cfg.DatabasePath)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
