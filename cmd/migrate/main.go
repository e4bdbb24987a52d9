// Command migrate applies the pending SQL migrations in migrations/ to
// the configured database. Adapted from the prior service's
// cmd/migrate/main.go, swapping its plain os.Getenv lookup for the same
// config.Load() the server binary uses so both processes agree on the
// database DSN.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/taskforge/authcore/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}

	m, err := migrate.New("file://migrations", cfg.Database.URL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migration init failed:", err)
		os.Exit(1)
	}

	down := len(os.Args) > 1 && os.Args[1] == "down"

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("database is already up to date")
			return
		}
		fmt.Fprintln(os.Stderr, "migration failed:", err)
		os.Exit(1)
	}

	fmt.Println("migrations applied successfully")
}
