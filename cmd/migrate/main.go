package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/goodnatureofminers/p2ms-classifier/internal/store"
)

type config struct {
	DBPath        string `long:"db-path" env:"P2MS_MIGRATE_DB_PATH" description:"path to the SQLite store" default:"p2ms.db"`
	MigrationsDir string `long:"migrations-dir" env:"P2MS_MIGRATE_MIGRATIONS_DIR" description:"path to SQLite migration files" default:"internal/store/migrations"`
}

func main() {
	cfg := config{}
	if _, err := flags.Parse(&cfg); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		log.Fatalf("failed to parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctx.Err(); err != nil {
		log.Fatalf("migration run failed: %v", err)
	}

	if err := store.RunMigrations(cfg.DBPath, cfg.MigrationsDir); err != nil {
		log.Fatalf("migration run failed: %v", err)
	}

	log.Println("migrations applied successfully")
}
