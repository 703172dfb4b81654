package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"telecom-bundle-chat/internal/config"
	"telecom-bundle-chat/internal/database"
)

func main() {
	configFile := flag.String("config", "", "Optional config file (yaml, json or env)")
	dbPath := flag.String("db", "", "SQLite database file (switches DB_DRIVER to sqlite3)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Error: migration command is required")
		fmt.Println("Usage: go run ./cmd/migrate [-config file] [-db path] <command>")
		fmt.Println("Commands: up, down, status, redo")
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Driver = database.DriverSQLite
		cfg.Database.Path = *dbPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.DSN(), database.PoolOptions{})
	if err != nil {
		slog.Error("database error", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("starting migration", "command", command, "driver", db.Driver())
	if err := db.Migrate(ctx, command); err != nil {
		slog.Error("migration error", "error", err)
		db.Close()
		os.Exit(1)
	}

	fmt.Println("Migration finished successfully")
}
