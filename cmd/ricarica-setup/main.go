// Command ricarica-setup prepares the configured backends: it runs the
// SQLite migrations and verifies that the Supabase schema exists, printing
// the SQL to create any missing table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ricarica/internal/config"
	"ricarica/internal/storage"
	"ricarica/internal/tablestore/supabase"
)

// tableSchemas holds the Postgres DDL for the remote copy, printed when
// the corresponding table is missing.
var tableSchemas = map[string]string{
	supabase.TableVehicles: `create table vehicles (
  id bigint generated always as identity primary key,
  name text not null,
  brand text not null default '',
  capacity_kwh double precision not null,
  image_url text not null default ''
);`,
	supabase.TableSuppliers: `create table suppliers (
  id bigint generated always as identity primary key,
  name text not null,
  type text not null,
  kind text not null default 'external',
  standard_cost double precision not null default 0
);`,
	supabase.TableCharges: `create table charges (
  id bigint generated always as identity primary key,
  vehicle_id bigint not null,
  supplier_id bigint not null,
  supplier_name text not null default '',
  supplier_type text not null default '',
  date timestamptz not null,
  end_date timestamptz,
  total_km double precision not null,
  battery_start double precision not null,
  battery_end double precision,
  kwh_added double precision not null default 0,
  cost double precision not null default 0,
  standard_cost double precision not null default 0,
  status text not null default 'completed',
  km_since_last double precision,
  consumption double precision,
  cost_difference double precision,
  saved_gasoline_price double precision,
  saved_diesel_price double precision,
  saved_gasoline_consumption double precision,
  saved_diesel_consumption double precision
);`,
	supabase.TableSettings: `create table settings (
  id bigint primary key,
  gasoline_price double precision not null,
  gasoline_consumption double precision not null,
  diesel_price double precision not null,
  diesel_consumption double precision not null,
  home_electricity_price double precision not null
);`,
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	skipSQLite := flag.Bool("skip-sqlite", false, "do not run SQLite migrations")
	skipSupabase := flag.Bool("skip-supabase", false, "do not check the Supabase schema")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	failed := false

	if !*skipSQLite {
		logger.Info("Running SQLite migrations", "path", cfg.SQLiteDBPath)
		if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
			logger.Error("SQLite migrations failed", "error", err)
			failed = true
		} else {
			logger.Info("SQLite schema up to date")
		}
	}

	if !*skipSupabase {
		if cfg.SupabaseURL == "" {
			logger.Info("Supabase not configured, skipping schema check")
		} else if missing := checkSupabase(cfg, logger); missing {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
	logger.Info("Setup complete")
}

// checkSupabase probes each remote table and prints DDL for the missing
// ones. Returns true when at least one table is missing or unreachable.
func checkSupabase(cfg *config.Config, logger *slog.Logger) bool {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	if err != nil {
		logger.Error("Supabase client initialization failed", "error", err)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	missing, err := client.CheckTables(ctx)
	if err != nil {
		logger.Error("Supabase schema check failed", "error", err)
		return true
	}
	if len(missing) == 0 {
		logger.Info("Supabase schema up to date")
		return false
	}

	logger.Warn("Missing Supabase tables", "tables", missing)
	fmt.Println("\nRun the following SQL in the Supabase SQL editor:")
	for _, table := range missing {
		if ddl, ok := tableSchemas[table]; ok {
			fmt.Println()
			fmt.Println(ddl)
		}
	}
	return true
}
