package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/tygxx/human-monitor-system/internal/config"
	"github.com/tygxx/human-monitor-system/internal/database"
	"github.com/tygxx/human-monitor-system/internal/report"
	"github.com/tygxx/human-monitor-system/internal/zones"
)

// Prints patrol coverage for a reporting window as JSON. Reports are derived
// from the persisted event log, so this can run at any time, on any host.
func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	hours := flag.Int("hours", 8, "reporting window length, counted back from -to")
	to := flag.String("to", "", "window end in RFC3339, defaults to now")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.New(cfg.Postgres.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	registry, err := loadRegistry(context.Background(), cfg, db)
	if err != nil {
		log.Fatalf("Failed to load zone configuration: %v", err)
	}

	end := time.Now()
	if *to != "" {
		end, err = time.Parse(time.RFC3339, *to)
		if err != nil {
			log.Fatalf("Invalid -to value: %v", err)
		}
	}
	start := end.Add(-time.Duration(*hours) * time.Hour)

	aggregator := report.NewAggregator(db, registry)
	reports, err := aggregator.Coverage(context.Background(), start, end)
	if err != nil {
		log.Fatalf("Failed to compute coverage: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		log.Fatal(err)
	}
}

func loadRegistry(ctx context.Context, cfg *config.Config, db *database.Database) (*zones.Registry, error) {
	if cfg.ZonesPath != "" {
		return zones.Load(cfg.ZonesPath)
	}
	return zones.LoadFromStore(ctx, db)
}
