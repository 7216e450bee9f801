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
	"github.com/tygxx/human-monitor-system/internal/models"
)

// Registers a guard's face feature so the monitor can attribute arrivals.
// The feature file is the detector's embedding for the guard, as a JSON
// array of floats. Re-running replaces the previous registration.
func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	guardID := flag.String("id", "", "guard id")
	name := flag.String("name", "", "guard name")
	phone := flag.String("phone", "", "guard phone")
	featurePath := flag.String("feature", "", "path to the face feature JSON file")
	flag.Parse()

	if *guardID == "" || *name == "" || *featurePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	data, err := os.ReadFile(*featurePath)
	if err != nil {
		log.Fatalf("Failed to read feature file: %v", err)
	}
	var feature []float64
	if err := json.Unmarshal(data, &feature); err != nil {
		log.Fatalf("Failed to parse feature file %s: %v", *featurePath, err)
	}

	db, err := database.New(cfg.Postgres.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := db.Init(); err != nil {
		log.Fatal(err)
	}

	guard := models.Guard{
		ID:           *guardID,
		Name:         *name,
		Phone:        *phone,
		FaceFeature:  feature,
		RegisterTime: time.Now(),
	}
	if err := db.RegisterGuard(context.Background(), guard); err != nil {
		log.Fatalf("Failed to register guard %s: %v", *guardID, err)
	}

	log.Printf("Register: guard %s (%s) registered, feature length %d", guard.ID, guard.Name, len(feature))
}
