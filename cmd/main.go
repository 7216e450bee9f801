package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tygxx/human-monitor-system/internal/config"
	"github.com/tygxx/human-monitor-system/internal/database"
	"github.com/tygxx/human-monitor-system/internal/emitter"
	"github.com/tygxx/human-monitor-system/internal/identity"
	"github.com/tygxx/human-monitor-system/internal/kafka"
	"github.com/tygxx/human-monitor-system/internal/monitor"
	"github.com/tygxx/human-monitor-system/internal/s3"
	"github.com/tygxx/human-monitor-system/internal/services/detection"
	"github.com/tygxx/human-monitor-system/internal/zones"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	cameraID := flag.String("camera", "", "monitor a single named camera instead of all")
	videoSource := flag.String("source", "", "override the camera's frame store URL")
	flag.Parse()

	log.Println("Main: init...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(cfg.Postgres.DSN)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.Init(); err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Calibration file when configured, the cameras and patrol_points tables
	// otherwise. A broken zone setup refuses to start the session.
	registry, err := loadRegistry(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to load zone configuration: %v", err)
	}

	guards, err := db.LoadGuards(ctx)
	if err != nil {
		log.Fatalf("Failed to load guards: %v", err)
	}
	log.Printf("Main: loaded %d registered guards", len(guards))
	matcher := identity.NewGuardMatcher(guards, cfg.Patrol.FaceMatchTolerance)

	s3Client, err := s3.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ArrivalTopic, cfg.Kafka.HeartbeatTopic)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer producer.Close()

	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.CommandTopic)
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer consumer.Close()
	consumer.StartListening(ctx)

	detectClient := detection.NewClient(cfg.Detection.Endpoint)

	em := emitter.New(db, producer, cfg.Patrol.CooldownWindow)
	go em.ReplayPending(ctx)

	m := monitor.New(registry, cfg.Patrol, s3Client, detectClient, matcher, em, producer, consumer, s3Client)
	if *cameraID != "" {
		if err := m.Start(ctx, *cameraID, *videoSource); err != nil {
			log.Fatalf("Failed to start camera %s: %v", *cameraID, err)
		}
	} else {
		m.StartAll(ctx)
	}
	go m.ListenAndRun(ctx)

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Println("Main: shutting down...")
	m.StopAll()
	cancel()
}

func loadRegistry(ctx context.Context, cfg *config.Config, db *database.Database) (*zones.Registry, error) {
	if cfg.ZonesPath != "" {
		return zones.Load(cfg.ZonesPath)
	}
	return zones.LoadFromStore(ctx, db)
}
