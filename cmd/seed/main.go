package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"controltower/internal/config"
	"controltower/internal/database"
	"controltower/internal/events"
	"controltower/internal/models"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout of a precedent seed file
type seedFile struct {
	Resolutions []seedResolution `yaml:"resolutions"`
}

type seedResolution struct {
	EventID   string `yaml:"event_id"`
	EventType string `yaml:"event_type"`
	Action    string `yaml:"action"`
	Reasoning string `yaml:"reasoning"`
	Outcome   string `yaml:"outcome"`
	DaysAgo   int    `yaml:"days_ago"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	path := flag.String("file", "precedents.yaml", "YAML file with resolutions to load")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	resolutions, err := loadSeed(*path)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx := context.Background()
	seeder, closeFn, err := openSeeder(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer closeFn()

	now := time.Now().UTC()
	for i, r := range resolutions {
		outcome := models.Outcome(r.Outcome)
		if outcome == "" {
			outcome = models.OutcomeSuccess
		}
		ev := models.HistoricalEvent{
			EventID:   r.EventID,
			EventType: r.EventType,
			Action:    r.Action,
			Reasoning: r.Reasoning,
			Outcome:   outcome,
		}
		at := now.AddDate(0, 0, -r.DaysAgo)
		if err := seeder.RecordResolution(ctx, uuid.New().String(), ev, at); err != nil {
			log.Fatalf("❌ Failed to seed resolution %d (%s): %v", i, r.EventID, err)
		}
	}

	log.Printf("✅ Seeded %d resolutions into the %s event store", len(resolutions), cfg.EventStoreDriver)
}

func loadSeed(path string) ([]seedResolution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, r := range file.Resolutions {
		if r.EventID == "" || r.EventType == "" || r.Action == "" {
			return nil, fmt.Errorf("resolution %d: event_id, event_type and action are required", i)
		}
	}
	return file.Resolutions, nil
}

func openSeeder(ctx context.Context, cfg *config.Config) (events.Seeder, func(), error) {
	if cfg.EventStoreDriver == config.DriverMongo {
		mongoDB, err := database.NewMongoDB(cfg.MongoDBURI)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		if err := mongoDB.Initialize(ctx); err != nil {
			mongoDB.Close(ctx)
			return nil, nil, fmt.Errorf("initialize MongoDB: %w", err)
		}
		return events.NewMongoStore(mongoDB, cfg.BackoffPolicy()), func() { mongoDB.Close(context.Background()) }, nil
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}
	return events.NewSQLStore(db, cfg.BackoffPolicy()), func() { db.Close() }, nil
}
