package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Collection names
const (
	CollectionResolutions    = "resolutions"
	CollectionAgentDecisions = "agent_decisions"
)

const (
	defaultMongoDatabase = "controltower"
	mongoConnectTimeout  = 10 * time.Second
)

// MongoDB is the document-store flavour of the event store
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoDB connects and pings the primary. The database comes from the URI path,
// falling back to "controltower".
func NewMongoDB(uri string) (*MongoDB, error) {
	dbName, err := mongoDatabaseName(uri)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()

	// Decision appends are small and bursty; a modest pool is enough
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetAppName("controltower").
		SetMaxPoolSize(20).
		SetMinPoolSize(2).
		SetServerSelectionTimeout(5*time.Second).
		SetRetryWrites(true))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("✅ mongo event store connected (database: %s)", dbName)
	return &MongoDB{client: client, database: client.Database(dbName)}, nil
}

func mongoDatabaseName(uri string) (string, error) {
	cs, err := connstring.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid MONGODB_URI: %w", err)
	}
	if cs.Database == "" {
		return defaultMongoDatabase, nil
	}
	return cs.Database, nil
}

// Initialize creates the indexes precedent lookups and stats rely on
func (m *MongoDB) Initialize(ctx context.Context) error {
	log.Println("🔍 Checking event store indexes...")

	indexes := map[string][]mongo.IndexModel{
		CollectionResolutions: {
			{Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "execution_status", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		CollectionAgentDecisions: {
			{Keys: bson.D{{Key: "log_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "timestamp", Value: -1}, {Key: "action_name", Value: 1}}},
			{Keys: bson.D{{Key: "event_id", Value: 1}}},
		},
	}
	for collection, models := range indexes {
		if _, err := m.database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", collection, err)
		}
	}

	log.Println("✅ Event store indexes ready")
	return nil
}

// Collection returns a collection handle
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Close disconnects the client
func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping checks the primary is reachable
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}
