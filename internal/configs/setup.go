package configs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB opens the mongo client and pings the server.
func ConnectDB(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Error().Err(err).Msg("Error connecting to mongo")
		return nil, err
	}

	//ping the database
	if err := client.Ping(ctx, nil); err != nil {
		log.Error().Err(err).Msg("Error pinging mongo")
		return nil, err
	}
	log.Info().Msg("Connected to MongoDB!")
	return client, nil
}

// getting database collections
func GetCollection(client *mongo.Client, database, collectionName string) *mongo.Collection {
	return client.Database(database).Collection(collectionName)
}

// OpenDatabase builds the user directory selected by cfg.DatabaseDriver. The
// returned close function releases the underlying connection.
func OpenDatabase(ctx context.Context, cfg *Config) (Database, func(context.Context) error, error) {
	if cfg.DatabaseDriver == DriverMemory {
		log.Warn().Msg("Using in-memory user directory, data is lost on restart")
		return NewMemoryDB(cfg.Transactions), func(context.Context) error { return nil }, nil
	}

	client, err := ConnectDB(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	db := NewMongoDB(client, cfg.DatabaseName, cfg.Transactions)
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Error().Err(err).Msg("Error creating user indexes")
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}
	return db, client.Disconnect, nil
}
