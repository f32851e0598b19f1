package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDoc mirrors Record inside a Mongo collection, keyed by _id.
type mongoDoc struct {
	Key  string `bson:"_id"`
	Data []byte `bson:"data"`
}

// MongoTier is the secondary database tier.
type MongoTier struct {
	db *mongo.Database
}

// ConnectMongo establishes and pings a MongoDB connection.
func ConnectMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection error: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping error: %w", err)
	}
	return client.Database(dbName), nil
}

// NewMongoTier wraps a Mongo database as a storage tier.
func NewMongoTier(db *mongo.Database) *MongoTier {
	return &MongoTier{db: db}
}

func (t *MongoTier) Name() string        { return "mongo" }
func (t *MongoTier) Authoritative() bool { return true }

func (t *MongoTier) ReadAll(ctx context.Context, collection string) ([]Record, error) {
	cursor, err := t.db.Collection(collection).Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var records []Record
	for cursor.Next(ctx) {
		var doc mongoDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %q record: %w", collection, err)
		}
		records = append(records, Record{Key: doc.Key, Data: doc.Data})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", collection, err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

func (t *MongoTier) WriteAll(ctx context.Context, collection string, records []Record) error {
	coll := t.db.Collection(collection)
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear %q: %w", collection, err)
	}
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(records))
	for _, rec := range records {
		docs = append(docs, mongoDoc{Key: rec.Key, Data: rec.Data})
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to write %q: %w", collection, err)
	}
	return nil
}

func (t *MongoTier) UpsertOne(ctx context.Context, collection string, rec Record) error {
	_, err := t.db.Collection(collection).ReplaceOne(
		ctx,
		bson.M{"_id": rec.Key},
		mongoDoc{Key: rec.Key, Data: rec.Data},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert into %q: %w", collection, err)
	}
	return nil
}
