package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const DefaultMongoCollection = "sos_kv"

// MongoStore keeps one document per key, using the key as _id.
type MongoStore struct {
	database   *mongo.Database
	collection *mongo.Collection
}

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func NewMongoStore(database *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = DefaultMongoCollection
	}
	return &MongoStore{
		database:   database,
		collection: database.Collection(collection),
	}
}

func (ms *MongoStore) Get(ctx context.Context, key string, dst interface{}) error {
	var doc kvDocument
	err := ms.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("mongo find %s: %w", key, err)
	}
	return json.Unmarshal([]byte(doc.Value), dst)
}

func (ms *MongoStore) Set(ctx context.Context, key string, value interface{}) error {
	doc, err := newKVDocument(key, value)
	if err != nil {
		return err
	}

	_, err = ms.collection.ReplaceOne(
		ctx,
		bson.M{"_id": key},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo upsert %s: %w", key, err)
	}
	return nil
}

func (ms *MongoStore) Create(ctx context.Context, key string, value interface{}) error {
	doc, err := newKVDocument(key, value)
	if err != nil {
		return err
	}

	if _, err := ms.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrKeyExists
		}
		return fmt.Errorf("mongo insert %s: %w", key, err)
	}
	return nil
}

func (ms *MongoStore) Delete(ctx context.Context, key string) error {
	if _, err := ms.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo delete %s: %w", key, err)
	}
	return nil
}

func (ms *MongoStore) Ping(ctx context.Context) error {
	return ms.database.Client().Ping(ctx, readpref.Primary())
}

func (ms *MongoStore) Name() string {
	return "mongo"
}

func newKVDocument(key string, value interface{}) (kvDocument, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return kvDocument{}, err
	}
	return kvDocument{
		Key:       key,
		Value:     string(raw),
		UpdatedAt: time.Now(),
	}, nil
}
