// Package mongostore implements store.Documents on top of MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/myerscreative/flowdoors-tracking/internal/store"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the cluster and verifies it with a ping.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Insert(ctx context.Context, collection, id string, doc any) error {
	m, err := toDoc(doc)
	if err != nil {
		return err
	}
	m["_id"] = id
	if _, err := s.db.Collection(collection).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return nil
}

// UpdateFields applies the update as a single aggregation-pipeline update so
// that SetIfUnset and Inc are evaluated atomically inside the server.
func (s *Store) UpdateFields(ctx context.Context, collection, id string, u store.Update) error {
	set := bson.M{}
	for k, v := range u.Set {
		set[k] = bson.M{"$literal": v}
	}
	for k, v := range u.SetIfUnset {
		set[k] = bson.M{"$ifNull": bson.A{"$" + k, v}}
	}
	for k, by := range u.Inc {
		set[k] = bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$" + k, 0}}, by}}
	}
	if len(set) == 0 {
		return nil
	}
	res, err := s.db.Collection(collection).UpdateByID(ctx, id, mongo.Pipeline{{{Key: "$set", Value: set}}})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FindByField(ctx context.Context, collection, field string, value any, out any) error {
	err := s.db.Collection(collection).FindOne(ctx, bson.M{field: value}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find %s by %s: %w", collection, field, err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, collection, id string, doc any) error {
	m, err := toDoc(doc)
	if err != nil {
		return err
	}
	m["_id"] = id
	_, err = s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

func toDoc(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return m, nil
}
