package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/futstats/dailypost/internal/models"
)

// MongoStore keeps the post collection in MongoDB. The daily writer owns
// the collection exclusively during a run, so the rewrite is a delete-all
// plus insert-all; nothing else writes between the two.
type MongoStore struct {
	client *mongo.Client
	posts  *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the posts collection.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	log.Info().Str("db", dbName).Msg("Connected to MongoDB")

	store := &MongoStore{
		client: client,
		posts:  db.Collection("posts"),
	}

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	}
	if _, err := store.posts.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warn().Err(err).Msg("Failed to create post indexes")
	}

	return store, nil
}

// LoadPosts returns the full collection newest-first. One post per calendar
// date makes the date sort equivalent to insertion order.
func (s *MongoStore) LoadPosts(ctx context.Context) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := s.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, nil
}

// ReplaceAll rewrites the whole collection.
func (s *MongoStore) ReplaceAll(ctx context.Context, posts []models.Post) error {
	if _, err := s.posts.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear posts: %w", err)
	}
	if len(posts) == 0 {
		return nil
	}

	docs := make([]interface{}, len(posts))
	for i, p := range posts {
		docs[i] = p
	}
	if _, err := s.posts.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert posts: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
