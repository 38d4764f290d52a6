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

	"github.com/Awais68/school-lms-backend/internal/config"
)

// Connect opens the Mongo client and pings the primary. Fatal on
// failure: the server is useless without its record store.
func Connect(cfg *config.Config) *mongo.Database {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("mongo ping: %v", err)
	}
	log.Printf("connected to mongodb, database %q", cfg.MongoDBName)
	return client.Database(cfg.MongoDBName)
}

// EnsureIndexes creates the unique and query indexes the application
// relies on. The (student, course, date) unique index on attendance
// backs the one-record-per-day invariant; the in-handler duplicate
// check is an optimization, not the source of truth.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	uniq := options.Index().SetUnique(true)

	for coll, idx := range map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: uniq},
		},
		"students": {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: uniq},
			{Keys: bson.D{{Key: "admissionNo", Value: 1}}, Options: uniq},
			{Keys: bson.D{{Key: "class", Value: 1}, {Key: "section", Value: 1}}},
		},
		"teachers": {
			{Keys: bson.D{{Key: "user", Value: 1}}, Options: uniq},
			{Keys: bson.D{{Key: "employeeId", Value: 1}}, Options: uniq},
		},
		"courses": {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: uniq},
			{Keys: bson.D{{Key: "instructor", Value: 1}}},
		},
		"attendance": {
			{Keys: bson.D{{Key: "student", Value: 1}, {Key: "course", Value: 1}, {Key: "date", Value: 1}}, Options: uniq},
			{Keys: bson.D{{Key: "course", Value: 1}, {Key: "date", Value: 1}}},
		},
		"grades": {
			{Keys: bson.D{{Key: "student", Value: 1}, {Key: "course", Value: 1}}},
		},
		"fees": {
			{Keys: bson.D{{Key: "student", Value: 1}}},
		},
		"transport_routes": {
			{Keys: bson.D{{Key: "routeNo", Value: 1}}, Options: uniq},
		},
		"books": {
			{Keys: bson.D{{Key: "isbn", Value: 1}}, Options: uniq},
		},
		"book_issues": {
			{Keys: bson.D{{Key: "student", Value: 1}, {Key: "status", Value: 1}}},
		},
	} {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes for %s: %w", coll, err)
		}
	}
	return nil
}
