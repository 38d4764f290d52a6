package database

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Awais68/school-lms-backend/internal/config"
	"github.com/Awais68/school-lms-backend/internal/models"
	"github.com/Awais68/school-lms-backend/internal/utils"
)

// SeedAdmin creates the initial admin account on first boot. A
// concurrent boot losing the insert race is fine, the unique email
// index makes the second insert a no-op.
func SeedAdmin(ctx context.Context, db *mongo.Database, cfg *config.Config) error {
	users := db.Collection("users")

	err := users.FindOne(ctx, bson.M{"email": cfg.AdminEmail}).Err()
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = users.InsertOne(ctx, models.User{
		ID:        primitive.NewObjectID(),
		FullName:  cfg.AdminName,
		Email:     cfg.AdminEmail,
		Password:  hash,
		Role:      models.RoleAdmin,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("seeded admin account %s", cfg.AdminEmail)
	return nil
}
