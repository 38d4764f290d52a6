package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Quiz deletion follows the same dependency rule as Assignment.
type Quiz struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Course        primitive.ObjectID `bson:"course" json:"course"`
	Title         string             `bson:"title" json:"title"`
	QuestionCount int                `bson:"questionCount" json:"questionCount"`
	TotalPoints   float64            `bson:"totalPoints" json:"totalPoints"`
	ScheduledFor  time.Time          `bson:"scheduledFor" json:"scheduledFor"`
	CreatedBy     primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
