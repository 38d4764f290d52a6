package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Student is the academic profile behind a user account with role
// "student". Authorization resolves it by the account (User) id.
type Student struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User        primitive.ObjectID `bson:"user" json:"user"`
	AdmissionNo string             `bson:"admissionNo" json:"admissionNo"`
	Class       string             `bson:"class" json:"class"`
	Section     string             `bson:"section" json:"section"`
	Parent      primitive.ObjectID `bson:"parent,omitempty" json:"parent,omitempty"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
