package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course holds its roster in enrolledStudents. MaxEnrollment of 0
// means unlimited.
type Course struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name             string               `bson:"name" json:"name"`
	Code             string               `bson:"code" json:"code"`
	Instructor       primitive.ObjectID   `bson:"instructor" json:"instructor"`
	Class            string               `bson:"class" json:"class"`
	Section          string               `bson:"section" json:"section"`
	EnrolledStudents []primitive.ObjectID `bson:"enrolledStudents" json:"enrolledStudents"`
	MaxEnrollment    int                  `bson:"maxEnrollment" json:"maxEnrollment"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
}
