package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Grade types.
const (
	GradeAssignment    = "assignment"
	GradeQuiz          = "quiz"
	GradeExam          = "exam"
	GradeParticipation = "participation"
)

func IsValidGradeType(t string) bool {
	switch t {
	case GradeAssignment, GradeQuiz, GradeExam, GradeParticipation:
		return true
	}
	return false
}

// GradeRecord carries two derived fields, Percentage and LetterGrade,
// recomputed whenever both operands are resolvable.
type GradeRecord struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Student      primitive.ObjectID  `bson:"student" json:"student"`
	Course       primitive.ObjectID  `bson:"course" json:"course"`
	Assignment   *primitive.ObjectID `bson:"assignment,omitempty" json:"assignment,omitempty"`
	Quiz         *primitive.ObjectID `bson:"quiz,omitempty" json:"quiz,omitempty"`
	GradeType    string              `bson:"gradeType" json:"gradeType"`
	PointsEarned float64             `bson:"pointsEarned" json:"pointsEarned"`
	MaxPoints    float64             `bson:"maxPoints" json:"maxPoints"`
	Percentage   float64             `bson:"percentage" json:"percentage"`
	LetterGrade  string              `bson:"letterGrade" json:"letterGrade"`
	Remarks      string              `bson:"remarks,omitempty" json:"remarks,omitempty"`
	GradedBy     primitive.ObjectID  `bson:"gradedBy" json:"gradedBy"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}
