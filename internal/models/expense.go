package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Expense struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Category    string             `bson:"category" json:"category"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Amount      float64            `bson:"amount" json:"amount"`
	ExpenseDate time.Time          `bson:"expenseDate" json:"expenseDate"`
	ApprovedBy  primitive.ObjectID `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	RecordedBy  primitive.ObjectID `bson:"recordedBy" json:"recordedBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
