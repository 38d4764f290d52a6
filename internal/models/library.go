package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Book issue statuses.
const (
	IssueStatusIssued   = "issued"
	IssueStatusReturned = "returned"
	IssueStatusOverdue  = "overdue"
)

type Book struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Author          string             `bson:"author" json:"author"`
	ISBN            string             `bson:"isbn" json:"isbn"`
	Category        string             `bson:"category,omitempty" json:"category,omitempty"`
	TotalCopies     int                `bson:"totalCopies" json:"totalCopies"`
	AvailableCopies int                `bson:"availableCopies" json:"availableCopies"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type BookIssue struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Book       primitive.ObjectID `bson:"book" json:"book"`
	Student    primitive.ObjectID `bson:"student" json:"student"`
	IssueDate  time.Time          `bson:"issueDate" json:"issueDate"`
	DueDate    time.Time          `bson:"dueDate" json:"dueDate"`
	ReturnDate *time.Time         `bson:"returnDate,omitempty" json:"returnDate,omitempty"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
