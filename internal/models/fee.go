package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fee types.
const (
	FeeTuition   = "tuition"
	FeeTransport = "transport"
	FeeLibrary   = "library"
	FeeExam      = "exam"
	FeeOther     = "other"
)

// Fee statuses.
const (
	FeeStatusPending = "pending"
	FeeStatusPaid    = "paid"
	FeeStatusOverdue = "overdue"
	FeeStatusPartial = "partial"
)

func IsValidFeeType(t string) bool {
	switch t {
	case FeeTuition, FeeTransport, FeeLibrary, FeeExam, FeeOther:
		return true
	}
	return false
}

type FeeRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Student       primitive.ObjectID `bson:"student" json:"student"`
	FeeType       string             `bson:"feeType" json:"feeType"`
	Amount        float64            `bson:"amount" json:"amount"`
	DueDate       time.Time          `bson:"dueDate" json:"dueDate"`
	Status        string             `bson:"status" json:"status"`
	AmountPaid    float64            `bson:"amountPaid" json:"amountPaid"`
	PaymentDate   *time.Time         `bson:"paymentDate,omitempty" json:"paymentDate,omitempty"`
	PaymentMethod string             `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	ReceiptNo     string             `bson:"receiptNo,omitempty" json:"receiptNo,omitempty"`
	RecordedBy    primitive.ObjectID `bson:"recordedBy" json:"recordedBy"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
