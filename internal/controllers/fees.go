package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Awais68/school-lms-backend/internal/authz"
	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/models"
	"github.com/Awais68/school-lms-backend/internal/utils"
	"github.com/Awais68/school-lms-backend/internal/ws"
)

type FeeController struct {
	DB   *mongo.Database
	Gate *authz.Gate
	Hub  *ws.Hub
}

func NewFeeController(db *mongo.Database, gate *authz.Gate, hub *ws.Hub) *FeeController {
	return &FeeController{DB: db, Gate: gate, Hub: hub}
}

type createFeeRequest struct {
	Student string  `json:"student" binding:"required"`
	FeeType string  `json:"feeType" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	DueDate string  `json:"dueDate" binding:"required"`
}

// Create raises a fee against a student. Admin only.
func (f *FeeController) Create(c *gin.Context) {
	var req createFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("student, feeType, dueDate and a positive amount are required"))
		return
	}
	if !models.IsValidFeeType(req.FeeType) {
		httperr.Respond(c, httperr.Validation("invalid feeType %q", req.FeeType))
		return
	}
	studentID, err := primitive.ObjectIDFromHex(req.Student)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid student id"))
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid dueDate"))
		return
	}
	id, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if n, err := f.DB.Collection("students").CountDocuments(ctx, bson.M{"_id": studentID}); err != nil {
		httperr.Respond(c, err)
		return
	} else if n == 0 {
		httperr.Respond(c, httperr.NotFound("student"))
		return
	}

	now := time.Now().UTC()
	fee := models.FeeRecord{
		ID:         primitive.NewObjectID(),
		Student:    studentID,
		FeeType:    req.FeeType,
		Amount:     req.Amount,
		DueDate:    due,
		Status:     models.FeeStatusPending,
		RecordedBy: id.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.DB.Collection("fees").InsertOne(ctx, fee); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feeRecord": fee})
}

// ListByStudent returns a student's fees with the outstanding total.
// Caller must pass the authorization gate for the student.
func (f *FeeController) ListByStudent(c *gin.Context) {
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}
	_, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := f.Gate.CanAccessStudent(ctx, caller, studentID); err != nil {
		httperr.Respond(c, err)
		return
	}

	filter := bson.M{"student": studentID}
	if v := c.Query("status"); v != "" {
		filter["status"] = v
	}

	cur, err := f.DB.Collection("fees").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}}))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	fees := []models.FeeRecord{}
	if err := cur.All(ctx, &fees); err != nil {
		httperr.Respond(c, err)
		return
	}

	var outstanding float64
	for _, fee := range fees {
		if fee.Status != models.FeeStatusPaid {
			outstanding += fee.Amount - fee.AmountPaid
		}
	}
	c.JSON(http.StatusOK, gin.H{"fees": fees, "total": len(fees), "outstanding": outstanding})
}

// List returns all fees with status/type filters, paginated. Admin
// only.
func (f *FeeController) List(c *gin.Context) {
	filter := bson.M{}
	if v := c.Query("status"); v != "" {
		filter["status"] = v
	}
	if v := c.Query("feeType"); v != "" {
		filter["feeType"] = v
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	page, limit, skip := pagination(c)
	coll := f.DB.Collection("fees")
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	cur, err := coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "dueDate", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	fees := []models.FeeRecord{}
	if err := cur.All(ctx, &fees); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": fees, "total": total, "page": page, "limit": limit})
}

type payFeeRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod string  `json:"paymentMethod"`
}

// Pay applies a payment to a fee, derives the partial/paid status and
// issues a receipt number. The student and parent are notified on
// their channels. Admin only.
func (f *FeeController) Pay(c *gin.Context) {
	feeID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req payFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("a positive amount is required"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var fee models.FeeRecord
	err := f.DB.Collection("fees").FindOne(ctx, bson.M{"_id": feeID}).Decode(&fee)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("fee record"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if fee.Status == models.FeeStatusPaid {
		httperr.Respond(c, httperr.Validation("fee is already fully paid"))
		return
	}

	newPaid := fee.AmountPaid + req.Amount
	status := models.FeeStatusPartial
	if newPaid >= fee.Amount {
		status = models.FeeStatusPaid
	}
	now := time.Now().UTC()
	receiptNo := utils.NewReceiptNo()

	var updated models.FeeRecord
	err = f.DB.Collection("fees").FindOneAndUpdate(ctx,
		bson.M{"_id": feeID},
		bson.M{"$set": bson.M{
			"amountPaid":    newPaid,
			"status":        status,
			"paymentDate":   now,
			"paymentMethod": req.PaymentMethod,
			"receiptNo":     receiptNo,
			"updatedAt":     now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	if f.Hub != nil {
		var student models.Student
		if err := f.DB.Collection("students").FindOne(ctx, bson.M{"_id": updated.Student}).Decode(&student); err == nil {
			payload := gin.H{
				"fee":        updated.ID.Hex(),
				"feeType":    updated.FeeType,
				"amountPaid": updated.AmountPaid,
				"status":     updated.Status,
				"receiptNo":  receiptNo,
			}
			f.Hub.EmitTo(student.User, ws.EventFeePaid, payload)
			if !student.Parent.IsZero() {
				f.Hub.EmitTo(student.Parent, ws.EventFeePaid, payload)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"feeRecord": updated, "receiptNo": receiptNo})
}

// MarkOverdue flips pending fees past their due date to overdue.
// Admin only; typically hit by an external scheduler.
func (f *FeeController) MarkOverdue(c *gin.Context) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := f.DB.Collection("fees").UpdateMany(ctx,
		bson.M{"status": models.FeeStatusPending, "dueDate": bson.M{"$lt": time.Now().UTC()}},
		bson.M{"$set": bson.M{"status": models.FeeStatusOverdue, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": res.ModifiedCount})
}
