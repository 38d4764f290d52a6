package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Awais68/school-lms-backend/internal/aggregate"
	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/models"
)

type ExpenseController struct {
	DB *mongo.Database
}

func NewExpenseController(db *mongo.Database) *ExpenseController {
	return &ExpenseController{DB: db}
}

type createExpenseRequest struct {
	Category    string  `json:"category" binding:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	ExpenseDate string  `json:"expenseDate"`
}

// Create records an expense. Admin only.
func (ec *ExpenseController) Create(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("category and a positive amount are required"))
		return
	}
	id, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	when := now
	if req.ExpenseDate != "" {
		parsed, err := parseDate(req.ExpenseDate)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid expenseDate"))
			return
		}
		when = parsed
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	expense := models.Expense{
		ID:          primitive.NewObjectID(),
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		ExpenseDate: when,
		RecordedBy:  id.UserID,
		CreatedAt:   now,
	}
	if _, err := ec.DB.Collection("expenses").InsertOne(ctx, expense); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// List returns expenses with category and date-range filters,
// paginated. Admin only.
func (ec *ExpenseController) List(c *gin.Context) {
	filter := bson.M{}
	if v := c.Query("category"); v != "" {
		filter["category"] = v
	}
	rng, err := dateRangeFilter(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if rng != nil {
		filter["expenseDate"] = rng
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	page, limit, skip := pagination(c)
	coll := ec.DB.Collection("expenses")
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	cur, err := coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "expenseDate", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	expenses := []models.Expense{}
	if err := cur.All(ctx, &expenses); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": expenses, "total": total, "page": page, "limit": limit})
}

// Summary groups spending by category over an optional date range,
// with the grand total. Admin only.
func (ec *ExpenseController) Summary(c *gin.Context) {
	match := bson.M{}
	rng, err := dateRangeFilter(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if rng != nil {
		match["expenseDate"] = rng
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$category",
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"total": -1}}},
	}
	cur, err := ec.DB.Collection("expenses").Aggregate(ctx, pipeline)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	var rows []struct {
		Category string  `bson:"_id"`
		Total    float64 `bson:"total"`
		Count    int     `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		httperr.Respond(c, err)
		return
	}

	byCategory := make([]gin.H, 0, len(rows))
	var grand float64
	for _, r := range rows {
		grand += r.Total
		byCategory = append(byCategory, gin.H{
			"category": r.Category,
			"total":    aggregate.Round2(r.Total),
			"count":    r.Count,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"byCategory": byCategory,
		"grandTotal": aggregate.Round2(grand),
	})
}
