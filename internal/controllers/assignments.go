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
)

type AssignmentController struct {
	DB   *mongo.Database
	Gate *authz.Gate
}

func NewAssignmentController(db *mongo.Database, gate *authz.Gate) *AssignmentController {
	return &AssignmentController{DB: db, Gate: gate}
}

type createAssignmentRequest struct {
	Course      string  `json:"course" binding:"required"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	DueDate     string  `json:"dueDate" binding:"required"`
	TotalPoints float64 `json:"totalPoints" binding:"required,gt=0"`
}

// Create adds an assignment to a course. Admin or the course's
// instructor.
func (a *AssignmentController) Create(c *gin.Context) {
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("course, title, dueDate and a positive totalPoints are required"))
		return
	}
	courseID, err := primitive.ObjectIDFromHex(req.Course)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid course id"))
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid dueDate"))
		return
	}
	id, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := a.Gate.CanManageCourse(ctx, caller, courseID); err != nil {
		httperr.Respond(c, err)
		return
	}

	now := time.Now().UTC()
	assignment := models.Assignment{
		ID:          primitive.NewObjectID(),
		Course:      courseID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     due,
		TotalPoints: req.TotalPoints,
		CreatedBy:   id.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := a.DB.Collection("assignments").InsertOne(ctx, assignment); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"assignment": assignment})
}

// ListByCourse returns a course's assignments, soonest due first. Any
// authenticated caller.
func (a *AssignmentController) ListByCourse(c *gin.Context) {
	courseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cur, err := a.DB.Collection("assignments").Find(ctx, bson.M{"course": courseID},
		options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}}))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	assignments := []models.Assignment{}
	if err := cur.All(ctx, &assignments); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments, "total": len(assignments)})
}

func (a *AssignmentController) Get(c *gin.Context) {
	assignmentID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var assignment models.Assignment
	err := a.DB.Collection("assignments").FindOne(ctx, bson.M{"_id": assignmentID}).Decode(&assignment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("assignment"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignment": assignment})
}

type updateAssignmentRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	DueDate     *string  `json:"dueDate"`
	TotalPoints *float64 `json:"totalPoints"`
}

// Update patches an assignment. Admin or the course's instructor.
func (a *AssignmentController) Update(c *gin.Context) {
	assignmentID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req updateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("invalid request body"))
		return
	}
	_, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var existing models.Assignment
	err := a.DB.Collection("assignments").FindOne(ctx, bson.M{"_id": assignmentID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("assignment"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if err := a.Gate.CanManageCourse(ctx, caller, existing.Course); err != nil {
		httperr.Respond(c, err)
		return
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid dueDate"))
			return
		}
		set["dueDate"] = due
	}
	if req.TotalPoints != nil {
		if *req.TotalPoints <= 0 {
			httperr.Respond(c, httperr.Validation("totalPoints must be greater than zero"))
			return
		}
		set["totalPoints"] = *req.TotalPoints
	}

	var updated models.Assignment
	err = a.DB.Collection("assignments").FindOneAndUpdate(ctx,
		bson.M{"_id": assignmentID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignment": updated})
}

// Delete removes an assignment unless grades reference it. Admin or
// the course's instructor.
func (a *AssignmentController) Delete(c *gin.Context) {
	assignmentID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	_, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var existing models.Assignment
	err := a.DB.Collection("assignments").FindOne(ctx, bson.M{"_id": assignmentID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("assignment"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if err := a.Gate.CanManageCourse(ctx, caller, existing.Course); err != nil {
		httperr.Respond(c, err)
		return
	}

	n, err := a.DB.Collection("grades").CountDocuments(ctx, bson.M{"assignment": assignmentID})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if n > 0 {
		httperr.Respond(c, httperr.Validation("assignment has %d grade records and cannot be deleted", n))
		return
	}

	if _, err := a.DB.Collection("assignments").DeleteOne(ctx, bson.M{"_id": assignmentID}); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
