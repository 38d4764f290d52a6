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

type QuizController struct {
	DB   *mongo.Database
	Gate *authz.Gate
}

func NewQuizController(db *mongo.Database, gate *authz.Gate) *QuizController {
	return &QuizController{DB: db, Gate: gate}
}

type createQuizRequest struct {
	Course        string  `json:"course" binding:"required"`
	Title         string  `json:"title" binding:"required"`
	QuestionCount int     `json:"questionCount"`
	TotalPoints   float64 `json:"totalPoints" binding:"required,gt=0"`
	ScheduledFor  string  `json:"scheduledFor" binding:"required"`
}

// Create schedules a quiz. Admin or the course's instructor.
func (q *QuizController) Create(c *gin.Context) {
	var req createQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("course, title, scheduledFor and a positive totalPoints are required"))
		return
	}
	courseID, err := primitive.ObjectIDFromHex(req.Course)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid course id"))
		return
	}
	scheduled, err := parseDate(req.ScheduledFor)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid scheduledFor"))
		return
	}
	id, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := q.Gate.CanManageCourse(ctx, caller, courseID); err != nil {
		httperr.Respond(c, err)
		return
	}

	now := time.Now().UTC()
	quiz := models.Quiz{
		ID:            primitive.NewObjectID(),
		Course:        courseID,
		Title:         req.Title,
		QuestionCount: req.QuestionCount,
		TotalPoints:   req.TotalPoints,
		ScheduledFor:  scheduled,
		CreatedBy:     id.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := q.DB.Collection("quizzes").InsertOne(ctx, quiz); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"quiz": quiz})
}

// ListByCourse returns a course's quizzes in schedule order. Any
// authenticated caller.
func (q *QuizController) ListByCourse(c *gin.Context) {
	courseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cur, err := q.DB.Collection("quizzes").Find(ctx, bson.M{"course": courseID},
		options.Find().SetSort(bson.D{{Key: "scheduledFor", Value: 1}}))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	quizzes := []models.Quiz{}
	if err := cur.All(ctx, &quizzes); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes, "total": len(quizzes)})
}

type updateQuizRequest struct {
	Title         *string  `json:"title"`
	QuestionCount *int     `json:"questionCount"`
	TotalPoints   *float64 `json:"totalPoints"`
	ScheduledFor  *string  `json:"scheduledFor"`
}

// Update patches a quiz. Admin or the course's instructor.
func (q *QuizController) Update(c *gin.Context) {
	quizID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req updateQuizRequest
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

	var existing models.Quiz
	err := q.DB.Collection("quizzes").FindOne(ctx, bson.M{"_id": quizID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("quiz"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if err := q.Gate.CanManageCourse(ctx, caller, existing.Course); err != nil {
		httperr.Respond(c, err)
		return
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.QuestionCount != nil {
		set["questionCount"] = *req.QuestionCount
	}
	if req.TotalPoints != nil {
		if *req.TotalPoints <= 0 {
			httperr.Respond(c, httperr.Validation("totalPoints must be greater than zero"))
			return
		}
		set["totalPoints"] = *req.TotalPoints
	}
	if req.ScheduledFor != nil {
		scheduled, err := parseDate(*req.ScheduledFor)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid scheduledFor"))
			return
		}
		set["scheduledFor"] = scheduled
	}

	var updated models.Quiz
	err = q.DB.Collection("quizzes").FindOneAndUpdate(ctx,
		bson.M{"_id": quizID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz": updated})
}

// Delete removes a quiz unless grades reference it. Admin or the
// course's instructor.
func (q *QuizController) Delete(c *gin.Context) {
	quizID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	_, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var existing models.Quiz
	err := q.DB.Collection("quizzes").FindOne(ctx, bson.M{"_id": quizID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("quiz"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if err := q.Gate.CanManageCourse(ctx, caller, existing.Course); err != nil {
		httperr.Respond(c, err)
		return
	}

	n, err := q.DB.Collection("grades").CountDocuments(ctx, bson.M{"quiz": quizID})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if n > 0 {
		httperr.Respond(c, httperr.Validation("quiz has %d grade records and cannot be deleted", n))
		return
	}

	if _, err := q.DB.Collection("quizzes").DeleteOne(ctx, bson.M{"_id": quizID}); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
