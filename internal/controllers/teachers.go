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

	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/models"
	"github.com/Awais68/school-lms-backend/internal/utils"
)

type TeacherController struct {
	DB *mongo.Database
}

func NewTeacherController(db *mongo.Database) *TeacherController {
	return &TeacherController{DB: db}
}

type teacherView struct {
	models.Teacher
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type createTeacherRequest struct {
	FullName   string   `json:"fullName" binding:"required"`
	Email      string   `json:"email" binding:"required,email"`
	Password   string   `json:"password" binding:"required,min=6"`
	EmployeeID string   `json:"employeeId" binding:"required"`
	Subjects   []string `json:"subjects"`
}

// Create registers a teacher account and profile together. Admin only.
func (t *TeacherController) Create(c *gin.Context) {
	var req createTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("fullName, email, password and employeeId are required"))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  hash,
		Role:      models.RoleTeacher,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := t.DB.Collection("users").InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Respond(c, httperr.Conflict("email %s is already registered", req.Email))
			return
		}
		httperr.Respond(c, err)
		return
	}

	teacher := models.Teacher{
		ID:         primitive.NewObjectID(),
		User:       user.ID,
		EmployeeID: req.EmployeeID,
		Subjects:   req.Subjects,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := t.DB.Collection("teachers").InsertOne(ctx, teacher); err != nil {
		_, _ = t.DB.Collection("users").DeleteOne(ctx, bson.M{"_id": user.ID})
		if mongo.IsDuplicateKeyError(err) {
			httperr.Respond(c, httperr.Conflict("employee id %s is already taken", req.EmployeeID))
			return
		}
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"teacher": teacherView{Teacher: teacher, FullName: user.FullName, Email: user.Email}})
}

// List returns all teachers, paginated. Admin only.
func (t *TeacherController) List(c *gin.Context) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, limit, skip := pagination(c)
	coll := t.DB.Collection("teachers")
	total, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	cur, err := coll.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "employeeId", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	var teachers []models.Teacher
	if err := cur.All(ctx, &teachers); err != nil {
		httperr.Respond(c, err)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(teachers))
	for _, te := range teachers {
		ids = append(ids, te.User)
	}
	users := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) > 0 {
		cur, err := t.DB.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		var list []models.User
		if err := cur.All(ctx, &list); err != nil {
			httperr.Respond(c, err)
			return
		}
		for _, u := range list {
			users[u.ID] = u
		}
	}

	views := make([]teacherView, 0, len(teachers))
	for _, te := range teachers {
		u := users[te.User]
		views = append(views, teacherView{Teacher: te, FullName: u.FullName, Email: u.Email})
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "total": total, "page": page, "limit": limit})
}

// Get returns one teacher profile. Admin only.
func (t *TeacherController) Get(c *gin.Context) {
	teacherID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var teacher models.Teacher
	err := t.DB.Collection("teachers").FindOne(ctx, bson.M{"_id": teacherID}).Decode(&teacher)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("teacher"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	var user models.User
	if err := t.DB.Collection("users").FindOne(ctx, bson.M{"_id": teacher.User}).Decode(&user); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teacher": teacherView{Teacher: teacher, FullName: user.FullName, Email: user.Email}})
}

type updateTeacherRequest struct {
	EmployeeID *string   `json:"employeeId"`
	Subjects   *[]string `json:"subjects"`
}

// Update patches profile fields. Admin only.
func (t *TeacherController) Update(c *gin.Context) {
	teacherID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req updateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("invalid request body"))
		return
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.EmployeeID != nil {
		set["employeeId"] = *req.EmployeeID
	}
	if req.Subjects != nil {
		set["subjects"] = *req.Subjects
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var teacher models.Teacher
	err := t.DB.Collection("teachers").FindOneAndUpdate(ctx,
		bson.M{"_id": teacherID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&teacher)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("teacher"))
		return
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Respond(c, httperr.Conflict("employee id is already taken"))
			return
		}
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teacher": teacher})
}

// Deactivate switches off the teacher's account. Courses keep their
// instructor reference; reassignment is a course update. Admin only.
func (t *TeacherController) Deactivate(c *gin.Context) {
	teacherID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var teacher models.Teacher
	err := t.DB.Collection("teachers").FindOne(ctx, bson.M{"_id": teacherID}).Decode(&teacher)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("teacher"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	if _, err := t.DB.Collection("users").UpdateOne(ctx,
		bson.M{"_id": teacher.User},
		bson.M{"$set": bson.M{"active": false, "updatedAt": time.Now().UTC()}},
	); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teacher": teacher})
}
