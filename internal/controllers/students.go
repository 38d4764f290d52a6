package controllers

import (
	"context"
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
)

type StudentController struct {
	DB   *mongo.Database
	Gate *authz.Gate
}

func NewStudentController(db *mongo.Database, gate *authz.Gate) *StudentController {
	return &StudentController{DB: db, Gate: gate}
}

// studentView joins the profile with its account's name and email.
type studentView struct {
	models.Student
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type createStudentRequest struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	AdmissionNo string `json:"admissionNo" binding:"required"`
	Class       string `json:"class" binding:"required"`
	Section     string `json:"section"`
	Parent      string `json:"parent"`
}

// Create registers a student account and profile together.
func (s *StudentController) Create(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("fullName, email, password, admissionNo and class are required"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var parentID primitive.ObjectID
	if req.Parent != "" {
		id, err := primitive.ObjectIDFromHex(req.Parent)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid parent id"))
			return
		}
		n, err := s.DB.Collection("users").CountDocuments(ctx, bson.M{"_id": id, "role": models.RoleParent})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		if n == 0 {
			httperr.Respond(c, httperr.NotFound("parent account"))
			return
		}
		parentID = id
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  hash,
		Role:      models.RoleStudent,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.DB.Collection("users").InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Respond(c, httperr.Conflict("email %s is already registered", req.Email))
			return
		}
		httperr.Respond(c, err)
		return
	}

	student := models.Student{
		ID:          primitive.NewObjectID(),
		User:        user.ID,
		AdmissionNo: req.AdmissionNo,
		Class:       req.Class,
		Section:     req.Section,
		Parent:      parentID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.DB.Collection("students").InsertOne(ctx, student); err != nil {
		// The account is useless without its profile.
		_, _ = s.DB.Collection("users").DeleteOne(ctx, bson.M{"_id": user.ID})
		if mongo.IsDuplicateKeyError(err) {
			httperr.Respond(c, httperr.Conflict("admission number %s is already taken", req.AdmissionNo))
			return
		}
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"student": studentView{Student: student, FullName: user.FullName, Email: user.Email}})
}

// List returns students with optional class/section filters,
// paginated.
func (s *StudentController) List(c *gin.Context) {
	filter := bson.M{}
	if v := c.Query("class"); v != "" {
		filter["class"] = v
	}
	if v := c.Query("section"); v != "" {
		filter["section"] = v
	}
	if v := c.Query("active"); v == "true" || v == "false" {
		filter["active"] = v == "true"
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	page, limit, skip := pagination(c)
	coll := s.DB.Collection("students")
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	cur, err := coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "admissionNo", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	var students []models.Student
	if err := cur.All(ctx, &students); err != nil {
		httperr.Respond(c, err)
		return
	}

	views, err := s.withUsers(ctx, students)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "total": total, "page": page, "limit": limit})
}

// Get returns one student. Admin, an instructor of the student, the
// student, or their parent.
func (s *StudentController) Get(c *gin.Context) {
	studentID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	_, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := s.Gate.CanAccessStudent(ctx, caller, studentID); err != nil {
		httperr.Respond(c, err)
		return
	}

	var student models.Student
	err := s.DB.Collection("students").FindOne(ctx, bson.M{"_id": studentID}).Decode(&student)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("student"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	views, err := s.withUsers(ctx, []models.Student{student})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": views[0]})
}

type updateStudentRequest struct {
	AdmissionNo *string `json:"admissionNo"`
	Class       *string `json:"class"`
	Section     *string `json:"section"`
	Parent      *string `json:"parent"`
	Active      *bool   `json:"active"`
}

// Update patches profile fields. Admin only.
func (s *StudentController) Update(c *gin.Context) {
	studentID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("invalid request body"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.AdmissionNo != nil {
		set["admissionNo"] = *req.AdmissionNo
	}
	if req.Class != nil {
		set["class"] = *req.Class
	}
	if req.Section != nil {
		set["section"] = *req.Section
	}
	if req.Active != nil {
		set["active"] = *req.Active
	}
	if req.Parent != nil {
		if *req.Parent == "" {
			set["parent"] = primitive.NilObjectID
		} else {
			id, err := primitive.ObjectIDFromHex(*req.Parent)
			if err != nil {
				httperr.Respond(c, httperr.Validation("invalid parent id"))
				return
			}
			n, err := s.DB.Collection("users").CountDocuments(ctx, bson.M{"_id": id, "role": models.RoleParent})
			if err != nil {
				httperr.Respond(c, err)
				return
			}
			if n == 0 {
				httperr.Respond(c, httperr.NotFound("parent account"))
				return
			}
			set["parent"] = id
		}
	}

	var student models.Student
	err := s.DB.Collection("students").FindOneAndUpdate(ctx,
		bson.M{"_id": studentID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&student)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("student"))
		return
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Respond(c, httperr.Conflict("admission number is already taken"))
			return
		}
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

// Deactivate retires a student: profile and account are switched off,
// records stay. Admin only.
func (s *StudentController) Deactivate(c *gin.Context) {
	studentID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	now := time.Now().UTC()
	var student models.Student
	err := s.DB.Collection("students").FindOneAndUpdate(ctx,
		bson.M{"_id": studentID},
		bson.M{"$set": bson.M{"active": false, "updatedAt": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&student)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("student"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	if _, err := s.DB.Collection("users").UpdateOne(ctx,
		bson.M{"_id": student.User},
		bson.M{"$set": bson.M{"active": false, "updatedAt": now}},
	); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

// withUsers joins student documents with their account names, one
// batched lookup.
func (s *StudentController) withUsers(ctx context.Context, students []models.Student) ([]studentView, error) {
	ids := make([]primitive.ObjectID, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.User)
	}
	users := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) > 0 {
		cur, err := s.DB.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, err
		}
		var list []models.User
		if err := cur.All(ctx, &list); err != nil {
			return nil, err
		}
		for _, u := range list {
			users[u.ID] = u
		}
	}

	views := make([]studentView, 0, len(students))
	for _, st := range students {
		u := users[st.User]
		views = append(views, studentView{Student: st, FullName: u.FullName, Email: u.Email})
	}
	return views, nil
}
