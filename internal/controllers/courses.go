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
	"github.com/Awais68/school-lms-backend/internal/guard"
	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/models"
)

type CourseController struct {
	DB   *mongo.Database
	Gate *authz.Gate
}

func NewCourseController(db *mongo.Database, gate *authz.Gate) *CourseController {
	return &CourseController{DB: db, Gate: gate}
}

type courseView struct {
	models.Course
	EnrolledCount int `json:"enrolledCount"`
}

func viewOf(course models.Course) courseView {
	return courseView{Course: course, EnrolledCount: len(course.EnrolledStudents)}
}

type createCourseRequest struct {
	Name          string `json:"name" binding:"required"`
	Code          string `json:"code" binding:"required"`
	Instructor    string `json:"instructor" binding:"required"`
	Class         string `json:"class"`
	Section       string `json:"section"`
	MaxEnrollment int    `json:"maxEnrollment"`
}

// Create adds a course. Admin only. MaxEnrollment zero means
// unlimited.
func (cc *CourseController) Create(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("name, code and instructor are required"))
		return
	}
	if req.MaxEnrollment < 0 {
		httperr.Respond(c, httperr.Validation("maxEnrollment must not be negative"))
		return
	}
	instructorID, err := primitive.ObjectIDFromHex(req.Instructor)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid instructor id"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := cc.DB.Collection("teachers").CountDocuments(ctx, bson.M{"_id": instructorID})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if n == 0 {
		httperr.Respond(c, httperr.NotFound("instructor"))
		return
	}

	now := time.Now().UTC()
	course := models.Course{
		ID:               primitive.NewObjectID(),
		Name:             req.Name,
		Code:             req.Code,
		Instructor:       instructorID,
		Class:            req.Class,
		Section:          req.Section,
		EnrolledStudents: []primitive.ObjectID{},
		MaxEnrollment:    req.MaxEnrollment,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := cc.DB.Collection("courses").InsertOne(ctx, course); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Respond(c, httperr.Conflict("course code %s is already taken", req.Code))
			return
		}
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"course": viewOf(course)})
}

// List returns courses with optional class/instructor filters. Any
// authenticated caller.
func (cc *CourseController) List(c *gin.Context) {
	filter := bson.M{}
	if v := c.Query("class"); v != "" {
		filter["class"] = v
	}
	if v := c.Query("instructor"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid instructor id"))
			return
		}
		filter["instructor"] = id
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	page, limit, skip := pagination(c)
	coll := cc.DB.Collection("courses")
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	cur, err := coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "code", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	var courses []models.Course
	if err := cur.All(ctx, &courses); err != nil {
		httperr.Respond(c, err)
		return
	}

	views := make([]courseView, 0, len(courses))
	for _, co := range courses {
		views = append(views, viewOf(co))
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "total": total, "page": page, "limit": limit})
}

func (cc *CourseController) Get(c *gin.Context) {
	courseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var course models.Course
	err := cc.DB.Collection("courses").FindOne(ctx, bson.M{"_id": courseID}).Decode(&course)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("course"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": viewOf(course)})
}

type updateCourseRequest struct {
	Name          *string `json:"name"`
	Instructor    *string `json:"instructor"`
	Class         *string `json:"class"`
	Section       *string `json:"section"`
	MaxEnrollment *int    `json:"maxEnrollment"`
}

// Update patches course fields. Admin only. Lowering maxEnrollment
// below the current roster size is allowed; it only blocks further
// admissions.
func (cc *CourseController) Update(c *gin.Context) {
	courseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req updateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("invalid request body"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Class != nil {
		set["class"] = *req.Class
	}
	if req.Section != nil {
		set["section"] = *req.Section
	}
	if req.MaxEnrollment != nil {
		if *req.MaxEnrollment < 0 {
			httperr.Respond(c, httperr.Validation("maxEnrollment must not be negative"))
			return
		}
		set["maxEnrollment"] = *req.MaxEnrollment
	}
	if req.Instructor != nil {
		id, err := primitive.ObjectIDFromHex(*req.Instructor)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid instructor id"))
			return
		}
		n, err := cc.DB.Collection("teachers").CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		if n == 0 {
			httperr.Respond(c, httperr.NotFound("instructor"))
			return
		}
		set["instructor"] = id
	}

	var course models.Course
	err := cc.DB.Collection("courses").FindOneAndUpdate(ctx,
		bson.M{"_id": courseID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&course)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("course"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": viewOf(course)})
}

// Delete removes a course that has no dependent records. Attendance
// or grade history keeps the course alive. Admin only.
func (cc *CourseController) Delete(c *gin.Context) {
	courseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	for _, coll := range []string{"attendance", "grades"} {
		n, err := cc.DB.Collection(coll).CountDocuments(ctx, bson.M{"course": courseID})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		if n > 0 {
			httperr.Respond(c, httperr.Validation("course has %s records and cannot be deleted", coll))
			return
		}
	}

	res, err := cc.DB.Collection("courses").DeleteOne(ctx, bson.M{"_id": courseID})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if res.DeletedCount == 0 {
		httperr.Respond(c, httperr.NotFound("course"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type enrollRequest struct {
	StudentIDs []string `json:"studentIds" binding:"required,min=1"`
}

// Enroll admits a batch of students, all-or-nothing. The capacity
// check runs against freshly read state for an exact-count message,
// and the write itself re-asserts the bound with a size condition so
// two racing admissions cannot both land past the limit. Admin or
// the course's instructor.
func (cc *CourseController) Enroll(c *gin.Context) {
	courseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	_, caller, ok := callerIdentity(c)
	if !ok {
		return
	}
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("studentIds is required"))
		return
	}
	ids, err := parseObjectIDs("student", req.StudentIDs)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	unique := guard.NewMembers(nil, ids)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := cc.Gate.CanManageCourse(ctx, caller, courseID); err != nil {
		httperr.Respond(c, err)
		return
	}

	n, err := cc.DB.Collection("students").CountDocuments(ctx, bson.M{"_id": bson.M{"$in": unique}, "active": true})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if n != int64(len(unique)) {
		httperr.Respond(c, httperr.NotFound("one or more students"))
		return
	}

	coll := cc.DB.Collection("courses")
	for attempt := 0; attempt < 2; attempt++ {
		var course models.Course
		err := coll.FindOne(ctx, bson.M{"_id": courseID}).Decode(&course)
		if errors.Is(err, mongo.ErrNoDocuments) {
			httperr.Respond(c, httperr.NotFound("course"))
			return
		}
		if err != nil {
			httperr.Respond(c, err)
			return
		}

		newIDs := guard.NewMembers(course.EnrolledStudents, unique)
		if len(newIDs) == 0 {
			c.JSON(http.StatusOK, gin.H{"course": viewOf(course), "enrolled": 0, "message": "all students already enrolled"})
			return
		}
		if err := guard.CheckEnrollment(len(course.EnrolledStudents), len(newIDs), course.MaxEnrollment); err != nil {
			httperr.Respond(c, httperr.Validation("%s", err))
			return
		}

		filter := bson.M{"_id": courseID}
		if course.MaxEnrollment > 0 {
			filter["$expr"] = bson.M{"$lte": bson.A{
				bson.M{"$add": bson.A{bson.M{"$size": "$enrolledStudents"}, len(newIDs)}},
				course.MaxEnrollment,
			}}
		}
		res, err := coll.UpdateOne(ctx, filter, bson.M{
			"$addToSet": bson.M{"enrolledStudents": bson.M{"$each": newIDs}},
			"$set":      bson.M{"updatedAt": time.Now().UTC()},
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		if res.MatchedCount == 1 {
			if err := coll.FindOne(ctx, bson.M{"_id": courseID}).Decode(&course); err != nil {
				httperr.Respond(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"course": viewOf(course), "enrolled": len(newIDs)})
			return
		}
		// Lost an admission race; re-read and re-report from fresh
		// counts.
	}
	httperr.Respond(c, httperr.Conflict("enrollment changed concurrently, please retry"))
}

// Unenroll removes one student from the roster. Admin or instructor.
func (cc *CourseController) Unenroll(c *gin.Context) {
	courseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
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

	if err := cc.Gate.CanManageCourse(ctx, caller, courseID); err != nil {
		httperr.Respond(c, err)
		return
	}

	res, err := cc.DB.Collection("courses").UpdateOne(ctx,
		bson.M{"_id": courseID},
		bson.M{
			"$pull": bson.M{"enrolledStudents": studentID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if res.MatchedCount == 0 {
		httperr.Respond(c, httperr.NotFound("course"))
		return
	}
	if res.ModifiedCount == 0 {
		httperr.Respond(c, httperr.NotFound("enrollment"))
		return
	}

	var course models.Course
	if err := cc.DB.Collection("courses").FindOne(ctx, bson.M{"_id": courseID}).Decode(&course); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": viewOf(course)})
}
