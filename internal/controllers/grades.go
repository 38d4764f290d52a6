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

	"github.com/Awais68/school-lms-backend/internal/aggregate"
	"github.com/Awais68/school-lms-backend/internal/authz"
	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/models"
	"github.com/Awais68/school-lms-backend/internal/ws"
)

type GradeController struct {
	DB   *mongo.Database
	Gate *authz.Gate
	Hub  *ws.Hub
}

func NewGradeController(db *mongo.Database, gate *authz.Gate, hub *ws.Hub) *GradeController {
	return &GradeController{DB: db, Gate: gate, Hub: hub}
}

type createGradeRequest struct {
	Student      string   `json:"student" binding:"required"`
	Course       string   `json:"course" binding:"required"`
	Assignment   string   `json:"assignment"`
	Quiz         string   `json:"quiz"`
	GradeType    string   `json:"gradeType" binding:"required"`
	PointsEarned *float64 `json:"pointsEarned" binding:"required"`
	MaxPoints    *float64 `json:"maxPoints" binding:"required"`
	Remarks      string   `json:"remarks"`
}

// Create records a grade with its derived percentage and letter.
// Admin or the course's instructor.
func (g *GradeController) Create(c *gin.Context) {
	var req createGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("student, course, gradeType, pointsEarned and maxPoints are required"))
		return
	}
	if !models.IsValidGradeType(req.GradeType) {
		httperr.Respond(c, httperr.Validation("invalid gradeType %q", req.GradeType))
		return
	}
	points, max := *req.PointsEarned, *req.MaxPoints
	if max <= 0 {
		httperr.Respond(c, httperr.Validation("maxPoints must be greater than zero"))
		return
	}
	if points < 0 {
		httperr.Respond(c, httperr.Validation("pointsEarned must not be negative"))
		return
	}
	if points > max {
		httperr.Respond(c, httperr.Validation("pointsEarned %.2f exceeds maxPoints %.2f", points, max))
		return
	}

	studentID, err := primitive.ObjectIDFromHex(req.Student)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid student id"))
		return
	}
	courseID, err := primitive.ObjectIDFromHex(req.Course)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid course id"))
		return
	}

	id, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := g.Gate.CanManageCourse(ctx, caller, courseID); err != nil {
		httperr.Respond(c, err)
		return
	}

	var course models.Course
	err = g.DB.Collection("courses").FindOne(ctx, bson.M{"_id": courseID}).Decode(&course)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("course"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	enrolled := false
	for _, sid := range course.EnrolledStudents {
		if sid == studentID {
			enrolled = true
			break
		}
	}
	if !enrolled {
		httperr.Respond(c, httperr.Validation("student is not enrolled in course %s", course.Code))
		return
	}

	var student models.Student
	err = g.DB.Collection("students").FindOne(ctx, bson.M{"_id": studentID}).Decode(&student)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("student"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	var assignmentRef, quizRef *primitive.ObjectID
	if req.Assignment != "" {
		ref, err := g.courseRef(ctx, "assignments", "assignment", req.Assignment, courseID)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		assignmentRef = ref
	}
	if req.Quiz != "" {
		ref, err := g.courseRef(ctx, "quizzes", "quiz", req.Quiz, courseID)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		quizRef = ref
	}

	pct := aggregate.Percentage(points, max)
	now := time.Now().UTC()
	rec := models.GradeRecord{
		ID:           primitive.NewObjectID(),
		Student:      studentID,
		Course:       courseID,
		Assignment:   assignmentRef,
		Quiz:         quizRef,
		GradeType:    req.GradeType,
		PointsEarned: points,
		MaxPoints:    max,
		Percentage:   pct,
		LetterGrade:  aggregate.LetterGrade(pct),
		Remarks:      req.Remarks,
		GradedBy:     id.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := g.DB.Collection("grades").InsertOne(ctx, rec); err != nil {
		httperr.Respond(c, err)
		return
	}

	g.notifyGrade(student, rec, ws.EventGradeRecorded)
	c.JSON(http.StatusCreated, gin.H{"gradeRecord": rec})
}

type updateGradeRequest struct {
	PointsEarned *float64 `json:"pointsEarned"`
	MaxPoints    *float64 `json:"maxPoints"`
	GradeType    *string  `json:"gradeType"`
	Remarks      *string  `json:"remarks"`
}

// Update patches a grade. When either operand changes, percentage and
// letter are recomputed from the patched operand plus the stored one.
// The pair is deliberately not re-validated here: a patch lowering
// maxPoints below the stored points yields a percentage above 100, a
// legacy behavior kept for compatibility. Admin or the course's
// instructor.
func (g *GradeController) Update(c *gin.Context) {
	gradeID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req updateGradeRequest
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

	var existing models.GradeRecord
	err := g.DB.Collection("grades").FindOne(ctx, bson.M{"_id": gradeID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("grade record"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if err := g.Gate.CanManageCourse(ctx, caller, existing.Course); err != nil {
		httperr.Respond(c, err)
		return
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.GradeType != nil {
		if !models.IsValidGradeType(*req.GradeType) {
			httperr.Respond(c, httperr.Validation("invalid gradeType %q", *req.GradeType))
			return
		}
		set["gradeType"] = *req.GradeType
	}
	if req.Remarks != nil {
		set["remarks"] = *req.Remarks
	}
	if req.PointsEarned != nil || req.MaxPoints != nil {
		points := existing.PointsEarned
		if req.PointsEarned != nil {
			points = *req.PointsEarned
		}
		max := existing.MaxPoints
		if req.MaxPoints != nil {
			max = *req.MaxPoints
		}
		pct := aggregate.Percentage(points, max)
		set["pointsEarned"] = points
		set["maxPoints"] = max
		set["percentage"] = pct
		set["letterGrade"] = aggregate.LetterGrade(pct)
	}

	var updated models.GradeRecord
	err = g.DB.Collection("grades").FindOneAndUpdate(ctx,
		bson.M{"_id": gradeID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("grade record"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	var student models.Student
	if err := g.DB.Collection("students").FindOne(ctx, bson.M{"_id": updated.Student}).Decode(&student); err == nil {
		g.notifyGrade(student, updated, ws.EventGradeUpdated)
	}
	c.JSON(http.StatusOK, gin.H{"gradeRecord": updated})
}

// ListByStudent returns a student's raw grade records, newest first.
// Caller must pass the authorization gate for the student.
func (g *GradeController) ListByStudent(c *gin.Context) {
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

	if err := g.Gate.CanAccessStudent(ctx, caller, studentID); err != nil {
		httperr.Respond(c, err)
		return
	}

	filter := bson.M{"student": studentID}
	if v := c.Query("course"); v != "" {
		courseID, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid course id"))
			return
		}
		filter["course"] = courseID
	}
	if v := c.Query("gradeType"); v != "" {
		if !models.IsValidGradeType(v) {
			httperr.Respond(c, httperr.Validation("invalid gradeType %q", v))
			return
		}
		filter["gradeType"] = v
	}

	cur, err := g.DB.Collection("grades").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	records := []models.GradeRecord{}
	if err := cur.All(ctx, &records); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grades": records, "total": len(records)})
}

// StudentSummary groups a student's grades by course with per-course
// averages and the overall GPA. Caller must pass the authorization
// gate for the student.
func (g *GradeController) StudentSummary(c *gin.Context) {
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

	if err := g.Gate.CanAccessStudent(ctx, caller, studentID); err != nil {
		httperr.Respond(c, err)
		return
	}
	if n, err := g.DB.Collection("students").CountDocuments(ctx, bson.M{"_id": studentID}); err != nil {
		httperr.Respond(c, err)
		return
	} else if n == 0 {
		httperr.Respond(c, httperr.NotFound("student"))
		return
	}

	cur, err := g.DB.Collection("grades").Find(ctx, bson.M{"student": studentID})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	var records []models.GradeRecord
	if err := cur.All(ctx, &records); err != nil {
		httperr.Respond(c, err)
		return
	}

	byCourse, gpa := aggregate.SummarizeGrades(records)

	courseIDs := make([]primitive.ObjectID, 0, len(byCourse))
	for _, cg := range byCourse {
		courseIDs = append(courseIDs, cg.Course)
	}
	courseNames := make(map[primitive.ObjectID]models.Course, len(courseIDs))
	if len(courseIDs) > 0 {
		cur, err := g.DB.Collection("courses").Find(ctx, bson.M{"_id": bson.M{"$in": courseIDs}})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		var courses []models.Course
		if err := cur.All(ctx, &courses); err != nil {
			httperr.Respond(c, err)
			return
		}
		for _, co := range courses {
			courseNames[co.ID] = co
		}
	}

	gradesByCourse := make(map[string]gin.H, len(byCourse))
	for _, cg := range byCourse {
		co := courseNames[cg.Course]
		key := co.Code
		if key == "" {
			key = cg.Course.Hex()
		}
		gradesByCourse[key] = gin.H{
			"courseId":          cg.Course.Hex(),
			"courseName":        co.Name,
			"averagePercentage": cg.Average,
			"grades":            cg.Grades,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"gradesByCourse": gradesByCourse,
		"overallGPA":     gpa,
		"totalGrades":    len(records),
	})
}

// CourseGrades is the instructor's view of everything graded in a
// course, with a per-type breakdown. Admin or the course's
// instructor.
func (g *GradeController) CourseGrades(c *gin.Context) {
	courseID, ok := objectIDParam(c, "courseId")
	if !ok {
		return
	}
	_, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := g.Gate.CanManageCourse(ctx, caller, courseID); err != nil {
		httperr.Respond(c, err)
		return
	}

	cur, err := g.DB.Collection("grades").Find(ctx, bson.M{"course": courseID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	records := []models.GradeRecord{}
	if err := cur.All(ctx, &records); err != nil {
		httperr.Respond(c, err)
		return
	}

	byType := map[string]int{}
	var sum float64
	for _, r := range records {
		byType[r.GradeType]++
		sum += r.Percentage
	}
	var avg float64
	if len(records) > 0 {
		avg = aggregate.Round2(sum / float64(len(records)))
	}

	c.JSON(http.StatusOK, gin.H{
		"grades":        records,
		"byType":        byType,
		"courseAverage": avg,
		"totalGrades":   len(records),
	})
}

// Delete removes a grade. Admin, or the teacher who recorded it.
func (g *GradeController) Delete(c *gin.Context) {
	gradeID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	id, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var rec models.GradeRecord
	err := g.DB.Collection("grades").FindOne(ctx, bson.M{"_id": gradeID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("grade record"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if !id.IsAdmin() && rec.GradedBy != id.UserID {
		httperr.Respond(c, httperr.Forbidden("only the grader or an admin may delete a grade"))
		return
	}

	if _, err := g.DB.Collection("grades").DeleteOne(ctx, bson.M{"_id": gradeID}); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// courseRef validates that a referenced assignment or quiz exists and
// belongs to the course being graded.
func (g *GradeController) courseRef(ctx context.Context, coll, field, hex string, courseID primitive.ObjectID) (*primitive.ObjectID, error) {
	refID, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, httperr.Validation("invalid %s id", field)
	}
	n, err := g.DB.Collection(coll).CountDocuments(ctx, bson.M{"_id": refID, "course": courseID})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, httperr.NotFound(field)
	}
	return &refID, nil
}

// notifyGrade pushes a grade event to the student's account and
// parent. Fire-and-forget.
func (g *GradeController) notifyGrade(student models.Student, rec models.GradeRecord, event string) {
	if g.Hub == nil {
		return
	}
	payload := gin.H{
		"student":     rec.Student.Hex(),
		"course":      rec.Course.Hex(),
		"gradeType":   rec.GradeType,
		"percentage":  rec.Percentage,
		"letterGrade": rec.LetterGrade,
	}
	g.Hub.EmitTo(student.User, event, payload)
	if !student.Parent.IsZero() {
		g.Hub.EmitTo(student.Parent, event, payload)
	}
}
