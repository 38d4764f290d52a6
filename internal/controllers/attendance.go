package controllers

import (
	"context"
	"errors"
	"log"
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

type AttendanceController struct {
	DB   *mongo.Database
	Gate *authz.Gate
	Hub  *ws.Hub
}

func NewAttendanceController(db *mongo.Database, gate *authz.Gate, hub *ws.Hub) *AttendanceController {
	return &AttendanceController{DB: db, Gate: gate, Hub: hub}
}

type markAttendanceItem struct {
	Student  string           `json:"student" binding:"required"`
	Course   string           `json:"course" binding:"required"`
	Date     string           `json:"date" binding:"required"`
	Status   string           `json:"status" binding:"required"`
	Method   string           `json:"method"`
	DeviceID string           `json:"deviceId"`
	Location *models.GeoPoint `json:"location"`
}

type markAttendanceRequest struct {
	AttendanceRecords []markAttendanceItem `json:"attendanceRecords" binding:"required,min=1,dive"`
}

type markResult struct {
	ID      string `json:"id,omitempty"`
	Student string `json:"student"`
	Course  string `json:"course"`
	Date    string `json:"date"`
	Status  string `json:"status"`
	Outcome string `json:"outcome"` // marked | already_marked
}

type markError struct {
	Index   int    `json:"index"`
	Student string `json:"student,omitempty"`
	Course  string `json:"course,omitempty"`
	Error   string `json:"error"`
}

// Mark records a batch of attendance entries, best-effort: a bad
// record lands in the error list and the rest proceed. Re-marking the
// same (student, course, day) reports already_marked without
// mutation. Teacher or admin; a teacher may only mark their own
// courses.
func (ac *AttendanceController) Mark(c *gin.Context) {
	var req markAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("attendanceRecords is required and every record needs student, course, date and status"))
		return
	}
	id, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	results := []markResult{}
	errs := []markError{}
	var created []models.AttendanceRecord
	courses := make(map[primitive.ObjectID]courseAccess)

	for i, item := range req.AttendanceRecords {
		fail := func(msg string) {
			errs = append(errs, markError{Index: i, Student: item.Student, Course: item.Course, Error: msg})
		}

		studentID, err := primitive.ObjectIDFromHex(item.Student)
		if err != nil {
			fail("invalid student id")
			continue
		}
		courseID, err := primitive.ObjectIDFromHex(item.Course)
		if err != nil {
			fail("invalid course id")
			continue
		}
		if !models.IsValidAttendanceStatus(item.Status) {
			fail("invalid status " + item.Status)
			continue
		}
		method := item.Method
		if method == "" {
			method = models.MethodManual
		}
		if !models.IsValidAttendanceMethod(method) {
			fail("invalid method " + method)
			continue
		}
		day, err := parseDate(item.Date)
		if err != nil {
			fail("invalid date")
			continue
		}

		course, err := ac.courseForMarking(ctx, caller, courses, courseID)
		if err != nil {
			fail(errText(err))
			continue
		}

		rec, already, err := ac.markOne(ctx, course, studentID, day, item.Status, method, item.DeviceID, item.Location, id.UserID)
		if err != nil {
			fail(errText(err))
			continue
		}
		outcome := "marked"
		if already {
			outcome = "already_marked"
		} else {
			created = append(created, *rec)
		}
		results = append(results, markResult{
			ID:      rec.ID.Hex(),
			Student: item.Student,
			Course:  item.Course,
			Date:    rec.Date.Format("2006-01-02"),
			Status:  rec.Status,
			Outcome: outcome,
		})
	}

	ac.notifyMarked(ctx, created)
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"errors":    errs,
		"processed": len(results),
		"failed":    len(errs),
	})
}

// StudentAttendance returns one student's records plus their rate.
// Caller must pass the authorization gate for the student; with a
// course filter the teacher rule narrows to that course's instructor.
func (ac *AttendanceController) StudentAttendance(c *gin.Context) {
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

	filter := bson.M{"student": studentID}
	if v := c.Query("course"); v != "" {
		courseID, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid course id"))
			return
		}
		if err := ac.Gate.CanAccessStudentInCourse(ctx, caller, studentID, courseID); err != nil {
			httperr.Respond(c, err)
			return
		}
		filter["course"] = courseID
	} else {
		if err := ac.Gate.CanAccessStudent(ctx, caller, studentID); err != nil {
			httperr.Respond(c, err)
			return
		}
	}

	if n, err := ac.DB.Collection("students").CountDocuments(ctx, bson.M{"_id": studentID}); err != nil {
		httperr.Respond(c, err)
		return
	} else if n == 0 {
		httperr.Respond(c, httperr.NotFound("student"))
		return
	}

	rangeFilter, err := dateRangeFilter(c)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if rangeFilter != nil {
		filter["date"] = rangeFilter
	}
	if v := c.Query("status"); v != "" {
		if !models.IsValidAttendanceStatus(v) {
			httperr.Respond(c, httperr.Validation("invalid status %s", v))
			return
		}
		filter["status"] = v
	}

	cur, err := ac.DB.Collection("attendance").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	records := []models.AttendanceRecord{}
	if err := cur.All(ctx, &records); err != nil {
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attendanceRecords": records,
		"statistics":        aggregate.TallyAttendance(records),
	})
}

type classAttendanceEntry struct {
	Student    classStudent              `json:"student"`
	Statistics aggregate.AttendanceStats `json:"statistics"`
}

type classStudent struct {
	ID          string `json:"id"`
	AdmissionNo string `json:"admissionNo"`
	FullName    string `json:"fullName"`
	Section     string `json:"section"`
}

// ClassAttendance aggregates rates for every active student of a
// class (optionally one section) over a date range. Students with no
// records appear with rate 0 and stay out of the class average.
// Teacher or admin.
func (ac *AttendanceController) ClassAttendance(c *gin.Context) {
	classID := c.Param("classId")
	if classID == "" {
		httperr.Respond(c, httperr.Validation("classId is required"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	entries, summary, err := ac.classRollup(ctx, c, classID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"attendanceByStudent": entries,
		"classSummary":        summary,
	})
}

// classRollup does the shared fetch-and-aggregate for the class view
// and its export.
func (ac *AttendanceController) classRollup(ctx context.Context, c *gin.Context, classID string) ([]classAttendanceEntry, aggregate.ClassSummary, error) {
	studentFilter := bson.M{"class": classID, "active": true}
	if v := c.Query("section"); v != "" {
		studentFilter["section"] = v
	}

	cur, err := ac.DB.Collection("students").Find(ctx, studentFilter,
		options.Find().SetSort(bson.D{{Key: "admissionNo", Value: 1}}))
	if err != nil {
		return nil, aggregate.ClassSummary{}, err
	}
	var students []models.Student
	if err := cur.All(ctx, &students); err != nil {
		return nil, aggregate.ClassSummary{}, err
	}

	userIDs := make([]primitive.ObjectID, 0, len(students))
	studentIDs := make([]primitive.ObjectID, 0, len(students))
	for _, s := range students {
		userIDs = append(userIDs, s.User)
		studentIDs = append(studentIDs, s.ID)
	}
	names := make(map[primitive.ObjectID]string, len(userIDs))
	if len(userIDs) > 0 {
		cur, err := ac.DB.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
		if err != nil {
			return nil, aggregate.ClassSummary{}, err
		}
		var users []models.User
		if err := cur.All(ctx, &users); err != nil {
			return nil, aggregate.ClassSummary{}, err
		}
		for _, u := range users {
			names[u.ID] = u.FullName
		}
	}

	recordFilter := bson.M{"student": bson.M{"$in": studentIDs}}
	rangeFilter, err := dateRangeFilter(c)
	if err != nil {
		return nil, aggregate.ClassSummary{}, err
	}
	if rangeFilter != nil {
		recordFilter["date"] = rangeFilter
	}

	byStudent := make(map[primitive.ObjectID][]models.AttendanceRecord)
	if len(studentIDs) > 0 {
		cur, err := ac.DB.Collection("attendance").Find(ctx, recordFilter)
		if err != nil {
			return nil, aggregate.ClassSummary{}, err
		}
		var records []models.AttendanceRecord
		if err := cur.All(ctx, &records); err != nil {
			return nil, aggregate.ClassSummary{}, err
		}
		for _, r := range records {
			byStudent[r.Student] = append(byStudent[r.Student], r)
		}
	}

	entries := make([]classAttendanceEntry, 0, len(students))
	stats := make([]aggregate.AttendanceStats, 0, len(students))
	for _, s := range students {
		st := aggregate.TallyAttendance(byStudent[s.ID])
		stats = append(stats, st)
		entries = append(entries, classAttendanceEntry{
			Student: classStudent{
				ID:          s.ID.Hex(),
				AdmissionNo: s.AdmissionNo,
				FullName:    names[s.User],
				Section:     s.Section,
			},
			Statistics: st,
		})
	}
	return entries, aggregate.SummarizeClass(stats), nil
}

// CourseDay returns the register for one course on one day: every
// enrolled student with their status, unmarked students included.
// Admin or the course's instructor.
func (ac *AttendanceController) CourseDay(c *gin.Context) {
	courseID, ok := objectIDParam(c, "courseId")
	if !ok {
		return
	}
	_, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	day := time.Now().UTC()
	if v := c.Query("date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid date"))
			return
		}
		day = t
	}
	dayStart, dayEnd := dayWindow(day)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := ac.Gate.CanManageCourse(ctx, caller, courseID); err != nil {
		httperr.Respond(c, err)
		return
	}

	var course models.Course
	err := ac.DB.Collection("courses").FindOne(ctx, bson.M{"_id": courseID}).Decode(&course)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("course"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	marked := make(map[primitive.ObjectID]models.AttendanceRecord)
	cur, err := ac.DB.Collection("attendance").Find(ctx, bson.M{
		"course": courseID,
		"date":   bson.M{"$gte": dayStart, "$lt": dayEnd},
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	var records []models.AttendanceRecord
	if err := cur.All(ctx, &records); err != nil {
		httperr.Respond(c, err)
		return
	}
	for _, r := range records {
		marked[r.Student] = r
	}

	var students []models.Student
	if len(course.EnrolledStudents) > 0 {
		cur, err := ac.DB.Collection("students").Find(ctx,
			bson.M{"_id": bson.M{"$in": course.EnrolledStudents}},
			options.Find().SetSort(bson.D{{Key: "admissionNo", Value: 1}}))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		if err := cur.All(ctx, &students); err != nil {
			httperr.Respond(c, err)
			return
		}
	}

	type registerRow struct {
		Student     string `json:"student"`
		AdmissionNo string `json:"admissionNo"`
		Status      string `json:"status"`
		Method      string `json:"method,omitempty"`
	}
	rows := make([]registerRow, 0, len(students))
	for _, s := range students {
		row := registerRow{Student: s.ID.Hex(), AdmissionNo: s.AdmissionNo, Status: "unmarked"}
		if r, ok := marked[s.ID]; ok {
			row.Status = r.Status
			row.Method = r.Method
		}
		rows = append(rows, row)
	}

	c.JSON(http.StatusOK, gin.H{
		"course":   course.Code,
		"date":     dayStart.Format("2006-01-02"),
		"register": rows,
	})
}

type biometricEvent struct {
	Student     string `json:"student"`
	AdmissionNo string `json:"admissionNo"`
	Course      string `json:"course" binding:"required"`
	Timestamp   string `json:"timestamp" binding:"required"`
}

type biometricSyncRequest struct {
	DeviceID string           `json:"deviceId" binding:"required"`
	Events   []biometricEvent `json:"events" binding:"required,min=1,dive"`
}

// BiometricSync ingests a device batch. Students are resolved by id
// or admission number; every event marks present with the biometric
// method. Same best-effort envelope as Mark. Admin only; the device
// gateway authenticates with a service account.
func (ac *AttendanceController) BiometricSync(c *gin.Context) {
	var req biometricSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("deviceId and events with course and timestamp are required"))
		return
	}
	id, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	results := []markResult{}
	errs := []markError{}
	var created []models.AttendanceRecord
	courses := make(map[primitive.ObjectID]courseAccess)

	for i, ev := range req.Events {
		fail := func(msg string) {
			errs = append(errs, markError{Index: i, Student: ev.Student, Course: ev.Course, Error: msg})
		}

		student, err := ac.resolveStudent(ctx, ev.Student, ev.AdmissionNo)
		if err != nil {
			fail(errText(err))
			continue
		}
		courseID, err := primitive.ObjectIDFromHex(ev.Course)
		if err != nil {
			fail("invalid course id")
			continue
		}
		day, err := parseDate(ev.Timestamp)
		if err != nil {
			fail("invalid timestamp")
			continue
		}

		course, err := ac.courseForMarking(ctx, caller, courses, courseID)
		if err != nil {
			fail(errText(err))
			continue
		}

		rec, already, err := ac.markOne(ctx, course, student.ID, day,
			models.AttendancePresent, models.MethodBiometric, req.DeviceID, nil, id.UserID)
		if err != nil {
			fail(errText(err))
			continue
		}
		outcome := "marked"
		if already {
			outcome = "already_marked"
		} else {
			created = append(created, *rec)
		}
		results = append(results, markResult{
			ID:      rec.ID.Hex(),
			Student: student.ID.Hex(),
			Course:  ev.Course,
			Date:    rec.Date.Format("2006-01-02"),
			Status:  rec.Status,
			Outcome: outcome,
		})
	}

	ac.notifyMarked(ctx, created)
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"errors":    errs,
		"processed": len(results),
		"failed":    len(errs),
	})
}

type updateAttendanceRequest struct {
	Status string `json:"status" binding:"required"`
}

// Update corrects a record's status. Admin or the course's
// instructor.
func (ac *AttendanceController) Update(c *gin.Context) {
	recordID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	_, caller, ok := callerIdentity(c)
	if !ok {
		return
	}
	var req updateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("status is required"))
		return
	}
	if !models.IsValidAttendanceStatus(req.Status) {
		httperr.Respond(c, httperr.Validation("invalid status %s", req.Status))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var rec models.AttendanceRecord
	err := ac.DB.Collection("attendance").FindOne(ctx, bson.M{"_id": recordID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("attendance record"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if err := ac.Gate.CanManageCourse(ctx, caller, rec.Course); err != nil {
		httperr.Respond(c, err)
		return
	}

	rec.Status = req.Status
	if _, err := ac.DB.Collection("attendance").UpdateOne(ctx,
		bson.M{"_id": recordID},
		bson.M{"$set": bson.M{"status": req.Status}},
	); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendanceRecord": rec})
}

// Delete removes a record. Admin only.
func (ac *AttendanceController) Delete(c *gin.Context) {
	recordID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := ac.DB.Collection("attendance").DeleteOne(ctx, bson.M{"_id": recordID})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if res.DeletedCount == 0 {
		httperr.Respond(c, httperr.NotFound("attendance record"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type courseAccess struct {
	course *models.Course
	err    error
}

// courseForMarking loads a course once per batch and answers the gate
// decision for it, memoized because batches usually repeat a handful
// of courses.
func (ac *AttendanceController) courseForMarking(ctx context.Context, caller authz.Caller, memo map[primitive.ObjectID]courseAccess, id primitive.ObjectID) (*models.Course, error) {
	if got, ok := memo[id]; ok {
		return got.course, got.err
	}

	var course models.Course
	err := ac.DB.Collection("courses").FindOne(ctx, bson.M{"_id": id}).Decode(&course)
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = httperr.NotFound("course")
	}
	if err != nil {
		memo[id] = courseAccess{err: err}
		return nil, err
	}
	if err := ac.Gate.CanManageCourse(ctx, caller, id); err != nil {
		memo[id] = courseAccess{err: err}
		return nil, err
	}
	memo[id] = courseAccess{course: &course}
	return &course, nil
}

// markOne persists one attendance record after the enrollment check
// and the per-day duplicate check. The unique index is the real
// uniqueness arbiter: losing the insert race to a concurrent marker
// is reported as the same already-marked outcome.
func (ac *AttendanceController) markOne(ctx context.Context, course *models.Course, studentID primitive.ObjectID, day time.Time, status, method, deviceID string, loc *models.GeoPoint, markedBy primitive.ObjectID) (*models.AttendanceRecord, bool, error) {
	enrolled := false
	for _, sid := range course.EnrolledStudents {
		if sid == studentID {
			enrolled = true
			break
		}
	}
	if !enrolled {
		return nil, false, httperr.Validation("student is not enrolled in course %s", course.Code)
	}

	coll := ac.DB.Collection("attendance")
	dayStart, dayEnd := dayWindow(day)
	dupFilter := bson.M{
		"student": studentID,
		"course":  course.ID,
		"date":    bson.M{"$gte": dayStart, "$lt": dayEnd},
	}

	var existing models.AttendanceRecord
	err := coll.FindOne(ctx, dupFilter).Decode(&existing)
	if err == nil {
		return &existing, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	rec := models.AttendanceRecord{
		ID:        primitive.NewObjectID(),
		Student:   studentID,
		Course:    course.ID,
		Date:      dayStart,
		Status:    status,
		Method:    method,
		MarkedBy:  markedBy,
		DeviceID:  deviceID,
		Location:  loc,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if lookupErr := coll.FindOne(ctx, dupFilter).Decode(&existing); lookupErr == nil {
				return &existing, true, nil
			}
			return &rec, true, nil
		}
		return nil, false, err
	}
	return &rec, false, nil
}

// resolveStudent finds a student by id or, failing that, by admission
// number.
func (ac *AttendanceController) resolveStudent(ctx context.Context, idHex, admissionNo string) (*models.Student, error) {
	var filter bson.M
	switch {
	case idHex != "":
		id, err := primitive.ObjectIDFromHex(idHex)
		if err != nil {
			return nil, httperr.Validation("invalid student id")
		}
		filter = bson.M{"_id": id}
	case admissionNo != "":
		filter = bson.M{"admissionNo": admissionNo}
	default:
		return nil, httperr.Validation("student or admissionNo is required")
	}

	var student models.Student
	err := ac.DB.Collection("students").FindOne(ctx, filter).Decode(&student)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, httperr.NotFound("student")
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// notifyMarked pushes attendance_marked to each affected student's
// account and parent. Best-effort, failures are logged only.
func (ac *AttendanceController) notifyMarked(ctx context.Context, created []models.AttendanceRecord) {
	if ac.Hub == nil || len(created) == 0 {
		return
	}

	seen := make(map[primitive.ObjectID]struct{}, len(created))
	ids := make([]primitive.ObjectID, 0, len(created))
	for _, r := range created {
		if _, ok := seen[r.Student]; !ok {
			seen[r.Student] = struct{}{}
			ids = append(ids, r.Student)
		}
	}

	cur, err := ac.DB.Collection("students").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		log.Printf("attendance: notify lookup: %v", err)
		return
	}
	var students []models.Student
	if err := cur.All(ctx, &students); err != nil {
		log.Printf("attendance: notify lookup: %v", err)
		return
	}
	byID := make(map[primitive.ObjectID]models.Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}

	for _, r := range created {
		s, ok := byID[r.Student]
		if !ok {
			continue
		}
		payload := gin.H{
			"student": r.Student.Hex(),
			"course":  r.Course.Hex(),
			"date":    r.Date.Format("2006-01-02"),
			"status":  r.Status,
		}
		ac.Hub.EmitTo(s.User, ws.EventAttendanceMarked, payload)
		if !s.Parent.IsZero() {
			ac.Hub.EmitTo(s.Parent, ws.EventAttendanceMarked, payload)
		}
	}
}

// errText keeps taxonomy messages intact in batch error lists while
// hiding internal failures.
func errText(err error) string {
	var he *httperr.Error
	if errors.As(err, &he) {
		return he.Message
	}
	log.Printf("batch item error: %v", err)
	return "internal error"
}
