package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/models"
)

// stubResolver serves ownership facts from in-memory maps, mirroring
// the not-found-is-nil contract of the store-backed resolver.
type stubResolver struct {
	studentsByID   map[primitive.ObjectID]*models.Student
	studentsByUser map[primitive.ObjectID]*models.Student
	teachersByUser map[primitive.ObjectID]*models.Teacher
	coursesByID    map[primitive.ObjectID]*models.Course
	instructs      map[[2]primitive.ObjectID]bool
}

func (s *stubResolver) StudentByID(_ context.Context, id primitive.ObjectID) (*models.Student, error) {
	return s.studentsByID[id], nil
}

func (s *stubResolver) StudentByUser(_ context.Context, userID primitive.ObjectID) (*models.Student, error) {
	return s.studentsByUser[userID], nil
}

func (s *stubResolver) TeacherByUser(_ context.Context, userID primitive.ObjectID) (*models.Teacher, error) {
	return s.teachersByUser[userID], nil
}

func (s *stubResolver) CourseByID(_ context.Context, id primitive.ObjectID) (*models.Course, error) {
	return s.coursesByID[id], nil
}

func (s *stubResolver) TeacherInstructsStudent(_ context.Context, teacherID, studentID primitive.ObjectID) (bool, error) {
	return s.instructs[[2]primitive.ObjectID{teacherID, studentID}], nil
}

type gateFixture struct {
	gate *Gate

	adminUser   primitive.ObjectID
	teacherUser primitive.ObjectID
	studentUser primitive.ObjectID
	parentUser  primitive.ObjectID

	teacherID primitive.ObjectID
	studentID primitive.ObjectID
	otherID   primitive.ObjectID
	courseID  primitive.ObjectID
}

// newGateFixture builds one teacher instructing one course that the
// target student is enrolled in, plus a second student the teacher
// does not know.
func newGateFixture() *gateFixture {
	f := &gateFixture{
		adminUser:   primitive.NewObjectID(),
		teacherUser: primitive.NewObjectID(),
		studentUser: primitive.NewObjectID(),
		parentUser:  primitive.NewObjectID(),
		teacherID:   primitive.NewObjectID(),
		studentID:   primitive.NewObjectID(),
		otherID:     primitive.NewObjectID(),
		courseID:    primitive.NewObjectID(),
	}
	student := &models.Student{ID: f.studentID, User: f.studentUser, Parent: f.parentUser}
	other := &models.Student{ID: f.otherID, User: primitive.NewObjectID()}
	teacher := &models.Teacher{ID: f.teacherID, User: f.teacherUser}
	course := &models.Course{ID: f.courseID, Instructor: f.teacherID}

	f.gate = NewGate(&stubResolver{
		studentsByID:   map[primitive.ObjectID]*models.Student{f.studentID: student, f.otherID: other},
		studentsByUser: map[primitive.ObjectID]*models.Student{f.studentUser: student},
		teachersByUser: map[primitive.ObjectID]*models.Teacher{f.teacherUser: teacher},
		coursesByID:    map[primitive.ObjectID]*models.Course{f.courseID: course},
		instructs: map[[2]primitive.ObjectID]bool{
			{f.teacherID, f.studentID}: true,
		},
	})
	return f
}

func assertForbidden(t *testing.T, err error, message string) {
	t.Helper()
	var herr *httperr.Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, 403, herr.Status)
	assert.Equal(t, message, herr.Message)
}

func TestCanAccessStudent(t *testing.T) {
	f := newGateFixture()
	ctx := context.Background()

	t.Run("admin always allowed", func(t *testing.T) {
		caller := Caller{UserID: f.adminUser, Role: models.RoleAdmin}
		assert.NoError(t, f.gate.CanAccessStudent(ctx, caller, f.studentID))
		assert.NoError(t, f.gate.CanAccessStudent(ctx, caller, f.otherID))
	})

	t.Run("teacher allowed for instructed student", func(t *testing.T) {
		caller := Caller{UserID: f.teacherUser, Role: models.RoleTeacher}
		assert.NoError(t, f.gate.CanAccessStudent(ctx, caller, f.studentID))
	})

	t.Run("teacher denied for unrelated student", func(t *testing.T) {
		caller := Caller{UserID: f.teacherUser, Role: models.RoleTeacher}
		err := f.gate.CanAccessStudent(ctx, caller, f.otherID)
		assertForbidden(t, err, "student is not in any of your courses")
	})

	t.Run("teacher role without profile denied", func(t *testing.T) {
		caller := Caller{UserID: primitive.NewObjectID(), Role: models.RoleTeacher}
		err := f.gate.CanAccessStudent(ctx, caller, f.studentID)
		assertForbidden(t, err, "no teacher profile for caller")
	})

	t.Run("student allowed for own records", func(t *testing.T) {
		caller := Caller{UserID: f.studentUser, Role: models.RoleStudent}
		assert.NoError(t, f.gate.CanAccessStudent(ctx, caller, f.studentID))
	})

	t.Run("student denied for another student", func(t *testing.T) {
		caller := Caller{UserID: f.studentUser, Role: models.RoleStudent}
		err := f.gate.CanAccessStudent(ctx, caller, f.otherID)
		assertForbidden(t, err, "you may only access your own records")
	})

	t.Run("parent allowed for own child", func(t *testing.T) {
		caller := Caller{UserID: f.parentUser, Role: models.RoleParent}
		assert.NoError(t, f.gate.CanAccessStudent(ctx, caller, f.studentID))
	})

	t.Run("parent denied for another child", func(t *testing.T) {
		caller := Caller{UserID: f.parentUser, Role: models.RoleParent}
		err := f.gate.CanAccessStudent(ctx, caller, f.otherID)
		assertForbidden(t, err, "you may only access your child's records")
	})

	t.Run("parent gets not found for missing student", func(t *testing.T) {
		caller := Caller{UserID: f.parentUser, Role: models.RoleParent}
		err := f.gate.CanAccessStudent(ctx, caller, primitive.NewObjectID())
		var herr *httperr.Error
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, 404, herr.Status)
	})

	t.Run("unknown role denied", func(t *testing.T) {
		caller := Caller{UserID: primitive.NewObjectID(), Role: "librarian"}
		err := f.gate.CanAccessStudent(ctx, caller, f.studentID)
		assertForbidden(t, err, "access denied")
	})
}

func TestCanAccessStudentInCourse(t *testing.T) {
	f := newGateFixture()
	ctx := context.Background()

	t.Run("instructor of the course allowed", func(t *testing.T) {
		caller := Caller{UserID: f.teacherUser, Role: models.RoleTeacher}
		assert.NoError(t, f.gate.CanAccessStudentInCourse(ctx, caller, f.studentID, f.courseID))
	})

	t.Run("teacher denied for a course they do not instruct", func(t *testing.T) {
		otherTeacherUser := primitive.NewObjectID()
		otherTeacher := &models.Teacher{ID: primitive.NewObjectID(), User: otherTeacherUser}
		r := f.gate.r.(*stubResolver)
		r.teachersByUser[otherTeacherUser] = otherTeacher

		caller := Caller{UserID: otherTeacherUser, Role: models.RoleTeacher}
		err := f.gate.CanAccessStudentInCourse(ctx, caller, f.studentID, f.courseID)
		assertForbidden(t, err, "you are not the instructor of this course")
	})

	t.Run("missing course is not found", func(t *testing.T) {
		caller := Caller{UserID: f.teacherUser, Role: models.RoleTeacher}
		err := f.gate.CanAccessStudentInCourse(ctx, caller, f.studentID, primitive.NewObjectID())
		var herr *httperr.Error
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, 404, herr.Status)
	})

	t.Run("non-teacher falls back to the student rule", func(t *testing.T) {
		caller := Caller{UserID: f.studentUser, Role: models.RoleStudent}
		assert.NoError(t, f.gate.CanAccessStudentInCourse(ctx, caller, f.studentID, f.courseID))
	})
}

func TestCanManageCourse(t *testing.T) {
	f := newGateFixture()
	ctx := context.Background()

	assert.NoError(t, f.gate.CanManageCourse(ctx, Caller{UserID: f.adminUser, Role: models.RoleAdmin}, f.courseID))
	assert.NoError(t, f.gate.CanManageCourse(ctx, Caller{UserID: f.teacherUser, Role: models.RoleTeacher}, f.courseID))

	err := f.gate.CanManageCourse(ctx, Caller{UserID: f.studentUser, Role: models.RoleStudent}, f.courseID)
	assertForbidden(t, err, "access denied")

	err = f.gate.CanManageCourse(ctx, Caller{UserID: f.parentUser, Role: models.RoleParent}, f.courseID)
	assertForbidden(t, err, "access denied")
}

// errResolver fails every lookup; gate decisions must surface the
// infrastructure error rather than mask it as a deny.
type errResolver struct{ err error }

func (e *errResolver) StudentByID(context.Context, primitive.ObjectID) (*models.Student, error) {
	return nil, e.err
}
func (e *errResolver) StudentByUser(context.Context, primitive.ObjectID) (*models.Student, error) {
	return nil, e.err
}
func (e *errResolver) TeacherByUser(context.Context, primitive.ObjectID) (*models.Teacher, error) {
	return nil, e.err
}
func (e *errResolver) CourseByID(context.Context, primitive.ObjectID) (*models.Course, error) {
	return nil, e.err
}
func (e *errResolver) TeacherInstructsStudent(context.Context, primitive.ObjectID, primitive.ObjectID) (bool, error) {
	return false, e.err
}

func TestGatePropagatesResolverErrors(t *testing.T) {
	boom := errors.New("store down")
	gate := NewGate(&errResolver{err: boom})
	ctx := context.Background()

	for _, role := range []string{models.RoleTeacher, models.RoleStudent, models.RoleParent} {
		caller := Caller{UserID: primitive.NewObjectID(), Role: role}
		assert.ErrorIs(t, gate.CanAccessStudent(ctx, caller, primitive.NewObjectID()), boom, "role %s", role)
	}
	caller := Caller{UserID: primitive.NewObjectID(), Role: models.RoleTeacher}
	assert.ErrorIs(t, gate.CanManageCourse(ctx, caller, primitive.NewObjectID()), boom)
}
