// Package authz implements the single authorization gate applied to
// every student-scoped read and write. Routes call one decision
// procedure parameterized by the caller's role and the target's
// ownership chain instead of branching on role strings inline.
package authz

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/models"
)

// Caller is the authenticated identity the gate decides for.
type Caller struct {
	UserID primitive.ObjectID
	Role   string
}

// Resolver loads the ownership facts the gate needs. Lookups that
// find nothing return (nil, nil); only infrastructure failures return
// an error. The store-backed implementation lives in this package,
// tests substitute stubs.
type Resolver interface {
	StudentByID(ctx context.Context, id primitive.ObjectID) (*models.Student, error)
	StudentByUser(ctx context.Context, userID primitive.ObjectID) (*models.Student, error)
	TeacherByUser(ctx context.Context, userID primitive.ObjectID) (*models.Teacher, error)
	CourseByID(ctx context.Context, id primitive.ObjectID) (*models.Course, error)
	TeacherInstructsStudent(ctx context.Context, teacherID, studentID primitive.ObjectID) (bool, error)
}

type Gate struct {
	r Resolver
}

func NewGate(r Resolver) *Gate { return &Gate{r: r} }

// CanAccessStudent decides whether the caller may read or mutate
// records owned by the target student. Admin always may; a teacher
// must instruct at least one course the student is enrolled in; a
// student must be the target; a parent must be the target's parent.
// A nil return is ALLOW.
func (g *Gate) CanAccessStudent(ctx context.Context, caller Caller, studentID primitive.ObjectID) error {
	switch caller.Role {
	case models.RoleAdmin:
		return nil

	case models.RoleTeacher:
		t, err := g.r.TeacherByUser(ctx, caller.UserID)
		if err != nil {
			return err
		}
		if t == nil {
			return httperr.Forbidden("no teacher profile for caller")
		}
		ok, err := g.r.TeacherInstructsStudent(ctx, t.ID, studentID)
		if err != nil {
			return err
		}
		if !ok {
			return httperr.Forbidden("student is not in any of your courses")
		}
		return nil

	case models.RoleStudent:
		s, err := g.r.StudentByUser(ctx, caller.UserID)
		if err != nil {
			return err
		}
		if s == nil || s.ID != studentID {
			return httperr.Forbidden("you may only access your own records")
		}
		return nil

	case models.RoleParent:
		s, err := g.r.StudentByID(ctx, studentID)
		if err != nil {
			return err
		}
		if s == nil {
			return httperr.NotFound("student")
		}
		if s.Parent != caller.UserID {
			return httperr.Forbidden("you may only access your child's records")
		}
		return nil
	}
	return httperr.Forbidden("access denied")
}

// CanAccessStudentInCourse is CanAccessStudent with the teacher rule
// narrowed to the given course: the caller must be that course's
// instructor, not merely any instructor of the student.
func (g *Gate) CanAccessStudentInCourse(ctx context.Context, caller Caller, studentID, courseID primitive.ObjectID) error {
	if caller.Role != models.RoleTeacher {
		return g.CanAccessStudent(ctx, caller, studentID)
	}
	t, err := g.r.TeacherByUser(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if t == nil {
		return httperr.Forbidden("no teacher profile for caller")
	}
	course, err := g.r.CourseByID(ctx, courseID)
	if err != nil {
		return err
	}
	if course == nil {
		return httperr.NotFound("course")
	}
	if course.Instructor != t.ID {
		return httperr.Forbidden("you are not the instructor of this course")
	}
	return nil
}

// CanManageCourse decides whether the caller may create or mutate
// records under a course: admin, or the course's instructor.
func (g *Gate) CanManageCourse(ctx context.Context, caller Caller, courseID primitive.ObjectID) error {
	if caller.Role == models.RoleAdmin {
		return nil
	}
	if caller.Role != models.RoleTeacher {
		return httperr.Forbidden("access denied")
	}
	t, err := g.r.TeacherByUser(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if t == nil {
		return httperr.Forbidden("no teacher profile for caller")
	}
	course, err := g.r.CourseByID(ctx, courseID)
	if err != nil {
		return err
	}
	if course == nil {
		return httperr.NotFound("course")
	}
	if course.Instructor != t.ID {
		return httperr.Forbidden("you are not the instructor of this course")
	}
	return nil
}
