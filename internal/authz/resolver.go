package authz

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Awais68/school-lms-backend/internal/models"
)

// storeResolver answers ownership lookups straight from the record
// store, one indexed query per fact.
type storeResolver struct {
	db *mongo.Database
}

func NewStoreResolver(db *mongo.Database) Resolver {
	return &storeResolver{db: db}
}

func (r *storeResolver) StudentByID(ctx context.Context, id primitive.ObjectID) (*models.Student, error) {
	var s models.Student
	if err := r.db.Collection("students").FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *storeResolver) StudentByUser(ctx context.Context, userID primitive.ObjectID) (*models.Student, error) {
	var s models.Student
	if err := r.db.Collection("students").FindOne(ctx, bson.M{"user": userID}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *storeResolver) TeacherByUser(ctx context.Context, userID primitive.ObjectID) (*models.Teacher, error) {
	var t models.Teacher
	if err := r.db.Collection("teachers").FindOne(ctx, bson.M{"user": userID}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *storeResolver) CourseByID(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	var c models.Course
	if err := r.db.Collection("courses").FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *storeResolver) TeacherInstructsStudent(ctx context.Context, teacherID, studentID primitive.ObjectID) (bool, error) {
	n, err := r.db.Collection("courses").CountDocuments(ctx, bson.M{
		"instructor":       teacherID,
		"enrolledStudents": studentID,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
