package controllers

import (
	"errors"
	"log"
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
	"github.com/Awais68/school-lms-backend/internal/ws"
)

// Default loan period when an issue request names no due date.
const defaultLoanDays = 14

type LibraryController struct {
	DB   *mongo.Database
	Gate *authz.Gate
	Hub  *ws.Hub
}

func NewLibraryController(db *mongo.Database, gate *authz.Gate, hub *ws.Hub) *LibraryController {
	return &LibraryController{DB: db, Gate: gate, Hub: hub}
}

type createBookRequest struct {
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author" binding:"required"`
	ISBN        string `json:"isbn" binding:"required"`
	Category    string `json:"category"`
	TotalCopies int    `json:"totalCopies" binding:"required,gt=0"`
}

// CreateBook adds a title to the catalogue with all copies available.
// Admin only.
func (lc *LibraryController) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("title, author, isbn and a positive totalCopies are required"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	now := time.Now().UTC()
	book := models.Book{
		ID:              primitive.NewObjectID(),
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		Category:        req.Category,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := lc.DB.Collection("books").InsertOne(ctx, book); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Respond(c, httperr.Conflict("a book with ISBN %s already exists", req.ISBN))
			return
		}
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"book": book})
}

// ListBooks returns the catalogue with search and category filters.
// Any authenticated user may browse.
func (lc *LibraryController) ListBooks(c *gin.Context) {
	filter := bson.M{}
	if v := c.Query("category"); v != "" {
		filter["category"] = v
	}
	if v := c.Query("search"); v != "" {
		rx := primitive.Regex{Pattern: v, Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": rx},
			bson.M{"author": rx},
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	page, limit, skip := pagination(c)
	coll := lc.DB.Collection("books")
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	cur, err := coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "title", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": books, "total": total, "page": page, "limit": limit})
}

type updateBookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Category    *string `json:"category"`
	TotalCopies *int    `json:"totalCopies"`
}

// UpdateBook patches catalogue details. Growing or shrinking the copy
// count moves availableCopies by the same amount, floored at zero so
// outstanding loans stay representable. Admin only.
func (lc *LibraryController) UpdateBook(c *gin.Context) {
	bookID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("invalid request body"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var existing models.Book
	err := lc.DB.Collection("books").FindOne(ctx, bson.M{"_id": bookID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("book"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Author != nil {
		set["author"] = *req.Author
	}
	if req.Category != nil {
		set["category"] = *req.Category
	}
	if req.TotalCopies != nil {
		if *req.TotalCopies <= 0 {
			httperr.Respond(c, httperr.Validation("totalCopies must be positive"))
			return
		}
		available := existing.AvailableCopies + (*req.TotalCopies - existing.TotalCopies)
		if available < 0 {
			available = 0
		}
		set["totalCopies"] = *req.TotalCopies
		set["availableCopies"] = available
	}

	var book models.Book
	err = lc.DB.Collection("books").FindOneAndUpdate(ctx,
		bson.M{"_id": bookID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&book)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": book})
}

// DeleteBook removes a title with no copies out on loan. Admin only.
func (lc *LibraryController) DeleteBook(c *gin.Context) {
	bookID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := lc.DB.Collection("book_issues").CountDocuments(ctx,
		bson.M{"book": bookID, "status": bson.M{"$ne": models.IssueStatusReturned}})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if n > 0 {
		httperr.Respond(c, httperr.Validation("book has %d copies on loan and cannot be deleted", n))
		return
	}

	res, err := lc.DB.Collection("books").DeleteOne(ctx, bson.M{"_id": bookID})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if res.DeletedCount == 0 {
		httperr.Respond(c, httperr.NotFound("book"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type issueBookRequest struct {
	Book    string `json:"book" binding:"required"`
	Student string `json:"student" binding:"required"`
	DueDate string `json:"dueDate"`
}

// Issue lends a copy to a student. The availability decrement is
// conditional on a copy still being free, so two racing issues of the
// last copy cannot both succeed. Admin only.
func (lc *LibraryController) Issue(c *gin.Context) {
	var req issueBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("book and student are required"))
		return
	}
	bookID, err := primitive.ObjectIDFromHex(req.Book)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid book id"))
		return
	}
	studentID, err := primitive.ObjectIDFromHex(req.Student)
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid student id"))
		return
	}
	now := time.Now().UTC()
	due := now.AddDate(0, 0, defaultLoanDays)
	if req.DueDate != "" {
		due, err = parseDate(req.DueDate)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid dueDate"))
			return
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var student models.Student
	err = lc.DB.Collection("students").FindOne(ctx, bson.M{"_id": studentID, "active": true}).Decode(&student)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("student"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	if n, err := lc.DB.Collection("book_issues").CountDocuments(ctx, bson.M{
		"book":    bookID,
		"student": studentID,
		"status":  bson.M{"$ne": models.IssueStatusReturned},
	}); err != nil {
		httperr.Respond(c, err)
		return
	} else if n > 0 {
		httperr.Respond(c, httperr.Conflict("student already has this book on loan"))
		return
	}

	var book models.Book
	err = lc.DB.Collection("books").FindOneAndUpdate(ctx,
		bson.M{"_id": bookID, "availableCopies": bson.M{"$gt": 0}},
		bson.M{
			"$inc": bson.M{"availableCopies": -1},
			"$set": bson.M{"updatedAt": now},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either the book does not exist or no copy is free. Tell the
		// two cases apart for the response.
		n, cntErr := lc.DB.Collection("books").CountDocuments(ctx, bson.M{"_id": bookID})
		if cntErr == nil && n == 0 {
			httperr.Respond(c, httperr.NotFound("book"))
			return
		}
		httperr.Respond(c, httperr.Validation("no copies of this book are available"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	issue := models.BookIssue{
		ID:        primitive.NewObjectID(),
		Book:      bookID,
		Student:   studentID,
		IssueDate: now,
		DueDate:   due,
		Status:    models.IssueStatusIssued,
		CreatedAt: now,
	}
	if _, err := lc.DB.Collection("book_issues").InsertOne(ctx, issue); err != nil {
		// Hand the copy back so availability stays consistent.
		_, _ = lc.DB.Collection("books").UpdateOne(ctx, bson.M{"_id": bookID},
			bson.M{"$inc": bson.M{"availableCopies": 1}})
		httperr.Respond(c, err)
		return
	}

	if lc.Hub != nil {
		payload := gin.H{
			"issue":   issue.ID.Hex(),
			"book":    book.ID.Hex(),
			"title":   book.Title,
			"dueDate": due,
		}
		lc.Hub.EmitTo(student.User, ws.EventBookIssued, payload)
		if !student.Parent.IsZero() {
			lc.Hub.EmitTo(student.Parent, ws.EventBookIssued, payload)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"issue": issue, "availableCopies": book.AvailableCopies})
}

// Return closes a loan and frees the copy. The increment is capped at
// totalCopies. Admin only.
func (lc *LibraryController) Return(c *gin.Context) {
	issueID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	now := time.Now().UTC()
	var issue models.BookIssue
	err := lc.DB.Collection("book_issues").FindOneAndUpdate(ctx,
		bson.M{"_id": issueID, "status": bson.M{"$ne": models.IssueStatusReturned}},
		bson.M{"$set": bson.M{
			"status":     models.IssueStatusReturned,
			"returnDate": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&issue)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cntErr := lc.DB.Collection("book_issues").CountDocuments(ctx, bson.M{"_id": issueID})
		if cntErr == nil && n > 0 {
			httperr.Respond(c, httperr.Validation("book has already been returned"))
			return
		}
		httperr.Respond(c, httperr.NotFound("book issue"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	res, err := lc.DB.Collection("books").UpdateOne(ctx,
		bson.M{
			"_id":   issue.Book,
			"$expr": bson.M{"$lt": bson.A{"$availableCopies", "$totalCopies"}},
		},
		bson.M{
			"$inc": bson.M{"availableCopies": 1},
			"$set": bson.M{"updatedAt": now},
		})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if res.ModifiedCount == 0 {
		log.Printf("library: return of issue %s left availableCopies untouched (book %s at capacity or missing)",
			issue.ID.Hex(), issue.Book.Hex())
	}

	c.JSON(http.StatusOK, gin.H{"issue": issue})
}

// ListIssues returns loans, filterable by student, book and status.
// Staff see everything; a student or parent is scoped by the gate when
// filtering by student. Admin and teachers may list freely.
func (lc *LibraryController) ListIssues(c *gin.Context) {
	_, caller, ok := callerIdentity(c)
	if !ok {
		return
	}

	filter := bson.M{}
	if v := c.Query("status"); v != "" {
		filter["status"] = v
	}
	if v := c.Query("book"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid book id"))
			return
		}
		filter["book"] = id
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if v := c.Query("student"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			httperr.Respond(c, httperr.Validation("invalid student id"))
			return
		}
		if err := lc.Gate.CanAccessStudent(ctx, caller, id); err != nil {
			httperr.Respond(c, err)
			return
		}
		filter["student"] = id
	} else if caller.Role != models.RoleAdmin && caller.Role != models.RoleTeacher {
		httperr.Respond(c, httperr.Validation("student query parameter is required"))
		return
	}

	cur, err := lc.DB.Collection("book_issues").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "issueDate", Value: -1}}))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	issues := []models.BookIssue{}
	if err := cur.All(ctx, &issues); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues, "total": len(issues)})
}

// MarkOverdueLoans flips issued loans past their due date to overdue.
// Admin only; typically hit by an external scheduler.
func (lc *LibraryController) MarkOverdueLoans(c *gin.Context) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := lc.DB.Collection("book_issues").UpdateMany(ctx,
		bson.M{"status": models.IssueStatusIssued, "dueDate": bson.M{"$lt": time.Now().UTC()}},
		bson.M{"$set": bson.M{"status": models.IssueStatusOverdue}},
	)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": res.ModifiedCount})
}
