package controllers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Awais68/school-lms-backend/internal/authz"
	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/middleware"
)

const dbTimeout = 5 * time.Second

// reqCtx bounds a store call by the request context.
func reqCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), dbTimeout)
}

// callerIdentity returns the authenticated identity and its authz
// view, answering the 401 itself when absent.
func callerIdentity(c *gin.Context) (middleware.Identity, authz.Caller, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		httperr.Respond(c, httperr.Unauthorized("missing bearer token"))
		return middleware.Identity{}, authz.Caller{}, false
	}
	return id, authz.Caller{UserID: id.UserID, Role: id.Role}, true
}

// objectIDParam parses a hex id path parameter, answering the 400
// itself when malformed.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		httperr.Respond(c, httperr.Validation("invalid %s", name))
		return primitive.NilObjectID, false
	}
	return id, true
}

// parseObjectIDs converts a batch of hex ids, failing on the first
// malformed entry.
func parseObjectIDs(field string, hexes []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, httperr.Validation("invalid %s id %q", field, h)
		}
		out = append(out, id)
	}
	return out, nil
}

// pagination reads page/limit query params with sane bounds.
func pagination(c *gin.Context) (page, limit int64, skip int64) {
	page = queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	limit = queryInt(c, "limit", 20)
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}

func queryInt(c *gin.Context, name string, fallback int64) int64 {
	s := c.Query(name)
	if s == "" {
		return fallback
	}
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int64(r-'0')
	}
	return n
}

// parseDate accepts YYYY-MM-DD or RFC3339, normalized to UTC.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// dayWindow returns [00:00, 24:00) UTC of t's calendar day.
func dayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// dateRangeFilter builds the bson clause for optional startDate and
// endDate query params, inclusive of the whole end day. Nil when
// neither is present.
func dateRangeFilter(c *gin.Context) (bson.M, error) {
	m := bson.M{}
	if s := c.Query("startDate"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return nil, httperr.Validation("invalid startDate")
		}
		start, _ := dayWindow(t)
		m["$gte"] = start
	}
	if s := c.Query("endDate"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return nil, httperr.Validation("invalid endDate")
		}
		_, end := dayWindow(t)
		m["$lt"] = end
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
