package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Awais68/school-lms-backend/internal/httperr"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2026-03-15T10:30:00+05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 5, 30, 0, 0, time.UTC), d)

	_, err = parseDate("15/03/2026")
	assert.Error(t, err)
	_, err = parseDate("")
	assert.Error(t, err)
}

func TestDayWindow(t *testing.T) {
	// A marking timestamp anywhere in the day, any zone, lands in the
	// UTC window of its calendar day.
	in := time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC)
	start, end := dayWindow(in)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), end)

	offset := time.FixedZone("UTC+5", 5*3600)
	start, end = dayWindow(time.Date(2026, 3, 16, 2, 0, 0, 0, offset))
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), end)

	// Two marks at different times of the same day resolve to the same
	// window; that collision is what turns the second mark into an
	// already_marked outcome instead of a new record.
	s1, e1 := dayWindow(time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC))
	s2, e2 := dayWindow(time.Date(2026, 3, 15, 17, 45, 0, 0, time.UTC))
	assert.Equal(t, s1, s2)
	assert.Equal(t, e1, e2)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int64
		wantLimit int64
		wantSkip  int64
	}{
		{"defaults", "", 1, 20, 0},
		{"explicit", "page=3&limit=10", 3, 10, 20},
		{"limit capped at 100", "limit=5000", 1, 100, 0},
		{"zero page clamped", "page=0", 1, 20, 0},
		{"garbage falls back", "page=abc&limit=-5", 1, 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit, skip := pagination(queryContext(t, tt.query))
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantSkip, skip)
		})
	}
}

func TestParseObjectIDs(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	ids, err := parseObjectIDs("student", []string{a.Hex(), b.Hex()})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{a, b}, ids)

	_, err = parseObjectIDs("student", []string{a.Hex(), "nope"})
	var herr *httperr.Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusBadRequest, herr.Status)
	assert.Equal(t, `invalid student id "nope"`, herr.Message)
}

func TestDateRangeFilter(t *testing.T) {
	m, err := dateRangeFilter(queryContext(t, ""))
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = dateRangeFilter(queryContext(t, "startDate=2026-03-01&endDate=2026-03-31"))
	require.NoError(t, err)
	assert.Equal(t, bson.M{
		"$gte": time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		"$lt":  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}, m)

	// endDate alone is an open-start range.
	m, err = dateRangeFilter(queryContext(t, "endDate=2026-03-31"))
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$lt": time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)}, m)

	_, err = dateRangeFilter(queryContext(t, "startDate=bogus"))
	assert.Error(t, err)
}
