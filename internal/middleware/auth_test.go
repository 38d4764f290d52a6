package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Awais68/school-lms-backend/internal/models"
)

const testSecret = "test-secret"

func testUser(role string) *models.User {
	return &models.User{
		ID:    primitive.NewObjectID(),
		Email: "u@school.local",
		Role:  role,
	}
}

func protectedEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		id, _ := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID.Hex(), "role": id.Role})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestTokenRoundtrip(t *testing.T) {
	user := testUser(models.RoleTeacher)
	token, err := GenerateToken(testSecret, user, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "u@school.local", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, testUser(models.RoleAdmin), time.Hour)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken(testSecret, testUser(models.RoleAdmin), -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, token)
	assert.Error(t, err)
}

func TestAuthRequired(t *testing.T) {
	r := protectedEngine(AuthRequired(testSecret))
	user := testUser(models.RoleStudent)
	token, err := GenerateToken(testSecret, user, time.Hour)
	require.NoError(t, err)

	t.Run("bearer header accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), user.ID.Hex())
	})

	t.Run("query token accepted", func(t *testing.T) {
		// Websocket dials cannot set headers from browsers.
		req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())
	})

	t.Run("malformed token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		expired, err := GenerateToken(testSecret, user, -time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"invalid or expired token"}`, rec.Body.String())
	})

	t.Run("token signed with another secret rejected", func(t *testing.T) {
		forged, err := GenerateToken("other-secret", user, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	r := protectedEngine(AuthRequired(testSecret), RequireRoles(models.RoleTeacher))

	serve := func(role string) *httptest.ResponseRecorder {
		token, err := GenerateToken(testSecret, testUser(role), time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	t.Run("named role passes", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(models.RoleTeacher).Code)
	})

	t.Run("admin passes implicitly", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(models.RoleAdmin).Code)
	})

	t.Run("other roles rejected", func(t *testing.T) {
		for _, role := range []string{models.RoleStudent, models.RoleParent} {
			rec := serve(role)
			assert.Equal(t, http.StatusForbidden, rec.Code, "role %s", role)
			assert.JSONEq(t, `{"error":"insufficient role"}`, rec.Body.String())
		}
	})
}
