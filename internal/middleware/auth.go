package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/models"
)

const identityKey = "identity"

// Claims is the access token payload.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller attached to the gin context by
// AuthRequired.
type Identity struct {
	UserID primitive.ObjectID
	Role   string
	Email  string
}

func (id Identity) IsAdmin() bool { return id.Role == models.RoleAdmin }

// GenerateToken mints a signed HS256 access token.
func GenerateToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a signed token and returns its claims.
func ParseToken(secret, raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// AuthRequired authenticates the request from its Bearer token, or
// from a token query parameter for websocket upgrades, and stores the
// caller identity in the context. Validation is claims-only; no user
// lookup happens here.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var raw string
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimPrefix(h, "Bearer ")
		} else if q := c.Query("token"); q != "" {
			raw = q
		}
		if raw == "" {
			abort(c, httperr.Unauthorized("missing bearer token"))
			return
		}
		claims, err := ParseToken(secret, raw)
		if err != nil {
			abort(c, httperr.Unauthorized("invalid or expired token"))
			return
		}
		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			abort(c, httperr.Unauthorized("invalid or expired token"))
			return
		}
		c.Set(identityKey, Identity{UserID: userID, Role: claims.Role, Email: claims.Email})
		c.Next()
	}
}

// RequireRoles lets only the named roles through. Admin always passes.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abort(c, httperr.Unauthorized("missing bearer token"))
			return
		}
		if id.Role == models.RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		abort(c, httperr.Forbidden("insufficient role"))
	}
}

// GetIdentity returns the caller identity set by AuthRequired.
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func abort(c *gin.Context, err *httperr.Error) {
	c.AbortWithStatusJSON(err.Status, gin.H{"error": err.Message})
}
