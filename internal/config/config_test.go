package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_EXPIRES_IN", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "school_lms", cfg.MongoDBName)
	assert.Equal(t, "60", cfg.JWTExpiresIn)
	assert.Equal(t, "*", cfg.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MONGODB_DB", "school_test")
	t.Setenv("JWT_SECRET", "sekrit")
	t.Setenv("ALLOWED_ORIGINS", "https://app.school.local")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "school_test", cfg.MongoDBName)
	assert.Equal(t, "sekrit", cfg.JWTSecret)
	assert.Equal(t, "https://app.school.local", cfg.AllowedOrigins)
}
