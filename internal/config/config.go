package config

import (
	"os"
)

type Config struct {
	Port         string
	MongoURI     string
	MongoDBName  string
	JWTSecret    string
	JWTExpiresIn string // minutes

	// Initial admin account, seeded on first boot.
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// Comma-separated list of allowed CORS origins, "*" for all.
	AllowedOrigins string
}

func Load() *Config {
	return &Config{
		Port:         getenv("PORT", "8080"),
		MongoURI:     getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDBName:  getenv("MONGODB_DB", "school_lms"),
		JWTSecret:    getenv("JWT_SECRET", "supersecret_change_me"),
		JWTExpiresIn: getenv("JWT_EXPIRES_IN", "60"),

		AdminEmail:    getenv("ADMIN_EMAIL", "admin@school.local"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin123"),
		AdminName:     getenv("ADMIN_NAME", "System Administrator"),

		AllowedOrigins: getenv("ALLOWED_ORIGINS", "*"),
	}
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
