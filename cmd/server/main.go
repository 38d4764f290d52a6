package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Awais68/school-lms-backend/internal/authz"
	"github.com/Awais68/school-lms-backend/internal/config"
	"github.com/Awais68/school-lms-backend/internal/database"
	"github.com/Awais68/school-lms-backend/internal/routes"
	"github.com/Awais68/school-lms-backend/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()

	db := database.Connect(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("index setup failed: %v", err)
	}
	if err := database.SeedAdmin(ctx, db, cfg); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}

	gate := authz.NewGate(authz.NewStoreResolver(db))

	hub := ws.NewHub()
	go hub.Run()

	r := gin.Default()
	routes.Register(r, db, cfg, gate, hub)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Println("server exited with error:", err)
		os.Exit(1)
	}
}
