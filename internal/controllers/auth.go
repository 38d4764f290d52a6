package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Awais68/school-lms-backend/internal/config"
	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/middleware"
	"github.com/Awais68/school-lms-backend/internal/models"
	"github.com/Awais68/school-lms-backend/internal/utils"
)

type AuthController struct {
	DB  *mongo.Database
	Cfg *config.Config
}

func NewAuthController(db *mongo.Database, cfg *config.Config) *AuthController {
	return &AuthController{DB: db, Cfg: cfg}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues an access token.
func (a *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("email and password are required"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var user models.User
	err := a.DB.Collection("users").FindOne(ctx, bson.M{"email": req.Email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.Unauthorized("invalid credentials"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if !user.Active {
		httperr.Respond(c, httperr.Forbidden("account is deactivated"))
		return
	}
	if !utils.CheckPassword(user.Password, req.Password) {
		httperr.Respond(c, httperr.Unauthorized("invalid credentials"))
		return
	}

	token, err := middleware.GenerateToken(a.Cfg.JWTSecret, &user, a.tokenTTL())
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (a *AuthController) tokenTTL() time.Duration {
	minutes, err := strconv.Atoi(a.Cfg.JWTExpiresIn)
	if err != nil || minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

type registerRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

// Register creates a bare user account. Student and teacher accounts
// normally come from the profile endpoints, which create the account
// and profile together; this is for parent and additional admin
// accounts.
func (a *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("fullName, email, password and role are required"))
		return
	}
	if !models.IsValidRole(req.Role) {
		httperr.Respond(c, httperr.Validation("invalid role %q", req.Role))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  hash,
		Role:      req.Role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := a.DB.Collection("users").InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Respond(c, httperr.Conflict("email %s is already registered", req.Email))
			return
		}
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Me returns the caller's fresh user document.
func (a *AuthController) Me(c *gin.Context) {
	id, _, ok := callerIdentity(c)
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var user models.User
	err := a.DB.Collection("users").FindOne(ctx, bson.M{"_id": id.UserID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("user"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
