// server/internal/api/handlers/user_handler.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recycle-pickup-api-server/internal/auth"
	"recycle-pickup-api-server/internal/models"
	"recycle-pickup-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserStore is the user part of the store.
type UserStore interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

type UserHandler struct {
	Users  UserStore
	Tokens *auth.TokenService
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Name        string `json:"name" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	CommunityID string `json:"communityID"`
}

type CreateUserRequest struct {
	RegisterRequest
	Role string `json:"role" binding:"required,oneof=user agent admin"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a regular user account.
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.create(c, req, models.RoleUser)
}

// CreateUser lets an admin create agents, admins or users.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.create(c, req.RegisterRequest, req.Role)
}

func (h *UserHandler) create(c *gin.Context, req RegisterRequest, role string) {
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	u := models.User{
		ID:          fmt.Sprintf("%s-%s", role, uuid.New().String()[:8]),
		Email:       strings.ToLower(req.Email),
		Name:        req.Name,
		Password:    hashed,
		Role:        role,
		CommunityID: req.CommunityID,
		Status:      "active",
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Users.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered"})
			return
		}
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.Users.GetUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if err != nil || !auth.CheckPasswordHash(req.Password, u.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if u.Status != "active" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not active"})
		return
	}

	token, err := h.Tokens.Generate(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}
