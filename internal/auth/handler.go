package auth

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quickpoll/backend/internal/models"
	"github.com/quickpoll/backend/pkg/response"
	"github.com/quickpoll/backend/pkg/utils"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SignupRequest is the body for POST /api/auth/signup.
type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   UserStore
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo UserStore, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Signup handles POST /api/auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" {
		response.BadRequest(c, "name is required")
		return
	}
	if !emailPattern.MatchString(email) {
		response.BadRequest(c, "invalid email address")
		return
	}

	_, err := h.repo.GetByEmail(c.Request.Context(), email)
	if err == nil {
		response.BadRequest(c, ErrEmailTaken.Error())
		return
	}
	if !errors.Is(err, ErrUserNotFound) {
		h.logger.Error("signup lookup", zap.Error(err))
		response.Internal(c, "server error")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		response.BadRequest(c, "password is too long")
		return
	}
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), name, email, hash)
	if errors.Is(err, ErrEmailTaken) {
		response.BadRequest(c, ErrEmailTaken.Error())
		return
	}
	if err != nil {
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	h.logger.Info("user signed up", zap.String("user_id", user.ID.String()))
	h.issue(c, user, true)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		h.logger.Error("login lookup", zap.Error(err))
		response.Internal(c, "server error")
		return
	}
	if err != nil || !utils.CheckPassword(req.Password, user.Password) {
		response.BadRequest(c, "invalid credentials")
		return
	}
	h.issue(c, user, false)
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if errors.Is(err, ErrUserNotFound) {
		response.NotFound(c, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("load current user", zap.Error(err))
		response.Internal(c, "server error")
		return
	}
	response.OK(c, user.ToPublic())
}

func (h *Handler) issue(c *gin.Context, user *models.User, created bool) {
	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	body := TokenResponse{Token: token, User: user.ToPublic()}
	if created {
		response.Created(c, body)
		return
	}
	response.OK(c, body)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
