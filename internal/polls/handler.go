package polls

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quickpoll/backend/internal/middleware"
	"github.com/quickpoll/backend/pkg/response"
)

// CreateRequest is the body for POST /api/polls.
type CreateRequest struct {
	Title              string   `json:"title"`
	Options            []string `json:"options"`
	AllowMultipleVotes bool     `json:"allowMultipleVotes"`
}

// VoteRequest is the body for POST /api/polls/:id/vote. Exactly one field must be set.
type VoteRequest struct {
	OptionIndex   *int  `json:"optionIndex"`
	OptionIndexes []int `json:"optionIndexes"`
}

// Indices normalizes the request into one list of option indices.
func (r VoteRequest) Indices() ([]int, error) {
	switch {
	case r.OptionIndex != nil && r.OptionIndexes != nil:
		return nil, invalid("send either optionIndex or optionIndexes, not both")
	case r.OptionIndex != nil:
		return []int{*r.OptionIndex}, nil
	case r.OptionIndexes != nil:
		return r.OptionIndexes, nil
	default:
		return nil, invalid("optionIndex or optionIndexes is required")
	}
}

// CommentRequest is the body for POST /api/polls/:id/comment.
type CommentRequest struct {
	Text string `json:"text"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a polls handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the poll routes. auth guards the mutating ones.
func (h *Handler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	g := r.Group("/polls")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/results", h.Results)
	g.POST("", auth, h.Create)
	g.POST("/:id/vote", auth, h.Vote)
	g.POST("/:id/comment", auth, h.Comment)
}

// Create handles POST /api/polls.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), userID, CreateInput{
		Title:              req.Title,
		Options:            req.Options,
		AllowMultipleVotes: req.AllowMultipleVotes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, p)
}

// List handles GET /api/polls.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /api/polls/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, p)
}

// Results handles GET /api/polls/:id/results.
func (h *Handler) Results(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	res, err := h.svc.Results(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, res)
}

// Vote handles POST /api/polls/:id/vote.
func (h *Handler) Vote(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	indices, err := req.Indices()
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.svc.Vote(c.Request.Context(), userID, id, indices)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, p)
}

// Comment handles POST /api/polls/:id/comment.
func (h *Handler) Comment(c *gin.Context) {
	id, ok := pollID(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.Comment(c.Request.Context(), userID, id, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrAlreadyVoted), errors.Is(err, ErrDuplicateVote):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "poll not found")
	case errors.Is(err, ErrConflict), errors.Is(err, ErrStorageTimeout):
		h.logger.Warn("poll request not completed", zap.String("path", c.FullPath()), zap.Error(err))
		response.ServiceUnavailable(c, "poll is busy, please retry")
	default:
		h.logger.Error("poll request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, "server error")
	}
}

// pollID parses :id; a malformed id cannot name a poll, so it is a 404.
func pollID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "poll not found")
		return uuid.Nil, false
	}
	return id, true
}
