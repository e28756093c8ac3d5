package events

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raceline/backend/internal/models"
	"github.com/raceline/backend/pkg/response"
)

// CreateEventRequest is the body for POST /events.
type CreateEventRequest struct {
	Name              string    `json:"name" binding:"required"`
	Location          string    `json:"location,omitempty"`
	Type              string    `json:"type" binding:"required,oneof=on-site virtual"`
	Date              time.Time `json:"date" binding:"required"`
	StravaSyncEnabled bool      `json:"strava_sync_enabled"`
}

// UpdateEventRequest is the body for PATCH /events/:id. Nil fields are kept.
type UpdateEventRequest struct {
	Name              *string    `json:"name,omitempty"`
	Location          *string    `json:"location,omitempty"`
	Date              *time.Time `json:"date,omitempty"`
	StravaSyncEnabled *bool      `json:"strava_sync_enabled,omitempty"`
}

// AddCategoryRequest is the body for POST /events/:id/categories.
type AddCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddDistanceRequest is the body for POST /events/:id/distances.
type AddDistanceRequest struct {
	DistanceKm float64 `json:"distance_km" binding:"required,gt=0"`
}

// Handler handles event management HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list events failed", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id with nested categories and distances.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get event failed", zap.Error(err))
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := &models.Event{
		Name:              req.Name,
		Location:          req.Location,
		Type:              models.EventType(req.Type),
		Date:              req.Date,
		StravaSyncEnabled: req.StravaSyncEnabled,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// Update handles PATCH /events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get event failed", zap.Error(err))
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	if req.Name != nil {
		e.Name = *req.Name
	}
	if req.Location != nil {
		e.Location = *req.Location
	}
	if req.Date != nil {
		e.Date = *req.Date
	}
	if req.StravaSyncEnabled != nil {
		e.StravaSyncEnabled = *req.StravaSyncEnabled
	}
	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		h.logger.Error("update event failed", zap.Error(err))
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete event failed", zap.Error(err))
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// AddCategory handles POST /events/:id/categories.
func (h *Handler) AddCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req AddCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	cat := &models.EventCategory{EventID: id, Name: req.Name}
	if err := h.repo.AddCategory(c.Request.Context(), cat); err != nil {
		h.logger.Error("add category failed", zap.Error(err))
		response.Conflict(c, "category already exists for this event")
		return
	}
	response.Created(c, cat)
}

// AddDistance handles POST /events/:id/distances.
func (h *Handler) AddDistance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req AddDistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	d := &models.EventDistance{EventID: id, DistanceKm: req.DistanceKm}
	if err := h.repo.AddDistance(c.Request.Context(), d); err != nil {
		h.logger.Error("add distance failed", zap.Error(err))
		response.Conflict(c, "distance already exists for this event")
		return
	}
	response.Created(c, d)
}
