package registrations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/raceline/backend/internal/models"
	"github.com/raceline/backend/pkg/response"
	"github.com/raceline/backend/pkg/storage"
)

// RegisterRequest is the body for POST /events/:id/registrations.
type RegisterRequest struct {
	AthleteStravaID int64     `json:"athlete_strava_id" binding:"required"`
	CategoryID      uuid.UUID `json:"category_id" binding:"required"`
	DistanceID      uuid.UUID `json:"distance_id" binding:"required"`
}

// UpdateStatusRequest is the body for PATCH /registrations/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed cancelled"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	service *Service
	repo    *Repository
	s3      *storage.S3
	logger  *zap.Logger
}

// NewHandler creates a registrations handler. s3 may be nil (uploads disabled).
func NewHandler(service *Service, repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, s3: s3, logger: logger}
}

// Register handles POST /events/:id/registrations.
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg, err := h.service.Create(c.Request.Context(), CreateParams{
		AthleteStravaID: req.AthleteStravaID,
		EventID:         eventID,
		CategoryID:      req.CategoryID,
		DistanceID:      req.DistanceID,
	})
	if err != nil {
		h.logger.Warn("create registration rejected", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// ListByEvent handles GET /events/:id/registrations.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// UpdateStatus handles PATCH /registrations/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	err = h.repo.UpdateStatus(c.Request.Context(), id, models.RegistrationStatus(req.Status))
	if errors.Is(err, pgx.ErrNoRows) {
		response.NotFound(c, "registration not found")
		return
	}
	if err != nil {
		h.logger.Error("update status failed", zap.Error(err))
		response.Internal(c, "failed to update status")
		return
	}
	response.OK(c, gin.H{"id": id, "status": req.Status})
}

// UploadPaymentProof handles POST /registrations/:id/payment-proof (multipart).
func (h *Handler) UploadPaymentProof(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "uploads not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	reg, err := h.repo.GetWithContext(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load registration")
		return
	}
	if reg == nil {
		response.NotFound(c, "registration not found")
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file required")
		return
	}
	if fileHeader.Size > storage.MaxProofFileSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateProofFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read file")
		return
	}
	defer f.Close()

	key := storage.PaymentProofKey(id.String(), fileHeader.Filename)
	if _, err := h.s3.Upload(c.Request.Context(), key, contentType, f); err != nil {
		h.logger.Error("payment proof upload failed", zap.Error(err), zap.String("registration_id", id.String()))
		response.Internal(c, "upload failed")
		return
	}
	if err := h.repo.SetPaymentProofKey(c.Request.Context(), id, key); err != nil {
		h.logger.Error("store payment proof key failed", zap.Error(err))
		response.Internal(c, "upload failed")
		return
	}
	response.OK(c, gin.H{"registration_id": id, "payment_proof_key": key})
}

// PaymentProofURL handles GET /registrations/:id/payment-proof-url.
func (h *Handler) PaymentProofURL(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "uploads not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	reg, err := h.repo.GetWithContext(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load registration")
		return
	}
	if reg == nil {
		response.NotFound(c, "registration not found")
		return
	}
	if reg.PaymentProofKey == "" {
		response.NotFound(c, "no payment proof uploaded")
		return
	}
	url, err := h.s3.PresignDownload(c.Request.Context(), reg.PaymentProofKey)
	if err != nil {
		h.logger.Error("presign failed", zap.Error(err))
		response.Internal(c, "failed to generate url")
		return
	}
	response.OK(c, gin.H{"url": url})
}
