package strava

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/raceline/backend/internal/models"
	"github.com/raceline/backend/pkg/queue"
	"github.com/raceline/backend/pkg/response"
)

// Handler handles athlete and activity-sync endpoints.
type Handler struct {
	syncer *Syncer
	repo   *Repository
	jobs   *queue.Queue
	logger *zap.Logger
}

// NewHandler creates a strava handler. jobs may be nil (no background mode).
func NewHandler(syncer *Syncer, repo *Repository, jobs *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{syncer: syncer, repo: repo, jobs: jobs, logger: logger}
}

// UpsertAthleteRequest is the body for PUT /athletes. Tokens are optional;
// an athlete without tokens can register but not sync.
type UpsertAthleteRequest struct {
	StravaID          int64      `json:"strava_id" binding:"required"`
	Username          string     `json:"username"`
	FirstName         string     `json:"firstname"`
	LastName          string     `json:"lastname"`
	ProfilePictureURL string     `json:"profile_picture_url"`
	AccessToken       string     `json:"access_token"`
	RefreshToken      string     `json:"refresh_token"`
	TokenExpiresAt    *time.Time `json:"token_expires_at"`
}

// UpsertAthlete handles PUT /athletes, creating or refreshing an athlete.
func (h *Handler) UpsertAthlete(c *gin.Context) {
	var req UpsertAthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	athlete := models.Athlete{
		StravaID:          req.StravaID,
		Username:          req.Username,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		ProfilePictureURL: req.ProfilePictureURL,
		AccessToken:       req.AccessToken,
		RefreshToken:      req.RefreshToken,
	}
	if req.TokenExpiresAt != nil {
		athlete.TokenExpiresAt = *req.TokenExpiresAt
	}
	if err := h.repo.UpsertAthlete(c.Request.Context(), &athlete); err != nil {
		h.logger.Error("upsert athlete failed", zap.Error(err), zap.Int64("strava_id", req.StravaID))
		response.Error(c, err)
		return
	}
	response.OK(c, athlete)
}

// GetAthlete handles GET /athletes/:id.
func (h *Handler) GetAthlete(c *gin.Context) {
	athleteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid athlete id")
		return
	}
	athlete, err := h.repo.GetAthlete(c.Request.Context(), athleteID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if athlete == nil {
		response.NotFound(c, "athlete not found")
		return
	}
	response.OK(c, athlete)
}

// ListAthletes handles GET /athletes.
func (h *Handler) ListAthletes(c *gin.Context) {
	athletes, err := h.repo.ListAthletes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, athletes)
}

// Sync handles POST /athletes/:id/sync, running the import inline and
// returning the summary.
func (h *Handler) Sync(c *gin.Context) {
	athleteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid athlete id")
		return
	}
	summary, err := h.syncer.SyncAthlete(c.Request.Context(), athleteID)
	if err != nil {
		h.logger.Warn("inline activity sync failed", zap.Error(err), zap.Int64("athlete_id", athleteID))
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// EnqueueSync handles POST /athletes/:id/sync-jobs, queueing the import for
// the background worker.
func (h *Handler) EnqueueSync(c *gin.Context) {
	athleteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid athlete id")
		return
	}
	if h.jobs == nil {
		response.BadRequest(c, "background sync is not enabled")
		return
	}
	if err := h.jobs.EnqueueActivitySync(c.Request.Context(), queue.ActivitySyncPayload{AthleteStravaID: athleteID}); err != nil {
		h.logger.Error("enqueue activity sync failed", zap.Error(err), zap.Int64("athlete_id", athleteID))
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"athlete_strava_id": athleteID, "status": "queued"})
}
