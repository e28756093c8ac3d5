package results

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raceline/backend/pkg/response"
)

// Handler handles classified results, personal bests and leaderboards.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a results handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// EventResults handles GET /events/:id/results.
func (h *Handler) EventResults(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	classified, err := h.service.ClassifyResults(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("classify results failed", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Error(c, err)
		return
	}
	response.OK(c, classified)
}

// PersonalBests handles GET /athletes/:id/personal-bests.
func (h *Handler) PersonalBests(c *gin.Context) {
	athleteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid athlete id")
		return
	}
	bests, err := h.service.PersonalBests(c.Request.Context(), athleteID)
	if err != nil {
		h.logger.Error("personal bests failed", zap.Error(err), zap.Int64("athlete_id", athleteID))
		response.Error(c, err)
		return
	}
	response.OK(c, bests)
}

// YearlyLeaderboard handles GET /leaderboards/yearly?year=&top=.
// Omitting year ranks across all years.
func (h *Handler) YearlyLeaderboard(c *gin.Context) {
	var year *int
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "invalid year")
			return
		}
		year = &y
	}
	topN := 0
	if raw := c.Query("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, "invalid top")
			return
		}
		topN = n
	}
	leaderboard, err := h.service.YearlyLeaderboard(c.Request.Context(), year, topN)
	if err != nil {
		h.logger.Error("yearly leaderboard failed", zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, leaderboard)
}
