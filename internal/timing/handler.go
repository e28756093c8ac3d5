package timing

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raceline/backend/pkg/response"
)

// FinishBroadcaster pushes live timing events to spectators (the realtime hub).
type FinishBroadcaster interface {
	BroadcastToEvent(eventID uuid.UUID, event string, payload interface{})
}

// StartTimerRequest is the body for POST /events/:id/distances/:distanceId/start-timer.
// StartTime defaults to now.
type StartTimerRequest struct {
	StartTime *time.Time `json:"start_time,omitempty"`
}

// RecordFinishRequest is the body for POST /events/:id/finishes.
type RecordFinishRequest struct {
	DorsalNumber int        `json:"dorsal_number" binding:"required"`
	FinishTime   *time.Time `json:"finish_time,omitempty"` // defaults to now
}

// AssignDorsalRequest is the body for POST /events/:id/registrations/:regId/dorsal.
type AssignDorsalRequest struct {
	DorsalNumber int `json:"dorsal_number" binding:"required,gt=0"`
}

// Handler handles race-day timing endpoints.
type Handler struct {
	engine *Engine
	hub    FinishBroadcaster
	logger *zap.Logger
}

// NewHandler creates a timing handler. hub may be nil (no live feed).
func NewHandler(engine *Engine, hub FinishBroadcaster, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, hub: hub, logger: logger}
}

// StartTimer handles POST /events/:id/distances/:distanceId/start-timer.
func (h *Handler) StartTimer(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	distanceID, err := uuid.Parse(c.Param("distanceId"))
	if err != nil {
		response.BadRequest(c, "invalid distance id")
		return
	}
	var req StartTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	start := time.Now().UTC()
	if req.StartTime != nil {
		start = *req.StartTime
	}
	results, err := h.engine.StartDistanceTimer(c.Request.Context(), eventID, distanceID, start)
	if err != nil {
		h.logger.Warn("start timer rejected", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Error(c, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastToEvent(eventID, "timer_started", gin.H{
			"distance_id": distanceID,
			"start_time":  start,
		})
	}
	response.OK(c, results)
}

// RecordFinish handles POST /events/:id/finishes.
func (h *Handler) RecordFinish(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req RecordFinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	finish := time.Now().UTC()
	if req.FinishTime != nil {
		finish = *req.FinishTime
	}
	result, err := h.engine.RecordFinish(c.Request.Context(), eventID, req.DorsalNumber, finish)
	if err != nil {
		h.logger.Warn("record finish rejected", zap.Error(err),
			zap.String("event_id", eventID.String()), zap.Int("dorsal", req.DorsalNumber))
		response.Error(c, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastToEvent(eventID, "finish_recorded", result)
	}
	response.OK(c, result)
}

// AssignDorsal handles POST /events/:id/registrations/:regId/dorsal.
func (h *Handler) AssignDorsal(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	regID, err := uuid.Parse(c.Param("regId"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	var req AssignDorsalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	result, err := h.engine.AssignDorsal(c.Request.Context(), eventID, regID, req.DorsalNumber)
	if err != nil {
		h.logger.Warn("assign dorsal rejected", zap.Error(err),
			zap.String("event_id", eventID.String()), zap.Int("dorsal", req.DorsalNumber))
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
