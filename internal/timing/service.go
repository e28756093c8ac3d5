// Package timing implements the race-day timing engine: per-distance timer
// starts, dorsal assignment, and finish recording with net-time computation.
package timing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raceline/backend/internal/models"
	"github.com/raceline/backend/pkg/apperr"
)

// Store is the persistence surface the timing engine needs. Implementations
// must translate store-level uniqueness violations on dorsal assignment into
// apperr.Conflict; the engine's own duplicate check is a fast path only.
type Store interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetDistance(ctx context.Context, id uuid.UUID) (*models.EventDistance, error)
	CountRegistrationsForDistance(ctx context.Context, eventID, distanceID uuid.UUID) (int, error)
	// SetStartTimes sets start_time for every result of (event, distance)
	// whose start_time is still unset.
	SetStartTimes(ctx context.Context, eventID, distanceID uuid.UUID, start time.Time) error
	ListResultsForDistance(ctx context.Context, eventID, distanceID uuid.UUID) ([]models.RaceResult, error)
	GetResultByDorsal(ctx context.Context, eventID uuid.UUID, dorsal int) (*models.RaceResult, error)
	GetResultByRegistration(ctx context.Context, registrationID uuid.UUID) (*models.RaceResult, error)
	DorsalTaken(ctx context.Context, eventID uuid.UUID, dorsal int) (bool, error)
	SetDorsal(ctx context.Context, resultID uuid.UUID, dorsal int) error
	SetFinish(ctx context.Context, resultID uuid.UUID, finish time.Time, netSeconds *int) error
}

// Engine runs timing operations against the store. All operations are
// request-scoped; the engine holds no state between calls.
type Engine struct {
	store Store
}

// NewEngine creates a timing engine.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// StartDistanceTimer stamps start_time on every result registered for the
// given (event, distance). Results whose start time is already set are left
// untouched, so repeated calls are idempotent and manual corrections survive.
// Returns every result of the pairing, including previously started ones.
func (e *Engine) StartDistanceTimer(ctx context.Context, eventID, distanceID uuid.UUID, start time.Time) ([]models.RaceResult, error) {
	event, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, apperr.NotFound("event not found")
	}
	distance, err := e.store.GetDistance(ctx, distanceID)
	if err != nil {
		return nil, fmt.Errorf("load distance: %w", err)
	}
	if distance == nil || distance.EventID != eventID {
		return nil, apperr.NotFound("event distance not found or not related to this event")
	}
	count, err := e.store.CountRegistrationsForDistance(ctx, eventID, distanceID)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	if count == 0 {
		return nil, apperr.NotFound("no registrations found for this event/distance")
	}
	if err := e.store.SetStartTimes(ctx, eventID, distanceID, start); err != nil {
		return nil, fmt.Errorf("set start times: %w", err)
	}
	results, err := e.store.ListResultsForDistance(ctx, eventID, distanceID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// RecordFinish stamps the finish time on the result wearing the given dorsal
// in the event and derives net time in whole seconds when a start time is
// present. A finish is terminal: re-recording the same dorsal is rejected.
// A finish with no prior start is stored with net time unset; the result then
// reports the incomplete status.
func (e *Engine) RecordFinish(ctx context.Context, eventID uuid.UUID, dorsal int, finish time.Time) (*models.RaceResult, error) {
	result, err := e.store.GetResultByDorsal(ctx, eventID, dorsal)
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	if result == nil {
		return nil, apperr.NotFound("race result for dorsal %d in this event not found", dorsal)
	}
	if result.FinishTime != nil {
		return nil, apperr.Conflict("finish time for dorsal %d already recorded", dorsal)
	}

	var netSeconds *int
	if result.StartTime != nil {
		n := int(finish.Sub(*result.StartTime) / time.Second)
		netSeconds = &n
	}
	if err := e.store.SetFinish(ctx, result.ID, finish, netSeconds); err != nil {
		return nil, fmt.Errorf("set finish: %w", err)
	}
	result.FinishTime = &finish
	result.NetTimeSeconds = netSeconds
	return result, nil
}

// AssignDorsal assigns a dorsal number to the result of a registration. The
// dorsal must be free within the event; the registration must belong to it.
func (e *Engine) AssignDorsal(ctx context.Context, eventID, registrationID uuid.UUID, dorsal int) (*models.RaceResult, error) {
	taken, err := e.store.DorsalTaken(ctx, eventID, dorsal)
	if err != nil {
		return nil, fmt.Errorf("check dorsal: %w", err)
	}
	if taken {
		return nil, apperr.Conflict("dorsal number %d is already assigned for this event", dorsal)
	}
	result, err := e.store.GetResultByRegistration(ctx, registrationID)
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	if result == nil {
		return nil, apperr.NotFound("race result for registration not found")
	}
	if result.EventID != eventID {
		return nil, apperr.BadRequest("registration does not belong to the specified event")
	}
	if err := e.store.SetDorsal(ctx, result.ID, dorsal); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("set dorsal: %w", err)
	}
	result.DorsalNumber = &dorsal
	return result, nil
}
