package registrations

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/raceline/backend/internal/models"
	"github.com/raceline/backend/pkg/apperr"
)

// Store is the persistence surface the registration service needs.
type Store interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.EventCategory, error)
	GetDistance(ctx context.Context, id uuid.UUID) (*models.EventDistance, error)
	AthleteExists(ctx context.Context, stravaID int64) (bool, error)
	RegistrationExists(ctx context.Context, athleteID int64, eventID, categoryID, distanceID uuid.UUID) (bool, error)
	// CreateWithResult inserts the registration and its 1:1 race result in
	// one transaction, filling in ID, status and registered_at.
	CreateWithResult(ctx context.Context, reg *models.Registration) error
	GetWithContext(ctx context.Context, id uuid.UUID) (*models.Registration, error)
}

// Service creates registrations with full relational validation.
type Service struct {
	store Store
}

// NewService creates a registration service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateParams identifies the (athlete, event, category, distance) tuple.
type CreateParams struct {
	AthleteStravaID int64
	EventID         uuid.UUID
	CategoryID      uuid.UUID
	DistanceID      uuid.UUID
}

// Create registers an athlete for one event/category/distance combination and
// creates the empty RaceResult alongside it. The category and distance must
// belong to the event; duplicates of the full tuple are rejected.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Registration, error) {
	ok, err := s.store.AthleteExists(ctx, p.AthleteStravaID)
	if err != nil {
		return nil, fmt.Errorf("check athlete: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("athlete %d not found", p.AthleteStravaID)
	}

	event, err := s.store.GetEvent(ctx, p.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return nil, apperr.NotFound("event not found")
	}

	category, err := s.store.GetCategory(ctx, p.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	if category == nil || category.EventID != event.ID {
		return nil, apperr.BadRequest("invalid category for this event")
	}

	distance, err := s.store.GetDistance(ctx, p.DistanceID)
	if err != nil {
		return nil, fmt.Errorf("load distance: %w", err)
	}
	if distance == nil || distance.EventID != event.ID {
		return nil, apperr.BadRequest("invalid distance for this event")
	}

	exists, err := s.store.RegistrationExists(ctx, p.AthleteStravaID, p.EventID, p.CategoryID, p.DistanceID)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("already registered for this event/category/distance")
	}

	reg := &models.Registration{
		AthleteStravaID: p.AthleteStravaID,
		EventID:         p.EventID,
		CategoryID:      p.CategoryID,
		DistanceID:      p.DistanceID,
	}
	if err := s.store.CreateWithResult(ctx, reg); err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}

	loaded, err := s.store.GetWithContext(ctx, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("reload registration: %w", err)
	}
	if loaded == nil {
		return reg, nil
	}
	return loaded, nil
}
