package registrations

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/raceline/backend/internal/models"
	"github.com/raceline/backend/pkg/apperr"
)

type fakeStore struct {
	events     map[uuid.UUID]*models.Event
	categories map[uuid.UUID]*models.EventCategory
	distances  map[uuid.UUID]*models.EventDistance
	athletes   map[int64]bool
	existing   map[string]bool // athlete|event|cat|dist
	created    []*models.Registration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:     map[uuid.UUID]*models.Event{},
		categories: map[uuid.UUID]*models.EventCategory{},
		distances:  map[uuid.UUID]*models.EventDistance{},
		athletes:   map[int64]bool{},
		existing:   map[string]bool{},
	}
}

func tupleKey(athleteID int64, eventID, catID, distID uuid.UUID) string {
	return fmt.Sprintf("%d|%s|%s|%s", athleteID, eventID, catID, distID)
}

func (f *fakeStore) GetEvent(_ context.Context, id uuid.UUID) (*models.Event, error) {
	return f.events[id], nil
}
func (f *fakeStore) GetCategory(_ context.Context, id uuid.UUID) (*models.EventCategory, error) {
	return f.categories[id], nil
}
func (f *fakeStore) GetDistance(_ context.Context, id uuid.UUID) (*models.EventDistance, error) {
	return f.distances[id], nil
}
func (f *fakeStore) AthleteExists(_ context.Context, id int64) (bool, error) {
	return f.athletes[id], nil
}
func (f *fakeStore) RegistrationExists(_ context.Context, athleteID int64, eventID, catID, distID uuid.UUID) (bool, error) {
	return f.existing[tupleKey(athleteID, eventID, catID, distID)], nil
}
func (f *fakeStore) CreateWithResult(_ context.Context, reg *models.Registration) error {
	reg.ID = uuid.New()
	reg.Status = models.RegistrationPending
	f.created = append(f.created, reg)
	f.existing[tupleKey(reg.AthleteStravaID, reg.EventID, reg.CategoryID, reg.DistanceID)] = true
	return nil
}
func (f *fakeStore) GetWithContext(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	for _, r := range f.created {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func seedStore() (*fakeStore, CreateParams) {
	f := newFakeStore()
	eventID, catID, distID := uuid.New(), uuid.New(), uuid.New()
	f.events[eventID] = &models.Event{ID: eventID, Name: "City Run"}
	f.categories[catID] = &models.EventCategory{ID: catID, EventID: eventID, Name: "Elite"}
	f.distances[distID] = &models.EventDistance{ID: distID, EventID: eventID, DistanceKm: 10.0}
	f.athletes[42] = true
	return f, CreateParams{AthleteStravaID: 42, EventID: eventID, CategoryID: catID, DistanceID: distID}
}

func TestCreateRegistration(t *testing.T) {
	f, p := seedStore()
	svc := NewService(f)

	reg, err := svc.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if reg.Status != models.RegistrationPending {
		t.Errorf("status = %s, want pending", reg.Status)
	}
	if len(f.created) != 1 {
		t.Fatalf("created %d registrations, want 1", len(f.created))
	}
}

func TestCreateRegistrationDuplicate(t *testing.T) {
	f, p := seedStore()
	svc := NewService(f)

	if _, err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(context.Background(), p)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("duplicate create: got %v, want Conflict", err)
	}
}

func TestCreateRegistrationValidation(t *testing.T) {
	f, p := seedStore()
	svc := NewService(f)

	otherEvent := uuid.New()
	f.events[otherEvent] = &models.Event{ID: otherEvent, Name: "Other"}

	tests := []struct {
		name   string
		mutate func(*CreateParams)
		kind   apperr.Kind
	}{
		{"unknown athlete", func(q *CreateParams) { q.AthleteStravaID = 7 }, apperr.KindNotFound},
		{"unknown event", func(q *CreateParams) { q.EventID = uuid.New() }, apperr.KindNotFound},
		{"unknown category", func(q *CreateParams) { q.CategoryID = uuid.New() }, apperr.KindBadRequest},
		{"unknown distance", func(q *CreateParams) { q.DistanceID = uuid.New() }, apperr.KindBadRequest},
		{"category of another event", func(q *CreateParams) {
			id := uuid.New()
			f.categories[id] = &models.EventCategory{ID: id, EventID: otherEvent, Name: "Elite"}
			q.CategoryID = id
		}, apperr.KindBadRequest},
		{"distance of another event", func(q *CreateParams) {
			id := uuid.New()
			f.distances[id] = &models.EventDistance{ID: id, EventID: otherEvent, DistanceKm: 5}
			q.DistanceID = id
		}, apperr.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := p
			tt.mutate(&q)
			_, err := svc.Create(context.Background(), q)
			if !apperr.IsKind(err, tt.kind) {
				t.Fatalf("got %v, want kind %d", err, tt.kind)
			}
		})
	}
}
