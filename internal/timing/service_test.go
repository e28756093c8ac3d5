package timing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/raceline/backend/internal/models"
	"github.com/raceline/backend/pkg/apperr"
)

// memStore is an in-memory Store mirroring the database guarantees, including
// the (event, dorsal) uniqueness constraint.
type memStore struct {
	events    map[uuid.UUID]*models.Event
	distances map[uuid.UUID]*models.EventDistance
	// registrationID -> distanceID, for the per-distance queries
	regDistance map[uuid.UUID]uuid.UUID
	results     map[uuid.UUID]*models.RaceResult // by result ID
}

func newMemStore() *memStore {
	return &memStore{
		events:      map[uuid.UUID]*models.Event{},
		distances:   map[uuid.UUID]*models.EventDistance{},
		regDistance: map[uuid.UUID]uuid.UUID{},
		results:     map[uuid.UUID]*models.RaceResult{},
	}
}

func (m *memStore) addEvent() uuid.UUID {
	id := uuid.New()
	m.events[id] = &models.Event{ID: id, Name: "Race", Type: models.EventOnSite, Date: time.Now()}
	return id
}

func (m *memStore) addDistance(eventID uuid.UUID, km float64) uuid.UUID {
	id := uuid.New()
	m.distances[id] = &models.EventDistance{ID: id, EventID: eventID, DistanceKm: km}
	return id
}

func (m *memStore) addResult(eventID, distanceID uuid.UUID) *models.RaceResult {
	regID := uuid.New()
	m.regDistance[regID] = distanceID
	res := &models.RaceResult{
		ID:             uuid.New(),
		RegistrationID: regID,
		EventID:        eventID,
		Registration:   &models.Registration{ID: regID, EventID: eventID, DistanceID: distanceID},
	}
	m.results[res.ID] = res
	return res
}

func (m *memStore) GetEvent(_ context.Context, id uuid.UUID) (*models.Event, error) {
	return m.events[id], nil
}

func (m *memStore) GetDistance(_ context.Context, id uuid.UUID) (*models.EventDistance, error) {
	return m.distances[id], nil
}

func (m *memStore) CountRegistrationsForDistance(_ context.Context, eventID, distanceID uuid.UUID) (int, error) {
	n := 0
	for _, res := range m.results {
		if res.EventID == eventID && m.regDistance[res.RegistrationID] == distanceID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SetStartTimes(_ context.Context, eventID, distanceID uuid.UUID, start time.Time) error {
	for _, res := range m.results {
		if res.EventID == eventID && m.regDistance[res.RegistrationID] == distanceID && res.StartTime == nil {
			t := start
			res.StartTime = &t
		}
	}
	return nil
}

func (m *memStore) ListResultsForDistance(_ context.Context, eventID, distanceID uuid.UUID) ([]models.RaceResult, error) {
	var out []models.RaceResult
	for _, res := range m.results {
		if res.EventID == eventID && m.regDistance[res.RegistrationID] == distanceID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *memStore) GetResultByDorsal(_ context.Context, eventID uuid.UUID, dorsal int) (*models.RaceResult, error) {
	for _, res := range m.results {
		if res.EventID == eventID && res.DorsalNumber != nil && *res.DorsalNumber == dorsal {
			return res, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetResultByRegistration(_ context.Context, registrationID uuid.UUID) (*models.RaceResult, error) {
	for _, res := range m.results {
		if res.RegistrationID == registrationID {
			return res, nil
		}
	}
	return nil, nil
}

func (m *memStore) DorsalTaken(_ context.Context, eventID uuid.UUID, dorsal int) (bool, error) {
	res, _ := m.GetResultByDorsal(context.Background(), eventID, dorsal)
	return res != nil, nil
}

func (m *memStore) SetDorsal(_ context.Context, resultID uuid.UUID, dorsal int) error {
	target := m.results[resultID]
	for _, res := range m.results {
		if res.ID != resultID && res.EventID == target.EventID && res.DorsalNumber != nil && *res.DorsalNumber == dorsal {
			return apperr.Conflict("dorsal number %d is already assigned for this event", dorsal)
		}
	}
	target.DorsalNumber = &dorsal
	return nil
}

func (m *memStore) SetFinish(_ context.Context, resultID uuid.UUID, finish time.Time, netSeconds *int) error {
	res := m.results[resultID]
	res.FinishTime = &finish
	res.NetTimeSeconds = netSeconds
	return nil
}

func TestStartDistanceTimer(t *testing.T) {
	m := newMemStore()
	eventID := m.addEvent()
	distanceID := m.addDistance(eventID, 10.0)
	r1 := m.addResult(eventID, distanceID)
	r2 := m.addResult(eventID, distanceID)

	// r2 already has a manually corrected start; the timer must not clobber it.
	manual := time.Date(2025, 6, 1, 8, 55, 0, 0, time.UTC)
	r2.StartTime = &manual

	engine := NewEngine(m)
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	results, err := engine.StartDistanceTimer(context.Background(), eventID, distanceID, start)
	if err != nil {
		t.Fatalf("start timer: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("returned %d results, want 2", len(results))
	}
	if r1.StartTime == nil || !r1.StartTime.Equal(start) {
		t.Errorf("r1 start = %v, want %v", r1.StartTime, start)
	}
	if !r2.StartTime.Equal(manual) {
		t.Errorf("r2 start = %v, want untouched %v", r2.StartTime, manual)
	}

	// Repeating the call changes nothing.
	later := start.Add(time.Hour)
	if _, err := engine.StartDistanceTimer(context.Background(), eventID, distanceID, later); err != nil {
		t.Fatalf("second start timer: %v", err)
	}
	if !r1.StartTime.Equal(start) {
		t.Errorf("r1 start after repeat = %v, want %v", r1.StartTime, start)
	}
}

func TestStartDistanceTimerNotFound(t *testing.T) {
	m := newMemStore()
	eventID := m.addEvent()
	distanceID := m.addDistance(eventID, 5.0)
	otherEvent := m.addEvent()

	engine := NewEngine(m)
	now := time.Now()

	tests := []struct {
		name               string
		event, distance    uuid.UUID
	}{
		{"unknown event", uuid.New(), distanceID},
		{"unknown distance", eventID, uuid.New()},
		{"distance of another event", otherEvent, distanceID},
		{"no registrations", eventID, distanceID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.StartDistanceTimer(context.Background(), tt.event, tt.distance, now)
			if !apperr.IsKind(err, apperr.KindNotFound) {
				t.Fatalf("got %v, want NotFound", err)
			}
		})
	}
}

func TestRecordFinishComputesNetTime(t *testing.T) {
	m := newMemStore()
	eventID := m.addEvent()
	distanceID := m.addDistance(eventID, 10.0)
	res := m.addResult(eventID, distanceID)
	dorsal := 101
	res.DorsalNumber = &dorsal
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	res.StartTime = &start

	engine := NewEngine(m)
	finish := start.Add(1800*time.Second + 700*time.Millisecond)
	updated, err := engine.RecordFinish(context.Background(), eventID, dorsal, finish)
	if err != nil {
		t.Fatalf("record finish: %v", err)
	}
	if updated.NetTimeSeconds == nil || *updated.NetTimeSeconds != 1800 {
		t.Fatalf("net time = %v, want 1800 (sub-second truncated)", updated.NetTimeSeconds)
	}
	if updated.Status() != models.ResultFinished {
		t.Errorf("status = %s, want finished", updated.Status())
	}
}

func TestRecordFinishWithoutStart(t *testing.T) {
	m := newMemStore()
	eventID := m.addEvent()
	distanceID := m.addDistance(eventID, 10.0)
	res := m.addResult(eventID, distanceID)
	dorsal := 7
	res.DorsalNumber = &dorsal

	engine := NewEngine(m)
	finish := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	updated, err := engine.RecordFinish(context.Background(), eventID, dorsal, finish)
	if err != nil {
		t.Fatalf("record finish: %v", err)
	}
	if updated.NetTimeSeconds != nil {
		t.Errorf("net time = %d, want unset", *updated.NetTimeSeconds)
	}
	if updated.FinishTime == nil || !updated.FinishTime.Equal(finish) {
		t.Errorf("finish time = %v, want %v", updated.FinishTime, finish)
	}
	if updated.Status() != models.ResultIncomplete {
		t.Errorf("status = %s, want incomplete", updated.Status())
	}
}

func TestRecordFinishErrors(t *testing.T) {
	m := newMemStore()
	eventID := m.addEvent()
	distanceID := m.addDistance(eventID, 10.0)
	res := m.addResult(eventID, distanceID)
	dorsal := 33
	res.DorsalNumber = &dorsal
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	res.StartTime = &start

	engine := NewEngine(m)
	ctx := context.Background()

	if _, err := engine.RecordFinish(ctx, eventID, 99, start.Add(time.Hour)); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown dorsal: got %v, want NotFound", err)
	}

	finish := start.Add(30 * time.Minute)
	if _, err := engine.RecordFinish(ctx, eventID, dorsal, finish); err != nil {
		t.Fatalf("first finish: %v", err)
	}
	_, err := engine.RecordFinish(ctx, eventID, dorsal, finish.Add(time.Minute))
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("second finish: got %v, want Conflict", err)
	}
	// The original finish and net time are untouched.
	if !res.FinishTime.Equal(finish) {
		t.Errorf("finish time = %v, want %v", res.FinishTime, finish)
	}
	if res.NetTimeSeconds == nil || *res.NetTimeSeconds != 1800 {
		t.Errorf("net time = %v, want 1800", res.NetTimeSeconds)
	}
}

func TestAssignDorsal(t *testing.T) {
	m := newMemStore()
	eventID := m.addEvent()
	distanceID := m.addDistance(eventID, 10.0)
	r1 := m.addResult(eventID, distanceID)
	r2 := m.addResult(eventID, distanceID)

	otherEvent := m.addEvent()
	otherDistance := m.addDistance(otherEvent, 10.0)
	r3 := m.addResult(otherEvent, otherDistance)

	engine := NewEngine(m)
	ctx := context.Background()

	updated, err := engine.AssignDorsal(ctx, eventID, r1.RegistrationID, 101)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.DorsalNumber == nil || *updated.DorsalNumber != 101 {
		t.Fatalf("dorsal = %v, want 101", updated.DorsalNumber)
	}

	// Same dorsal within the event is a conflict.
	if _, err := engine.AssignDorsal(ctx, eventID, r2.RegistrationID, 101); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("duplicate dorsal: got %v, want Conflict", err)
	}
	// Same dorsal in another event is fine.
	if _, err := engine.AssignDorsal(ctx, otherEvent, r3.RegistrationID, 101); err != nil {
		t.Fatalf("dorsal in other event: %v", err)
	}
	// Unknown registration.
	if _, err := engine.AssignDorsal(ctx, eventID, uuid.New(), 102); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown registration: got %v, want NotFound", err)
	}
	// Registration belonging to a different event.
	if _, err := engine.AssignDorsal(ctx, eventID, r3.RegistrationID, 103); !apperr.IsKind(err, apperr.KindBadRequest) {
		t.Fatalf("cross-event registration: got %v, want BadRequest", err)
	}
}
