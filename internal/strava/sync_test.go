package strava

import (
	"context"
	"testing"
	"time"

	"github.com/raceline/backend/config"
	"github.com/raceline/backend/internal/models"
	"github.com/raceline/backend/pkg/apperr"
)

type fakeAPI struct {
	activities []Activity
	refreshed  int
	lastAfter  time.Time
}

func (f *fakeAPI) RefreshToken(_ context.Context, _ string) (*Token, error) {
	f.refreshed++
	return &Token{
		AccessToken:  "fresh-access",
		RefreshToken: "fresh-refresh",
		ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
	}, nil
}

func (f *fakeAPI) ListActivities(_ context.Context, _ string, after time.Time, page, perPage int) ([]Activity, error) {
	f.lastAfter = after
	start := (page - 1) * perPage
	if start >= len(f.activities) {
		return nil, nil
	}
	end := start + perPage
	if end > len(f.activities) {
		end = len(f.activities)
	}
	return f.activities[start:end], nil
}

type fakeSyncStore struct {
	athletes map[int64]*models.Athlete
	stored   map[string]models.VirtualResult
	latest   map[int64]time.Time
	tokens   int
}

func newFakeSyncStore() *fakeSyncStore {
	return &fakeSyncStore{
		athletes: make(map[int64]*models.Athlete),
		stored:   make(map[string]models.VirtualResult),
		latest:   make(map[int64]time.Time),
	}
}

func (f *fakeSyncStore) GetAthlete(_ context.Context, stravaID int64) (*models.Athlete, error) {
	return f.athletes[stravaID], nil
}

func (f *fakeSyncStore) SaveTokens(_ context.Context, stravaID int64, access, refresh string, expiresAt time.Time) error {
	f.tokens++
	if a := f.athletes[stravaID]; a != nil {
		a.AccessToken, a.RefreshToken, a.TokenExpiresAt = access, refresh, expiresAt
	}
	return nil
}

func (f *fakeSyncStore) LatestActivityDate(_ context.Context, stravaID int64) (*time.Time, error) {
	if t, ok := f.latest[stravaID]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeSyncStore) InsertVirtualResult(_ context.Context, vr models.VirtualResult) (bool, error) {
	if _, dup := f.stored[vr.StravaActivityID]; dup {
		return false, nil
	}
	f.stored[vr.StravaActivityID] = vr
	return true, nil
}

func testStravaConfig() config.StravaConfig {
	return config.StravaConfig{
		ActivityTypes: []string{"Run", "TrailRun", "VirtualRun"},
		LookbackDays:  30,
		SyncPageSize:  50,
	}
}

func runActivity(id int64, actType string, meters float64, seconds int) Activity {
	return Activity{
		ID:             id,
		Name:           "Morning Run",
		Type:           actType,
		DistanceMeters: meters,
		ElapsedTime:    seconds,
		StartDate:      time.Date(2025, 5, 10, 7, 0, 0, 0, time.UTC),
	}
}

func TestSyncAthleteImportsAndFilters(t *testing.T) {
	api := &fakeAPI{activities: []Activity{
		runActivity(1, "Run", 5050, 1500),      // kept, 5.05 km
		runActivity(2, "Ride", 20000, 3600),    // wrong type
		runActivity(3, "Run", 0, 1200),         // zero distance
		runActivity(4, "TrailRun", 7100, -5),    // non-positive time
		runActivity(5, "VirtualRun", 3020, 950), // kept
	}}
	store := newFakeSyncStore()
	store.athletes[42] = &models.Athlete{
		StravaID:       42,
		AccessToken:    "valid",
		RefreshToken:   "refresh",
		TokenExpiresAt: time.Now().Add(2 * time.Hour),
	}
	syncer := NewSyncer(api, store, testStravaConfig(), nil)

	summary, err := syncer.SyncAthlete(context.Background(), 42)
	if err != nil {
		t.Fatalf("SyncAthlete: %v", err)
	}
	if summary.Processed != 5 || summary.Imported != 2 || summary.Skipped != 3 {
		t.Errorf("summary = %+v, want processed 5 imported 2 skipped 3", summary)
	}
	kept, ok := store.stored["1"]
	if !ok {
		t.Fatal("activity 1 not stored")
	}
	if kept.DistanceKm != 5.05 || kept.ElapsedTimeSeconds != 1500 {
		t.Errorf("stored result = %+v, want 5.05 km / 1500 s", kept)
	}
	if api.refreshed != 0 {
		t.Errorf("token refreshed %d times with a valid access token", api.refreshed)
	}
}

func TestSyncAthleteSkipsDuplicates(t *testing.T) {
	api := &fakeAPI{activities: []Activity{
		runActivity(10, "Run", 10000, 3000),
		runActivity(11, "Run", 5000, 1500),
	}}
	store := newFakeSyncStore()
	store.athletes[42] = &models.Athlete{
		StravaID: 42, AccessToken: "valid", RefreshToken: "refresh",
		TokenExpiresAt: time.Now().Add(2 * time.Hour),
	}
	store.stored["10"] = models.VirtualResult{StravaActivityID: "10"}
	syncer := NewSyncer(api, store, testStravaConfig(), nil)

	summary, err := syncer.SyncAthlete(context.Background(), 42)
	if err != nil {
		t.Fatalf("SyncAthlete: %v", err)
	}
	if summary.Imported != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want imported 1 skipped 1", summary)
	}
	if len(store.stored) != 2 {
		t.Errorf("expected 2 stored results, got %d", len(store.stored))
	}
}

func TestSyncAthleteRefreshesExpiredToken(t *testing.T) {
	api := &fakeAPI{}
	store := newFakeSyncStore()
	store.athletes[42] = &models.Athlete{
		StravaID: 42, AccessToken: "stale", RefreshToken: "refresh",
		TokenExpiresAt: time.Now().Add(-time.Hour),
	}
	syncer := NewSyncer(api, store, testStravaConfig(), nil)

	if _, err := syncer.SyncAthlete(context.Background(), 42); err != nil {
		t.Fatalf("SyncAthlete: %v", err)
	}
	if api.refreshed != 1 {
		t.Errorf("expected 1 token refresh, got %d", api.refreshed)
	}
	if store.tokens != 1 {
		t.Errorf("expected refreshed tokens persisted once, got %d", store.tokens)
	}
	if a := store.athletes[42]; a.AccessToken != "fresh-access" {
		t.Errorf("access token not updated: %q", a.AccessToken)
	}
}

func TestSyncAthleteUsesLatestActivityAsCursor(t *testing.T) {
	api := &fakeAPI{}
	store := newFakeSyncStore()
	store.athletes[42] = &models.Athlete{
		StravaID: 42, AccessToken: "valid", RefreshToken: "refresh",
		TokenExpiresAt: time.Now().Add(2 * time.Hour),
	}
	latest := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	store.latest[42] = latest
	syncer := NewSyncer(api, store, testStravaConfig(), nil)

	if _, err := syncer.SyncAthlete(context.Background(), 42); err != nil {
		t.Fatalf("SyncAthlete: %v", err)
	}
	if !api.lastAfter.Equal(latest) {
		t.Errorf("after = %v, want latest stored activity date %v", api.lastAfter, latest)
	}
}

func TestSyncAthleteUnknownAthlete(t *testing.T) {
	syncer := NewSyncer(&fakeAPI{}, newFakeSyncStore(), testStravaConfig(), nil)
	_, err := syncer.SyncAthlete(context.Background(), 999)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}
