package results

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/raceline/backend/internal/models"
)

type fakeStore struct {
	finished   []models.RaceResult
	activities []Activity
}

func (f *fakeStore) FinishedResultsByEvent(_ context.Context, eventID uuid.UUID) ([]models.RaceResult, error) {
	var out []models.RaceResult
	for _, r := range f.finished {
		if r.EventID == eventID && r.NetTimeSeconds != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) RaceActivities(_ context.Context, athleteID *int64, year *int) ([]Activity, error) {
	return f.filter(SourceRace, athleteID, year), nil
}

func (f *fakeStore) VirtualActivities(_ context.Context, athleteID *int64, year *int) ([]Activity, error) {
	return f.filter(SourceVirtual, athleteID, year), nil
}

func (f *fakeStore) filter(source Source, athleteID *int64, year *int) []Activity {
	var out []Activity
	for _, a := range f.activities {
		if a.Source != source {
			continue
		}
		if athleteID != nil && a.AthleteStravaID != *athleteID {
			continue
		}
		if year != nil && a.Date.Year() != *year {
			continue
		}
		out = append(out, a)
	}
	return out
}

func testConfig() Config {
	return Config{
		StandardDistancesKm: []float64{1, 3, 5, 7, 10, 12},
		ToleranceKm:         0.1,
		TopN:                10,
	}
}

func finishedResult(eventID uuid.UUID, category string, distanceKm float64, netSeconds int) models.RaceResult {
	net := netSeconds
	return models.RaceResult{
		ID:             uuid.New(),
		EventID:        eventID,
		NetTimeSeconds: &net,
		Registration: &models.Registration{
			ID:       uuid.New(),
			EventID:  eventID,
			Category: &models.EventCategory{Name: category},
			Distance: &models.EventDistance{DistanceKm: distanceKm},
		},
	}
}

func TestDistanceLabel(t *testing.T) {
	cases := []struct {
		km   float64
		want string
	}{
		{1, "1.0 km"},
		{5, "5.0 km"},
		{10, "10.0 km"},
		{21.1, "21.1 km"},
		{10.05, "10.05 km"},
	}
	for _, tc := range cases {
		if got := DistanceLabel(tc.km); got != tc.want {
			t.Errorf("DistanceLabel(%v) = %q, want %q", tc.km, got, tc.want)
		}
	}
}

func TestClassifyResultsGroupsAndOrders(t *testing.T) {
	eventID := uuid.New()
	store := &fakeStore{finished: []models.RaceResult{
		finishedResult(eventID, "Senior", 10, 2500),
		finishedResult(eventID, "Senior", 10, 2400),
		finishedResult(eventID, "Senior", 5, 1300),
		finishedResult(eventID, "Veteran", 10, 2600),
		finishedResult(uuid.New(), "Senior", 10, 100), // other event
	}}
	svc := NewService(store, testConfig())

	classified, err := svc.ClassifyResults(context.Background(), eventID)
	if err != nil {
		t.Fatalf("ClassifyResults: %v", err)
	}
	if len(classified) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(classified))
	}
	senior10 := classified["Senior"]["10.0 km"]
	if len(senior10) != 2 {
		t.Fatalf("expected 2 Senior 10.0 km finishers, got %d", len(senior10))
	}
	if *senior10[0].NetTimeSeconds != 2400 || *senior10[1].NetTimeSeconds != 2500 {
		t.Errorf("Senior 10.0 km not ordered by net time: %d, %d",
			*senior10[0].NetTimeSeconds, *senior10[1].NetTimeSeconds)
	}
	if got := len(classified["Senior"]["5.0 km"]); got != 1 {
		t.Errorf("expected 1 Senior 5.0 km finisher, got %d", got)
	}
	if got := len(classified["Veteran"]["10.0 km"]); got != 1 {
		t.Errorf("expected 1 Veteran 10.0 km finisher, got %d", got)
	}
}

func TestClassifyResultsEmptyEvent(t *testing.T) {
	svc := NewService(&fakeStore{}, testConfig())
	classified, err := svc.ClassifyResults(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("ClassifyResults: %v", err)
	}
	if len(classified) != 0 {
		t.Errorf("expected empty classification, got %v", classified)
	}
}

func TestPersonalBestsPicksFastestPaceAcrossSources(t *testing.T) {
	day := time.Date(2025, 4, 12, 9, 0, 0, 0, time.UTC)
	store := &fakeStore{activities: []Activity{
		// 5 km bucket: the race is a touch shorter but clearly faster per km.
		{AthleteStravaID: 7, AthleteName: "Ana Silva", TimeSeconds: 1500, DistanceKm: 5.05, Name: "Spring Virtual 5K", Date: day, Source: SourceVirtual},
		{AthleteStravaID: 7, AthleteName: "Ana Silva", TimeSeconds: 1400, DistanceKm: 4.98, Name: "City Night Run", Date: day.AddDate(0, 1, 0), Source: SourceRace},
		// 10 km bucket, single entry.
		{AthleteStravaID: 7, AthleteName: "Ana Silva", TimeSeconds: 3000, DistanceKm: 10.0, Name: "Harbor 10K", Date: day, Source: SourceRace},
		// Outside every bucket.
		{AthleteStravaID: 7, AthleteName: "Ana Silva", TimeSeconds: 5000, DistanceKm: 15.0, Name: "Long One", Date: day, Source: SourceVirtual},
		// Another athlete, must not leak in.
		{AthleteStravaID: 8, AthleteName: "Ben Kato", TimeSeconds: 1200, DistanceKm: 5.0, Name: "Fast 5K", Date: day, Source: SourceRace},
	}}
	svc := NewService(store, testConfig())

	bests, err := svc.PersonalBests(context.Background(), 7)
	if err != nil {
		t.Fatalf("PersonalBests: %v", err)
	}
	if len(bests) != 2 {
		t.Fatalf("expected bests for 2 buckets, got %d: %v", len(bests), bests)
	}
	five, ok := bests["5.0 km"]
	if !ok {
		t.Fatal("missing 5.0 km best")
	}
	if five.ActivityName != "City Night Run" || five.Source != SourceRace {
		t.Errorf("expected the race to win the 5.0 km bucket, got %+v", five)
	}
	if five.PaceSecondsPerKm == nil {
		t.Fatal("expected pace on 5.0 km best")
	}
	wantPace := 1400.0 / 4.98
	if diff := *five.PaceSecondsPerKm - wantPace; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("pace = %v, want %v", *five.PaceSecondsPerKm, wantPace)
	}
	if ten := bests["10.0 km"]; ten.ActivityName != "Harbor 10K" {
		t.Errorf("unexpected 10.0 km best: %+v", ten)
	}
	if _, ok := bests["12.0 km"]; ok {
		t.Error("12.0 km bucket should be absent with no qualifying activity")
	}
}

func TestBucketTolerance(t *testing.T) {
	svc := NewService(&fakeStore{}, testConfig())
	cases := []struct {
		distance float64
		standard float64
		want     bool
	}{
		{5.1, 5, true},
		{4.9, 5, true},
		{5.11, 5, false},
		{4.89, 5, false},
		{10.0, 10, true},
	}
	for _, tc := range cases {
		if got := svc.inBucket(tc.distance, tc.standard); got != tc.want {
			t.Errorf("inBucket(%v, %v) = %v, want %v", tc.distance, tc.standard, got, tc.want)
		}
	}
}

func TestYearlyLeaderboardRanksBestPerAthlete(t *testing.T) {
	y2025 := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	y2024 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{activities: []Activity{
		// Athlete 1: two 10 km efforts in 2025, only the faster may appear.
		{AthleteStravaID: 1, AthleteName: "Ana", TimeSeconds: 3000, DistanceKm: 10, Date: y2025, Source: SourceRace, Name: "Harbor 10K"},
		{AthleteStravaID: 1, AthleteName: "Ana", TimeSeconds: 2900, DistanceKm: 10.05, Date: y2025, Source: SourceVirtual, Name: "Tempo"},
		// Athlete 2: slower.
		{AthleteStravaID: 2, AthleteName: "Ben", TimeSeconds: 3200, DistanceKm: 10, Date: y2025, Source: SourceRace, Name: "Harbor 10K"},
		// Athlete 3: fastest but from 2024, excluded by the year filter.
		{AthleteStravaID: 3, AthleteName: "Cam", TimeSeconds: 2500, DistanceKm: 10, Date: y2024, Source: SourceRace, Name: "Old Run"},
	}}
	svc := NewService(store, testConfig())

	year := 2025
	board, err := svc.YearlyLeaderboard(context.Background(), &year, 0)
	if err != nil {
		t.Fatalf("YearlyLeaderboard: %v", err)
	}
	ten := board["10.0 km"]
	if len(ten) != 2 {
		t.Fatalf("expected 2 entries in 10.0 km, got %d: %v", len(ten), ten)
	}
	if ten[0].AthleteStravaID != 1 || ten[0].ActivityName != "Tempo" {
		t.Errorf("expected athlete 1's faster effort first, got %+v", ten[0])
	}
	if ten[1].AthleteStravaID != 2 {
		t.Errorf("expected athlete 2 second, got %+v", ten[1])
	}
	if got := len(board["5.0 km"]); got != 0 {
		t.Errorf("expected empty 5.0 km board, got %d entries", got)
	}
}

func TestYearlyLeaderboardTopN(t *testing.T) {
	day := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{}
	for i := 0; i < 15; i++ {
		store.activities = append(store.activities, Activity{
			AthleteStravaID: int64(100 + i),
			TimeSeconds:     1500 + i*10,
			DistanceKm:      5,
			Date:            day,
			Source:          SourceRace,
		})
	}
	svc := NewService(store, testConfig())

	board, err := svc.YearlyLeaderboard(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("YearlyLeaderboard: %v", err)
	}
	five := board["5.0 km"]
	if len(five) != 10 {
		t.Fatalf("expected default top 10, got %d", len(five))
	}
	if five[0].AthleteStravaID != 100 || five[9].AthleteStravaID != 109 {
		t.Errorf("unexpected ranking bounds: first %d, last %d", five[0].AthleteStravaID, five[9].AthleteStravaID)
	}

	board, err = svc.YearlyLeaderboard(context.Background(), nil, 3)
	if err != nil {
		t.Fatalf("YearlyLeaderboard: %v", err)
	}
	if got := len(board["5.0 km"]); got != 3 {
		t.Errorf("expected top 3, got %d", got)
	}
}

func TestRankBestPerAthleteUnpacedLast(t *testing.T) {
	pace := func(v float64) *float64 { return &v }
	ranked := rankBestPerAthlete([]Entry{
		{AthleteStravaID: 1, TimeSeconds: 900, ActualDistanceKm: 0}, // no pace
		{AthleteStravaID: 2, TimeSeconds: 1500, PaceSecondsPerKm: pace(300)},
		{AthleteStravaID: 3, TimeSeconds: 1400, PaceSecondsPerKm: pace(300)},
		{AthleteStravaID: 4, TimeSeconds: 1450, PaceSecondsPerKm: pace(290)},
	})
	wantOrder := []int64{4, 3, 2, 1}
	if len(ranked) != len(wantOrder) {
		t.Fatalf("expected %d entries, got %d", len(wantOrder), len(ranked))
	}
	for i, want := range wantOrder {
		if ranked[i].AthleteStravaID != want {
			t.Errorf("position %d: got athlete %d, want %d", i, ranked[i].AthleteStravaID, want)
		}
	}
}
