// Package results classifies finished race results per event and aggregates
// race and virtual performances into personal bests and yearly leaderboards.
package results

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raceline/backend/internal/models"
)

// Source tags where a timed performance came from.
type Source string

const (
	SourceRace    Source = "race"
	SourceVirtual Source = "virtual"
)

// Activity is a flattened timed performance, race or virtual, as the
// leaderboard math consumes it.
type Activity struct {
	AthleteStravaID int64
	AthleteName     string
	TimeSeconds     int
	DistanceKm      float64
	Name            string // event name (race) or activity name (virtual)
	Date            time.Time
	Source          Source
}

// Entry is one leaderboard or personal-best row, shaped for direct rendering.
type Entry struct {
	AthleteName      string   `json:"athlete_name,omitempty"`
	AthleteStravaID  int64    `json:"athlete_strava_id"`
	TimeSeconds      int      `json:"time_seconds"`
	ActualDistanceKm float64  `json:"actual_distance_km"`
	PaceSecondsPerKm *float64 `json:"pace_seconds_per_km"`
	ActivityName     string   `json:"activity_name"`
	ActivityDate     string   `json:"activity_date"` // YYYY-MM-DD
	Source           Source   `json:"source"`
}

// Store is the read surface the results engine needs. A nil athleteID or year
// means "all athletes" / "all years".
type Store interface {
	FinishedResultsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.RaceResult, error)
	RaceActivities(ctx context.Context, athleteID *int64, year *int) ([]Activity, error)
	VirtualActivities(ctx context.Context, athleteID *int64, year *int) ([]Activity, error)
}

// Config holds the standard-distance buckets and ranking policy.
type Config struct {
	StandardDistancesKm []float64
	ToleranceKm         float64
	TopN                int
}

// Service computes classified results, personal bests and leaderboards.
// Every call reads fresh from the store; nothing is cached.
type Service struct {
	store Store
	cfg   Config
}

// NewService creates a results service.
func NewService(store Store, cfg Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// DistanceLabel renders a distance in km the way results tables display it,
// e.g. "10.0 km", "21.1 km".
func DistanceLabel(km float64) string {
	s := strconv.FormatFloat(km, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + " km"
}

// ClassifyResults groups an event's finished results by category name, then
// by distance label, each group ordered by net time ascending. Unfinished
// results are excluded; an event with no finishers yields an empty map.
func (s *Service) ClassifyResults(ctx context.Context, eventID uuid.UUID) (map[string]map[string][]models.RaceResult, error) {
	finished, err := s.store.FinishedResultsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load finished results: %w", err)
	}
	sort.SliceStable(finished, func(i, j int) bool {
		return *finished[i].NetTimeSeconds < *finished[j].NetTimeSeconds
	})
	classified := make(map[string]map[string][]models.RaceResult)
	for _, res := range finished {
		if res.Registration == nil || res.Registration.Category == nil || res.Registration.Distance == nil {
			continue
		}
		category := res.Registration.Category.Name
		label := DistanceLabel(res.Registration.Distance.DistanceKm)
		if classified[category] == nil {
			classified[category] = make(map[string][]models.RaceResult)
		}
		classified[category][label] = append(classified[category][label], res)
	}
	return classified, nil
}

// PersonalBests returns, per standard distance, an athlete's fastest-pace
// qualifying performance across races and virtual activities. Buckets with no
// qualifying activity are omitted.
func (s *Service) PersonalBests(ctx context.Context, athleteID int64) (map[string]Entry, error) {
	activities, err := s.gather(ctx, &athleteID, nil)
	if err != nil {
		return nil, err
	}
	bests := make(map[string]Entry)
	for _, std := range s.cfg.StandardDistancesKm {
		var best *Entry
		for _, a := range activities {
			if !s.inBucket(a.DistanceKm, std) {
				continue
			}
			entry := toEntry(a)
			if entry.PaceSecondsPerKm == nil {
				continue
			}
			if best == nil || *entry.PaceSecondsPerKm < *best.PaceSecondsPerKm {
				e := entry
				best = &e
			}
		}
		if best != nil {
			bests[DistanceLabel(std)] = *best
		}
	}
	return bests, nil
}

// YearlyLeaderboard returns, per standard distance, the top-N athletes ranked
// by pace. Each athlete holds at most one slot per bucket (their best). A nil
// year includes all years; topN <= 0 falls back to the configured default.
func (s *Service) YearlyLeaderboard(ctx context.Context, year *int, topN int) (map[string][]Entry, error) {
	if topN <= 0 {
		topN = s.cfg.TopN
	}
	activities, err := s.gather(ctx, nil, year)
	if err != nil {
		return nil, err
	}
	leaderboard := make(map[string][]Entry)
	for _, std := range s.cfg.StandardDistancesKm {
		var candidates []Entry
		for _, a := range activities {
			if s.inBucket(a.DistanceKm, std) {
				candidates = append(candidates, toEntry(a))
			}
		}
		ranked := rankBestPerAthlete(candidates)
		if len(ranked) > topN {
			ranked = ranked[:topN]
		}
		leaderboard[DistanceLabel(std)] = ranked
	}
	return leaderboard, nil
}

func (s *Service) gather(ctx context.Context, athleteID *int64, year *int) ([]Activity, error) {
	races, err := s.store.RaceActivities(ctx, athleteID, year)
	if err != nil {
		return nil, fmt.Errorf("load race activities: %w", err)
	}
	virtuals, err := s.store.VirtualActivities(ctx, athleteID, year)
	if err != nil {
		return nil, fmt.Errorf("load virtual activities: %w", err)
	}
	return append(races, virtuals...), nil
}

func (s *Service) inBucket(distanceKm, standardKm float64) bool {
	diff := distanceKm - standardKm
	if diff < 0 {
		diff = -diff
	}
	return diff <= s.cfg.ToleranceKm
}

func toEntry(a Activity) Entry {
	e := Entry{
		AthleteName:      a.AthleteName,
		AthleteStravaID:  a.AthleteStravaID,
		TimeSeconds:      a.TimeSeconds,
		ActualDistanceKm: a.DistanceKm,
		ActivityName:     a.Name,
		ActivityDate:     a.Date.Format("2006-01-02"),
		Source:           a.Source,
	}
	if a.DistanceKm > 0 {
		pace := float64(a.TimeSeconds) / a.DistanceKm
		e.PaceSecondsPerKm = &pace
	}
	return e
}

// rankBestPerAthlete keeps each athlete's best entry (lowest pace; a paced
// entry always beats an unpaced one) and orders the survivors by pace
// ascending, unpaced last, ties broken by raw time ascending.
func rankBestPerAthlete(candidates []Entry) []Entry {
	best := make(map[int64]Entry)
	var order []int64
	for _, c := range candidates {
		cur, seen := best[c.AthleteStravaID]
		if !seen {
			best[c.AthleteStravaID] = c
			order = append(order, c.AthleteStravaID)
			continue
		}
		if c.PaceSecondsPerKm == nil {
			continue
		}
		if cur.PaceSecondsPerKm == nil || *c.PaceSecondsPerKm < *cur.PaceSecondsPerKm {
			best[c.AthleteStravaID] = c
		}
	}
	ranked := make([]Entry, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, best[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := ranked[i].PaceSecondsPerKm, ranked[j].PaceSecondsPerKm
		switch {
		case pi == nil && pj == nil:
			return ranked[i].TimeSeconds < ranked[j].TimeSeconds
		case pi == nil:
			return false
		case pj == nil:
			return true
		case *pi != *pj:
			return *pi < *pj
		default:
			return ranked[i].TimeSeconds < ranked[j].TimeSeconds
		}
	})
	return ranked
}
