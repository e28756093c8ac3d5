package strava

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/raceline/backend/config"
	"github.com/raceline/backend/internal/models"
	"github.com/raceline/backend/pkg/apperr"
)

// API is the slice of the Strava client the syncer needs.
type API interface {
	RefreshToken(ctx context.Context, refreshToken string) (*Token, error)
	ListActivities(ctx context.Context, accessToken string, after time.Time, page, perPage int) ([]Activity, error)
}

// Store is the persistence surface the syncer needs.
type Store interface {
	GetAthlete(ctx context.Context, stravaID int64) (*models.Athlete, error)
	SaveTokens(ctx context.Context, stravaID int64, accessToken, refreshToken string, expiresAt time.Time) error
	LatestActivityDate(ctx context.Context, stravaID int64) (*time.Time, error)
	InsertVirtualResult(ctx context.Context, vr models.VirtualResult) (bool, error)
}

// Summary reports the outcome of one sync run.
type Summary struct {
	Processed int `json:"processed"` // activities fetched from the API
	Imported  int `json:"imported"`  // stored as new virtual results
	Skipped   int `json:"skipped"`   // wrong type, non-positive values, or already imported
}

// Syncer imports an athlete's recent Strava activities as virtual results.
// Each run is best-effort per activity: a bad activity is skipped, not fatal.
type Syncer struct {
	api    API
	store  Store
	cfg    config.StravaConfig
	logger *zap.Logger
}

// NewSyncer creates an activity syncer.
func NewSyncer(api API, store Store, cfg config.StravaConfig, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{api: api, store: store, cfg: cfg, logger: logger}
}

// SyncAthlete fetches activities newer than the athlete's latest stored
// virtual result (or the configured lookback window on first sync), keeps
// those whose type is on the allow-list with positive distance and time, and
// stores them. Already-imported activities are skipped.
func (s *Syncer) SyncAthlete(ctx context.Context, stravaID int64) (Summary, error) {
	var summary Summary

	athlete, err := s.store.GetAthlete(ctx, stravaID)
	if err != nil {
		return summary, err
	}
	if athlete == nil {
		return summary, apperr.NotFound("athlete %d not found", stravaID)
	}
	if athlete.RefreshToken == "" {
		return summary, apperr.BadRequest("athlete %d has no Strava tokens", stravaID)
	}

	accessToken, err := s.freshAccessToken(ctx, athlete)
	if err != nil {
		return summary, err
	}

	after := time.Now().UTC().AddDate(0, 0, -s.cfg.LookbackDays)
	if latest, err := s.store.LatestActivityDate(ctx, stravaID); err != nil {
		return summary, err
	} else if latest != nil {
		after = *latest
	}

	perPage := s.cfg.SyncPageSize
	if perPage <= 0 {
		perPage = 50
	}
	for page := 1; ; page++ {
		activities, err := s.api.ListActivities(ctx, accessToken, after, page, perPage)
		if err != nil {
			return summary, err
		}
		for _, act := range activities {
			summary.Processed++
			if s.importActivity(ctx, stravaID, act) {
				summary.Imported++
			} else {
				summary.Skipped++
			}
		}
		if len(activities) < perPage {
			break
		}
	}

	s.logger.Info("activity sync complete", zap.Int64("athlete_strava_id", stravaID),
		zap.Int("processed", summary.Processed), zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// freshAccessToken returns a usable access token, refreshing and persisting
// it when the stored one expires within the next minute.
func (s *Syncer) freshAccessToken(ctx context.Context, athlete *models.Athlete) (string, error) {
	if athlete.AccessToken != "" && athlete.TokenExpiresAt.After(time.Now().Add(time.Minute)) {
		return athlete.AccessToken, nil
	}
	token, err := s.api.RefreshToken(ctx, athlete.RefreshToken)
	if err != nil {
		return "", err
	}
	if err := s.store.SaveTokens(ctx, athlete.StravaID, token.AccessToken, token.RefreshToken, token.Expiry()); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (s *Syncer) importActivity(ctx context.Context, stravaID int64, act Activity) bool {
	if !s.allowedType(act.Type) {
		return false
	}
	distanceKm := act.DistanceMeters / 1000
	if distanceKm <= 0 || act.ElapsedTime <= 0 {
		s.logger.Debug("dropping activity with non-positive values",
			zap.Int64("activity_id", act.ID), zap.Float64("distance_km", distanceKm), zap.Int("elapsed", act.ElapsedTime))
		return false
	}
	inserted, err := s.store.InsertVirtualResult(ctx, models.VirtualResult{
		AthleteStravaID:    stravaID,
		StravaActivityID:   strconv.FormatInt(act.ID, 10),
		Name:               act.Name,
		DistanceKm:         distanceKm,
		ElapsedTimeSeconds: act.ElapsedTime,
		ActivityDate:       act.StartDate,
	})
	if err != nil {
		s.logger.Warn("store virtual result failed", zap.Error(err), zap.Int64("activity_id", act.ID))
		return false
	}
	return inserted
}

func (s *Syncer) allowedType(activityType string) bool {
	for _, t := range s.cfg.ActivityTypes {
		if t == activityType {
			return true
		}
	}
	return false
}
