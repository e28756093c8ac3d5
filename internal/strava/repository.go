package strava

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raceline/backend/internal/models"
)

// Repository persists athletes, their tokens and imported virtual results.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a strava repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAthlete returns an athlete with their stored tokens, or nil when absent.
func (r *Repository) GetAthlete(ctx context.Context, stravaID int64) (*models.Athlete, error) {
	const q = `SELECT strava_id, COALESCE(username,''), COALESCE(firstname,''), COALESCE(lastname,''),
			COALESCE(profile_picture_url,''), access_token, refresh_token,
			COALESCE(token_expires_at, 'epoch'::timestamptz), created_at, updated_at
		FROM athletes WHERE strava_id = $1`
	var a models.Athlete
	err := r.pool.QueryRow(ctx, q, stravaID).Scan(&a.StravaID, &a.Username, &a.FirstName, &a.LastName,
		&a.ProfilePictureURL, &a.AccessToken, &a.RefreshToken, &a.TokenExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertAthlete inserts or refreshes an athlete's profile and tokens.
func (r *Repository) UpsertAthlete(ctx context.Context, a *models.Athlete) error {
	const q = `INSERT INTO athletes (strava_id, username, firstname, lastname, profile_picture_url,
			access_token, refresh_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (strava_id) DO UPDATE SET
			username = EXCLUDED.username,
			firstname = EXCLUDED.firstname,
			lastname = EXCLUDED.lastname,
			profile_picture_url = EXCLUDED.profile_picture_url,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = NOW()`
	_, err := r.pool.Exec(ctx, q, a.StravaID, a.Username, a.FirstName, a.LastName, a.ProfilePictureURL,
		a.AccessToken, a.RefreshToken, a.TokenExpiresAt)
	return err
}

// SaveTokens stores a refreshed token pair for an athlete.
func (r *Repository) SaveTokens(ctx context.Context, stravaID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	const q = `UPDATE athletes SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = NOW()
		WHERE strava_id = $1`
	_, err := r.pool.Exec(ctx, q, stravaID, accessToken, refreshToken, expiresAt)
	return err
}

// LatestActivityDate returns the newest stored virtual-result date for an
// athlete, or nil when none exist yet.
func (r *Repository) LatestActivityDate(ctx context.Context, stravaID int64) (*time.Time, error) {
	const q = `SELECT activity_date FROM virtual_results
		WHERE athlete_strava_id = $1 ORDER BY activity_date DESC LIMIT 1`
	var latest time.Time
	err := r.pool.QueryRow(ctx, q, stravaID).Scan(&latest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &latest, nil
}

// InsertVirtualResult stores an imported activity. Returns false when the
// activity was already imported (unique strava_activity_id).
func (r *Repository) InsertVirtualResult(ctx context.Context, vr models.VirtualResult) (bool, error) {
	const q = `INSERT INTO virtual_results (athlete_strava_id, event_id, strava_activity_id, name,
			distance_km, elapsed_time_seconds, activity_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (strava_activity_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, vr.AthleteStravaID, vr.EventID, vr.StravaActivityID, vr.Name,
		vr.DistanceKm, vr.ElapsedTimeSeconds, vr.ActivityDate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListAthletes returns every stored athlete, newest first.
func (r *Repository) ListAthletes(ctx context.Context) ([]models.Athlete, error) {
	const q = `SELECT strava_id, COALESCE(username,''), COALESCE(firstname,''), COALESCE(lastname,''),
			COALESCE(profile_picture_url,''), created_at, updated_at
		FROM athletes ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Athlete
	for rows.Next() {
		var a models.Athlete
		if err := rows.Scan(&a.StravaID, &a.Username, &a.FirstName, &a.LastName,
			&a.ProfilePictureURL, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
