package timing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raceline/backend/internal/models"
	"github.com/raceline/backend/pkg/apperr"
)

const uniqueViolation = "23505"

// Repository is the pgx-backed Store for the timing engine.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a timing repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetEvent returns an event row, or nil when absent.
func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, name, COALESCE(location,''), type, date, strava_sync_enabled, created_at, updated_at
		FROM events WHERE id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.Name, &e.Location, &e.Type, &e.Date, &e.StravaSyncEnabled, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetDistance returns a distance row, or nil when absent.
func (r *Repository) GetDistance(ctx context.Context, id uuid.UUID) (*models.EventDistance, error) {
	var d models.EventDistance
	err := r.pool.QueryRow(ctx, `SELECT id, event_id, distance_km FROM event_distances WHERE id = $1`, id).
		Scan(&d.ID, &d.EventID, &d.DistanceKm)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CountRegistrationsForDistance counts registrations of (event, distance).
func (r *Repository) CountRegistrationsForDistance(ctx context.Context, eventID, distanceID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND distance_id = $2`,
		eventID, distanceID).Scan(&n)
	return n, err
}

// SetStartTimes stamps start_time for the pairing's results that have none yet.
func (r *Repository) SetStartTimes(ctx context.Context, eventID, distanceID uuid.UUID, start time.Time) error {
	const q = `UPDATE race_results rr SET start_time = $3
		FROM registrations reg
		WHERE reg.id = rr.registration_id
		  AND reg.event_id = $1 AND reg.distance_id = $2
		  AND rr.start_time IS NULL`
	_, err := r.pool.Exec(ctx, q, eventID, distanceID, start)
	return err
}

const resultSelect = `SELECT rr.id, rr.registration_id, rr.event_id, rr.dorsal_number, rr.start_time, rr.finish_time, rr.net_time_seconds,
		reg.id, reg.athlete_strava_id, reg.event_id, reg.category_id, reg.distance_id, reg.status, reg.registered_at,
		a.strava_id, COALESCE(a.username,''), COALESCE(a.firstname,''), COALESCE(a.lastname,''),
		c.name, d.distance_km
	FROM race_results rr
	JOIN registrations reg ON reg.id = rr.registration_id
	JOIN athletes a ON a.strava_id = reg.athlete_strava_id
	JOIN event_categories c ON c.id = reg.category_id
	JOIN event_distances d ON d.id = reg.distance_id`

// ListResultsForDistance returns every result of (event, distance) with
// registration and athlete context, dorsal order first.
func (r *Repository) ListResultsForDistance(ctx context.Context, eventID, distanceID uuid.UUID) ([]models.RaceResult, error) {
	q := resultSelect + ` WHERE reg.event_id = $1 AND reg.distance_id = $2
		ORDER BY rr.dorsal_number NULLS LAST, reg.registered_at`
	rows, err := r.pool.Query(ctx, q, eventID, distanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.RaceResult
	for rows.Next() {
		res, err := scanResultRow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *res)
	}
	return list, rows.Err()
}

// GetResultByDorsal returns the result wearing a dorsal in an event, or nil.
func (r *Repository) GetResultByDorsal(ctx context.Context, eventID uuid.UUID, dorsal int) (*models.RaceResult, error) {
	q := resultSelect + ` WHERE rr.event_id = $1 AND rr.dorsal_number = $2`
	res, err := scanResultRow(r.pool.QueryRow(ctx, q, eventID, dorsal))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetResultByRegistration returns the 1:1 result of a registration, or nil.
func (r *Repository) GetResultByRegistration(ctx context.Context, registrationID uuid.UUID) (*models.RaceResult, error) {
	q := resultSelect + ` WHERE rr.registration_id = $1`
	res, err := scanResultRow(r.pool.QueryRow(ctx, q, registrationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DorsalTaken reports whether a dorsal is already assigned within an event.
func (r *Repository) DorsalTaken(ctx context.Context, eventID uuid.UUID, dorsal int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM race_results WHERE event_id = $1 AND dorsal_number = $2)`,
		eventID, dorsal).Scan(&exists)
	return exists, err
}

// SetDorsal assigns the dorsal. The (event_id, dorsal_number) unique index is
// the authoritative guard; a violation surfaces as apperr.Conflict.
func (r *Repository) SetDorsal(ctx context.Context, resultID uuid.UUID, dorsal int) error {
	_, err := r.pool.Exec(ctx, `UPDATE race_results SET dorsal_number = $2 WHERE id = $1`, resultID, dorsal)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Conflict("dorsal number %d is already assigned for this event", dorsal)
	}
	return err
}

// SetFinish stamps finish_time and the derived net time (nil when no start).
func (r *Repository) SetFinish(ctx context.Context, resultID uuid.UUID, finish time.Time, netSeconds *int) error {
	_, err := r.pool.Exec(ctx, `UPDATE race_results SET finish_time = $2, net_time_seconds = $3 WHERE id = $1`,
		resultID, finish, netSeconds)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResultRow(row rowScanner) (*models.RaceResult, error) {
	var (
		res      models.RaceResult
		reg      models.Registration
		athlete  models.Athlete
		category models.EventCategory
		distance models.EventDistance
	)
	err := row.Scan(&res.ID, &res.RegistrationID, &res.EventID, &res.DorsalNumber, &res.StartTime, &res.FinishTime, &res.NetTimeSeconds,
		&reg.ID, &reg.AthleteStravaID, &reg.EventID, &reg.CategoryID, &reg.DistanceID, &reg.Status, &reg.RegisteredAt,
		&athlete.StravaID, &athlete.Username, &athlete.FirstName, &athlete.LastName,
		&category.Name, &distance.DistanceKm)
	if err != nil {
		return nil, err
	}
	category.ID, category.EventID = reg.CategoryID, reg.EventID
	distance.ID, distance.EventID = reg.DistanceID, reg.EventID
	reg.Athlete = &athlete
	reg.Category = &category
	reg.Distance = &distance
	res.Registration = &reg
	return &res, nil
}
