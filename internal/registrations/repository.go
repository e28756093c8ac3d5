package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raceline/backend/internal/models"
)

// Repository handles registration persistence. It also implements the
// service's Store interface by delegating entity lookups to the pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
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

// GetCategory returns a category, or nil when absent.
func (r *Repository) GetCategory(ctx context.Context, id uuid.UUID) (*models.EventCategory, error) {
	var c models.EventCategory
	err := r.pool.QueryRow(ctx, `SELECT id, event_id, name FROM event_categories WHERE id = $1`, id).
		Scan(&c.ID, &c.EventID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetDistance returns a distance, or nil when absent.
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

// AthleteExists reports whether an athlete row exists.
func (r *Repository) AthleteExists(ctx context.Context, stravaID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM athletes WHERE strava_id = $1)`, stravaID).Scan(&exists)
	return exists, err
}

// RegistrationExists reports whether the full tuple is already registered.
func (r *Repository) RegistrationExists(ctx context.Context, athleteID int64, eventID, categoryID, distanceID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM registrations
		WHERE athlete_strava_id = $1 AND event_id = $2 AND category_id = $3 AND distance_id = $4)`,
		athleteID, eventID, categoryID, distanceID).Scan(&exists)
	return exists, err
}

// CreateWithResult inserts the registration and its empty race result in one
// transaction. The race result carries the denormalized event_id.
func (r *Repository) CreateWithResult(ctx context.Context, reg *models.Registration) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insReg = `INSERT INTO registrations (id, athlete_strava_id, event_id, category_id, distance_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, status, registered_at`
	if err := tx.QueryRow(ctx, insReg, reg.AthleteStravaID, reg.EventID, reg.CategoryID, reg.DistanceID).
		Scan(&reg.ID, &reg.Status, &reg.RegisteredAt); err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	const insResult = `INSERT INTO race_results (id, registration_id, event_id)
		VALUES (gen_random_uuid(), $1, $2)`
	if _, err := tx.Exec(ctx, insResult, reg.ID, reg.EventID); err != nil {
		return fmt.Errorf("insert race result: %w", err)
	}

	return tx.Commit(ctx)
}

// GetWithContext returns a registration with athlete, category and distance
// loaded, or nil when absent.
func (r *Repository) GetWithContext(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	const q = `SELECT reg.id, reg.athlete_strava_id, reg.event_id, reg.category_id, reg.distance_id,
			reg.status, COALESCE(reg.payment_proof_key,''), reg.registered_at,
			a.strava_id, COALESCE(a.username,''), COALESCE(a.firstname,''), COALESCE(a.lastname,''),
			c.name, d.distance_km
		FROM registrations reg
		JOIN athletes a ON a.strava_id = reg.athlete_strava_id
		JOIN event_categories c ON c.id = reg.category_id
		JOIN event_distances d ON d.id = reg.distance_id
		WHERE reg.id = $1`
	reg, err := scanRegistrationRow(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ListByEvent returns all registrations of an event with nested context.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	const q = `SELECT reg.id, reg.athlete_strava_id, reg.event_id, reg.category_id, reg.distance_id,
			reg.status, COALESCE(reg.payment_proof_key,''), reg.registered_at,
			a.strava_id, COALESCE(a.username,''), COALESCE(a.firstname,''), COALESCE(a.lastname,''),
			c.name, d.distance_km
		FROM registrations reg
		JOIN athletes a ON a.strava_id = reg.athlete_strava_id
		JOIN event_categories c ON c.id = reg.category_id
		JOIN event_distances d ON d.id = reg.distance_id
		WHERE reg.event_id = $1
		ORDER BY reg.registered_at`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		reg, err := scanRegistrationRow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

// UpdateStatus sets the registration status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RegistrationStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE registrations SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetPaymentProofKey stores the S3 object key of the uploaded proof.
func (r *Repository) SetPaymentProofKey(ctx context.Context, id uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE registrations SET payment_proof_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistrationRow(row rowScanner) (*models.Registration, error) {
	var (
		reg      models.Registration
		athlete  models.Athlete
		category models.EventCategory
		distance models.EventDistance
	)
	err := row.Scan(&reg.ID, &reg.AthleteStravaID, &reg.EventID, &reg.CategoryID, &reg.DistanceID,
		&reg.Status, &reg.PaymentProofKey, &reg.RegisteredAt,
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
	return &reg, nil
}
