package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raceline/backend/internal/models"
)

// Repository handles event, category and distance persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, name, location, type, date, strava_sync_enabled)
		VALUES (gen_random_uuid(), $1, NULLIF($2,''), $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Name, e.Location, string(e.Type), e.Date, e.StravaSyncEnabled).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event with its categories and distances, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
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
	if e.Categories, err = r.ListCategories(ctx, id); err != nil {
		return nil, err
	}
	if e.Distances, err = r.ListDistances(ctx, id); err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns all events, newest first, without nested collections.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(location,''), type, date, strava_sync_enabled, created_at, updated_at
		FROM events ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Location, &e.Type, &e.Date, &e.StravaSyncEnabled, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update applies name/location/date/sync changes to an event.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET name = $2, location = NULLIF($3,''), date = $4, strava_sync_enabled = $5, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, e.ID, e.Name, e.Location, e.Date, e.StravaSyncEnabled).Scan(&e.UpdatedAt)
}

// Delete removes an event; registrations and results cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

// AddCategory inserts a category for an event.
func (r *Repository) AddCategory(ctx context.Context, c *models.EventCategory) error {
	const q = `INSERT INTO event_categories (id, event_id, name)
		VALUES (gen_random_uuid(), $1, $2) RETURNING id`
	return r.pool.QueryRow(ctx, q, c.EventID, c.Name).Scan(&c.ID)
}

// AddDistance inserts a distance for an event.
func (r *Repository) AddDistance(ctx context.Context, d *models.EventDistance) error {
	const q = `INSERT INTO event_distances (id, event_id, distance_km)
		VALUES (gen_random_uuid(), $1, $2) RETURNING id`
	return r.pool.QueryRow(ctx, q, d.EventID, d.DistanceKm).Scan(&d.ID)
}

// GetCategory returns one category, or nil when absent.
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

// GetDistance returns one distance, or nil when absent.
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

// ListCategories returns all categories of an event.
func (r *Repository) ListCategories(ctx context.Context, eventID uuid.UUID) ([]models.EventCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, event_id, name FROM event_categories WHERE event_id = $1 ORDER BY name`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventCategory
	for rows.Next() {
		var c models.EventCategory
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// ListDistances returns all distances of an event, shortest first.
func (r *Repository) ListDistances(ctx context.Context, eventID uuid.UUID) ([]models.EventDistance, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, event_id, distance_km FROM event_distances WHERE event_id = $1 ORDER BY distance_km`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventDistance
	for rows.Next() {
		var d models.EventDistance
		if err := rows.Scan(&d.ID, &d.EventID, &d.DistanceKm); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
