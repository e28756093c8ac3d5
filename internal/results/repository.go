package results

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/raceline/backend/internal/models"
)

// Repository is the pgx-backed Store for the results engine.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a results repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FinishedResultsByEvent returns an event's results that carry a net time,
// with registration, athlete, category and distance context.
func (r *Repository) FinishedResultsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.RaceResult, error) {
	const q = `SELECT rr.id, rr.registration_id, rr.event_id, rr.dorsal_number, rr.start_time, rr.finish_time, rr.net_time_seconds,
			reg.id, reg.athlete_strava_id, reg.event_id, reg.category_id, reg.distance_id, reg.status, reg.registered_at,
			a.strava_id, COALESCE(a.username,''), COALESCE(a.firstname,''), COALESCE(a.lastname,''),
			c.name, d.distance_km
		FROM race_results rr
		JOIN registrations reg ON reg.id = rr.registration_id
		JOIN athletes a ON a.strava_id = reg.athlete_strava_id
		JOIN event_categories c ON c.id = reg.category_id
		JOIN event_distances d ON d.id = reg.distance_id
		WHERE rr.event_id = $1 AND rr.net_time_seconds IS NOT NULL
		ORDER BY rr.net_time_seconds`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.RaceResult
	for rows.Next() {
		var (
			res      models.RaceResult
			reg      models.Registration
			athlete  models.Athlete
			category models.EventCategory
			distance models.EventDistance
		)
		err := rows.Scan(&res.ID, &res.RegistrationID, &res.EventID, &res.DorsalNumber, &res.StartTime, &res.FinishTime, &res.NetTimeSeconds,
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
		list = append(list, res)
	}
	return list, rows.Err()
}

// RaceActivities returns finished race performances flattened for ranking,
// optionally filtered to one athlete and to the year of the event date.
func (r *Repository) RaceActivities(ctx context.Context, athleteID *int64, year *int) ([]Activity, error) {
	const q = `SELECT a.strava_id, COALESCE(a.username,''), COALESCE(a.firstname,''), COALESCE(a.lastname,''),
			rr.net_time_seconds, d.distance_km, e.name, e.date
		FROM race_results rr
		JOIN registrations reg ON reg.id = rr.registration_id
		JOIN athletes a ON a.strava_id = reg.athlete_strava_id
		JOIN events e ON e.id = rr.event_id
		JOIN event_distances d ON d.id = reg.distance_id
		WHERE rr.net_time_seconds IS NOT NULL
		  AND ($1::bigint IS NULL OR a.strava_id = $1)
		  AND ($2::int IS NULL OR EXTRACT(YEAR FROM e.date) = $2)`
	return r.queryActivities(ctx, q, SourceRace, athleteID, year)
}

// VirtualActivities returns imported virtual performances flattened for
// ranking, with the same optional athlete and year filters.
func (r *Repository) VirtualActivities(ctx context.Context, athleteID *int64, year *int) ([]Activity, error) {
	const q = `SELECT a.strava_id, COALESCE(a.username,''), COALESCE(a.firstname,''), COALESCE(a.lastname,''),
			vr.elapsed_time_seconds, vr.distance_km, COALESCE(vr.name,''), vr.activity_date
		FROM virtual_results vr
		JOIN athletes a ON a.strava_id = vr.athlete_strava_id
		WHERE ($1::bigint IS NULL OR a.strava_id = $1)
		  AND ($2::int IS NULL OR EXTRACT(YEAR FROM vr.activity_date) = $2)`
	return r.queryActivities(ctx, q, SourceVirtual, athleteID, year)
}

func (r *Repository) queryActivities(ctx context.Context, q string, source Source, athleteID *int64, year *int) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, q, athleteID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Activity
	for rows.Next() {
		var (
			act                           Activity
			username, firstname, lastname string
		)
		err := rows.Scan(&act.AthleteStravaID, &username, &firstname, &lastname,
			&act.TimeSeconds, &act.DistanceKm, &act.Name, &act.Date)
		if err != nil {
			return nil, err
		}
		athlete := models.Athlete{StravaID: act.AthleteStravaID, Username: username, FirstName: firstname, LastName: lastname}
		act.AthleteName = athlete.DisplayName()
		act.Source = source
		list = append(list, act)
	}
	return list, rows.Err()
}
