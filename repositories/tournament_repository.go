package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-brackets/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrTournamentInvalidOrg = errors.New("invalid organizer reference")
)

type ListTournamentsFilter struct {
	Search      string
	UpcomingAt  *time.Time // only tournaments starting at or after this instant
	OrganizerID *int
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, int, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	Delete(ctx context.Context, id int) error
	UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error
	// LockForUpdate takes the row lock that serializes signups and bracket
	// generation for one tournament. exec must be a transaction.
	LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// ListByParticipantUser returns the tournaments userID signed up for,
	// earliest start first.
	ListByParticipantUser(ctx context.Context, userID int) ([]models.Tournament, error)
	// ListAwaitingBracket returns IDs of tournaments whose signup deadline
	// passed before now, that have at least two entrants and no round-1
	// matches yet.
	ListAwaitingBracket(ctx context.Context, now time.Time) ([]int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, organizer_id, name, discipline, description, venue_name, location_lat, location_lng,
	google_maps_url, sponsor_logos, start_at, signup_deadline, max_participants, status, logo_key,
	created_at, updated_at`

func scanTournament(row rowScanner, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.OrganizerID, &t.Name, &t.Discipline, &t.Description, &t.VenueName, &t.LocationLat, &t.LocationLng,
		&t.GoogleMapsURL, pq.Array(&t.SponsorLogos), &t.StartAt, &t.SignupDeadline, &t.MaxParticipants, &t.Status, &t.LogoKey,
		&t.CreatedAt, &t.UpdatedAt,
	)
}

// sponsorLogosParam keeps an empty list from being written as NULL.
func sponsorLogosParam(logos []string) interface{} {
	if logos == nil {
		logos = []string{}
	}
	return pq.Array(logos)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			organizer_id, name, discipline, description, venue_name,
			location_lat, location_lng, google_maps_url, sponsor_logos,
			start_at, signup_deadline, max_participants, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.OrganizerID, t.Name, t.Discipline, t.Description, t.VenueName,
		t.LocationLat, t.LocationLng, t.GoogleMapsURL, sponsorLogosParam(t.SponsorLogos),
		t.StartAt, t.SignupDeadline, t.MaxParticipants, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	return r.getOne(ctx, r.db, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
}

func (r *postgresTournamentRepository) LockForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	if exec == nil {
		return nil, errors.New("LockForUpdate requires a transaction")
	}
	return r.getOne(ctx, exec, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresTournamentRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Tournament, error) {
	t := &models.Tournament{}
	if err := scanTournament(exec.QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return t, nil
}

// List returns one page of tournaments together with the total number of
// rows matching the filter.
func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argID := 1

	if filter.UpcomingAt != nil {
		where += fmt.Sprintf(" AND start_at >= $%d", argID)
		args = append(args, *filter.UpcomingAt)
		argID++
	}
	if filter.OrganizerID != nil {
		where += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR discipline ILIKE $%d OR description ILIKE $%d)", argID, argID, argID)
		args = append(args, "%"+filter.Search+"%")
		argID++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tournaments: %w", err)
	}

	query := `SELECT ` + tournamentColumns + ` FROM tournaments` + where + " ORDER BY start_at ASC, id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, total, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1,
			discipline = $2,
			description = $3,
			venue_name = $4,
			location_lat = $5,
			location_lng = $6,
			google_maps_url = $7,
			sponsor_logos = $8,
			start_at = $9,
			signup_deadline = $10,
			max_participants = $11,
			status = $12,
			updated_at = NOW()
		WHERE id = $13
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Discipline, t.Description, t.VenueName,
		t.LocationLat, t.LocationLng, t.GoogleMapsURL, sponsorLogosParam(t.SponsorLogos),
		t.StartAt, t.SignupDeadline, t.MaxParticipants, t.Status,
		t.ID,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTournamentNotFound
	}
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error {
	query := `UPDATE tournaments SET logo_key = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListByParticipantUser(ctx context.Context, userID int) ([]models.Tournament, error) {
	query := `
		SELECT ` + prefixColumns("t", tournamentColumns) + `
		FROM tournaments t
		JOIN tournament_participants p ON p.tournament_id = t.id
		WHERE p.user_id = $1
		ORDER BY t.start_at ASC, t.id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments of user %d: %w", userID, err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := scanTournament(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) ListAwaitingBracket(ctx context.Context, now time.Time) ([]int, error) {
	query := `
		SELECT t.id
		FROM tournaments t
		WHERE t.signup_deadline <= $1
		  AND t.status <> $2
		  AND NOT EXISTS (
			SELECT 1 FROM matches m WHERE m.tournament_id = t.id AND m.round_number = 1
		  )
		  AND (SELECT COUNT(*) FROM tournament_participants p WHERE p.tournament_id = t.id) >= 2
		ORDER BY t.signup_deadline ASC`

	rows, err := r.db.QueryContext(ctx, query, now, models.StatusCanceled)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments awaiting bracket: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tournament id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := pqConstraintError(err, pqForeignKeyViolation); ok && constraint == "tournaments_organizer_id_fkey" {
		return ErrTournamentInvalidOrg
	}
	return err
}
