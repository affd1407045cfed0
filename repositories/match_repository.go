package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-brackets/brackets"
	"github.com/Dosada05/tournament-brackets/models"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchSlotConflict = errors.New("match already exists at this round and position")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	CountByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error)
	// GetOrCreate returns the locked match at (round, position), inserting an
	// empty one first if needed. Concurrent callers converge on the same row.
	GetOrCreate(ctx context.Context, exec SQLExecutor, tournamentID, round, position int) (*models.Match, error)
	// FillSlot sets the slot only while it is empty and reports whether the
	// row changed.
	FillSlot(ctx context.Context, exec SQLExecutor, matchID int, slot brackets.Slot, participantID int) (bool, error)
	SaveReports(ctx context.Context, exec SQLExecutor, match *models.Match) error
	// SetWinner writes winner_id only if it is still NULL.
	SetWinner(ctx context.Context, exec SQLExecutor, matchID, winnerID int) (bool, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	MaxRound(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	ListOpenByUser(ctx context.Context, userID int) ([]models.OpenMatch, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round_number, bracket_position, player_a_id, player_b_id, winner_id,
	player_a_reported_winner_id, player_b_reported_winner_id, created_at, updated_at`

func scanMatch(row rowScanner, m *models.Match) error {
	return row.Scan(
		&m.ID, &m.TournamentID, &m.RoundNumber, &m.BracketPosition,
		&m.PlayerAID, &m.PlayerBID, &m.WinnerID,
		&m.PlayerAReportedWinnerID, &m.PlayerBReportedWinnerID,
		&m.CreatedAt, &m.UpdatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches (tournament_id, round_number, bracket_position, player_a_id, player_b_id, winner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.TournamentID, m.RoundNumber, m.BracketPosition,
		m.PlayerAID, m.PlayerBID, m.WinnerID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if constraint, ok := pqConstraintError(err, pqUniqueViolation); ok && constraint == "uq_match_slot" {
			return ErrMatchSlotConflict
		}
		return fmt.Errorf("failed to create match r%d p%d: %w", m.RoundNumber, m.BracketPosition, err)
	}
	return nil
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Match, error) {
	m := &models.Match{}
	if err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, args...), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	if exec == nil {
		return nil, errors.New("GetByIDForUpdate requires a transaction")
	}
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) CountByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND round_number = $2`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, round).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches of round %d: %w", round, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, tournamentID, round, position int) (*models.Match, error) {
	if exec == nil {
		return nil, errors.New("GetOrCreate requires a transaction")
	}
	insert := `
		INSERT INTO matches (tournament_id, round_number, bracket_position)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id, round_number, bracket_position) DO NOTHING`
	if _, err := exec.ExecContext(ctx, insert, tournamentID, round, position); err != nil {
		return nil, fmt.Errorf("failed to ensure match r%d p%d: %w", round, position, err)
	}

	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND round_number = $2 AND bracket_position = $3
		FOR UPDATE`
	return r.getOne(ctx, exec, query, tournamentID, round, position)
}

func (r *postgresMatchRepository) FillSlot(ctx context.Context, exec SQLExecutor, matchID int, slot brackets.Slot, participantID int) (bool, error) {
	var query string
	switch slot {
	case brackets.SlotA:
		query = `UPDATE matches SET player_a_id = $1, updated_at = NOW() WHERE id = $2 AND player_a_id IS NULL`
	case brackets.SlotB:
		query = `UPDATE matches SET player_b_id = $1, updated_at = NOW() WHERE id = $2 AND player_b_id IS NULL`
	default:
		return false, fmt.Errorf("invalid slot %v", slot)
	}

	result, err := r.getExecutor(exec).ExecContext(ctx, query, participantID, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to fill slot %v of match %d: %w", slot, matchID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *postgresMatchRepository) SaveReports(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE matches SET
			player_a_reported_winner_id = $1,
			player_b_reported_winner_id = $2,
			updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.PlayerAReportedWinnerID, m.PlayerBReportedWinnerID, m.ID,
	).Scan(&m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMatchNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to save reports of match %d: %w", m.ID, err)
	}
	return nil
}

func (r *postgresMatchRepository) SetWinner(ctx context.Context, exec SQLExecutor, matchID, winnerID int) (bool, error) {
	query := `UPDATE matches SET winner_id = $1, updated_at = NOW() WHERE id = $2 AND winner_id IS NULL`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, winnerID, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to set winner of match %d: %w", matchID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1
		ORDER BY round_number ASC, bracket_position ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) MaxRound(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var maxRound sql.NullInt64
	query := `SELECT MAX(round_number) FROM matches WHERE tournament_id = $1`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID).Scan(&maxRound); err != nil {
		return 0, fmt.Errorf("failed to get max round of tournament %d: %w", tournamentID, err)
	}
	return int(maxRound.Int64), nil
}

func (r *postgresMatchRepository) ListOpenByUser(ctx context.Context, userID int) ([]models.OpenMatch, error) {
	query := `
		SELECT
			m.id, m.tournament_id, m.round_number, m.bracket_position, m.player_a_id, m.player_b_id, m.winner_id,
			m.player_a_reported_winner_id, m.player_b_reported_winner_id, m.created_at, m.updated_at,
			t.name,
			p.id,
			(SELECT COUNT(*) FROM matches r1 WHERE r1.tournament_id = m.tournament_id AND r1.round_number = 1)
		FROM matches m
		JOIN tournaments t ON t.id = m.tournament_id
		JOIN tournament_participants p ON p.tournament_id = m.tournament_id AND p.user_id = $1
		WHERE m.winner_id IS NULL
		  AND m.player_a_id IS NOT NULL
		  AND m.player_b_id IS NOT NULL
		  AND (m.player_a_id = p.id OR m.player_b_id = p.id)
		ORDER BY t.start_at ASC, m.round_number ASC, m.bracket_position ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open matches for user %d: %w", userID, err)
	}
	defer rows.Close()

	open := make([]models.OpenMatch, 0)
	for rows.Next() {
		var om models.OpenMatch
		m := &om.Match
		if err := rows.Scan(
			&m.ID, &m.TournamentID, &m.RoundNumber, &m.BracketPosition, &m.PlayerAID, &m.PlayerBID, &m.WinnerID,
			&m.PlayerAReportedWinnerID, &m.PlayerBReportedWinnerID, &m.CreatedAt, &m.UpdatedAt,
			&om.TournamentName,
			&om.OwnParticipant,
			&om.FirstRoundSize,
		); err != nil {
			return nil, fmt.Errorf("failed to scan open match row: %w", err)
		}
		open = append(open, om)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open match rows: %w", err)
	}
	return open, nil
}
