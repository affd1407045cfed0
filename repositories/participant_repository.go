package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-brackets/models"
)

var (
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantConflict          = errors.New("participant conflict: user already registered for this tournament")
	ErrParticipantLicenseConflict   = errors.New("license number already registered for this tournament")
	ErrParticipantRankingConflict   = errors.New("ranking already taken in this tournament")
	ErrParticipantUserInvalid       = errors.New("participant user invalid")
	ErrParticipantTournamentInvalid = errors.New("participant tournament invalid")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error)
	FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error)
	// ListRanked returns registered participants by ascending ranking.
	ListRanked(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const participantColumns = `id, tournament_id, user_id, license_number, ranking, status, created_at`

func scanParticipant(row rowScanner, p *models.Participant) error {
	return row.Scan(&p.ID, &p.TournamentID, &p.UserID, &p.LicenseNumber, &p.Ranking, &p.Status, &p.CreatedAt)
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id, license_number, ranking, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		p.TournamentID,
		p.UserID,
		p.LicenseNumber,
		p.Ranking,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err == nil {
		return nil
	}

	if constraint, ok := pqConstraintError(err, pqUniqueViolation); ok {
		switch constraint {
		case "uq_license_per_tournament":
			return ErrParticipantLicenseConflict
		case "uq_ranking_per_tournament":
			return ErrParticipantRankingConflict
		case "uq_user_per_tournament":
			return ErrParticipantConflict
		}
	}
	if constraint, ok := pqConstraintError(err, pqForeignKeyViolation); ok {
		switch constraint {
		case "tournament_participants_user_id_fkey":
			return ErrParticipantUserInvalid
		case "tournament_participants_tournament_id_fkey":
			return ErrParticipantTournamentInvalid
		}
	}
	return fmt.Errorf("failed to create participant: %w", err)
}

func (r *postgresParticipantRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Participant, error) {
	p := &models.Participant{}
	if err := scanParticipant(r.getExecutor(exec).QueryRowContext(ctx, query, args...), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error) {
	return r.findOne(ctx, exec, `SELECT `+participantColumns+` FROM tournament_participants WHERE id = $1`, id)
}

func (r *postgresParticipantRepository) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM tournament_participants WHERE user_id = $1 AND tournament_id = $2`
	return r.findOne(ctx, nil, query, userID, tournamentID)
}

func (r *postgresParticipantRepository) ListRanked(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM tournament_participants
		WHERE tournament_id = $1 AND status = $2
		ORDER BY ranking ASC, id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID, models.ParticipantRegistered)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if err := scanParticipant(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1 AND status = $2`
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, tournamentID, models.ParticipantRegistered).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants of tournament %d: %w", tournamentID, err)
	}
	return count, nil
}
