package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"codepair/api/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCallIDTaken     = errors.New("call id already taken")
	ErrSlotUnavailable = errors.New("participant slot unavailable")
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `
	id, call_id, problem, difficulty, status, host_id, participant_id,
	created_at, updated_at
`

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	if err := row.Scan(
		&session.ID,
		&session.CallID,
		&session.Problem,
		&session.Difficulty,
		&session.Status,
		&session.HostID,
		&session.ParticipantID,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO sessions (
			id, call_id, problem, difficulty, status, host_id, participant_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.CallID,
		session.Problem,
		session.Difficulty,
		session.Status,
		session.HostID,
		session.ParticipantID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCallIDTaken
		}
		return err
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ClaimParticipant assigns the participant slot atomically: the update
// only lands if the session is still active and the slot is still free,
// so two racing joins cannot both win.
func (r *SessionRepository) ClaimParticipant(ctx context.Context, id string, userID string) error {
	const query = `
		UPDATE sessions
		SET participant_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND participant_id IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

// ReleaseParticipant undoes a claim; only the claimer is released.
func (r *SessionRepository) ReleaseParticipant(ctx context.Context, id string, userID string) error {
	const query = `
		UPDATE sessions
		SET participant_id = NULL, updated_at = NOW()
		WHERE id = $1 AND participant_id = $2
	`
	_, err := r.pool.Exec(ctx, query, id, userID)
	return err
}

// MarkCompleted flips an active session to completed. Completed never
// reverts.
func (r *SessionRepository) MarkCompleted(ctx context.Context, id string) error {
	const query = `
		UPDATE sessions
		SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

const detailQuery = `
	SELECT
		s.id, s.call_id, s.problem, s.difficulty, s.status, s.host_id,
		s.participant_id, s.created_at, s.updated_at,
		h.id, h.name, h.email, h.profile_image, h.problems_solved,
		p.id, p.name, p.email, p.profile_image, p.problems_solved
	FROM sessions s
	JOIN users h ON h.id = s.host_id
	LEFT JOIN users p ON p.id = s.participant_id
`

func scanDetail(row pgx.Row) (models.SessionDetail, error) {
	var (
		detail models.SessionDetail
		pID    *string
		pName  *string
		pEmail *string
		pImage *string
		pCount *int
	)
	if err := row.Scan(
		&detail.ID,
		&detail.CallID,
		&detail.Problem,
		&detail.Difficulty,
		&detail.Status,
		&detail.HostID,
		&detail.ParticipantID,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.Host.ID,
		&detail.Host.Name,
		&detail.Host.Email,
		&detail.Host.ProfileImage,
		&detail.Host.ProblemsSolved,
		&pID,
		&pName,
		&pEmail,
		&pImage,
		&pCount,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SessionDetail{}, ErrSessionNotFound
		}
		return models.SessionDetail{}, err
	}

	if pID != nil {
		detail.Participant = &models.PublicUser{
			ID:             *pID,
			Name:           *pName,
			Email:          *pEmail,
			ProfileImage:   pImage,
			ProblemsSolved: *pCount,
		}
	}
	return detail, nil
}

func (r *SessionRepository) GetDetail(ctx context.Context, id string) (models.SessionDetail, error) {
	const query = detailQuery + ` WHERE s.id = $1`
	return scanDetail(r.pool.QueryRow(ctx, query, id))
}

func (r *SessionRepository) ListActive(ctx context.Context, limit int) ([]models.SessionDetail, error) {
	const query = detailQuery + `
		WHERE s.status = 'active'
		ORDER BY s.created_at DESC
		LIMIT $1
	`
	return r.listDetails(ctx, query, limit)
}

// ListCompletedForUser returns the sessions a user finished on either
// side of the table, newest first.
func (r *SessionRepository) ListCompletedForUser(ctx context.Context, userID string, limit int) ([]models.SessionDetail, error) {
	const query = detailQuery + `
		WHERE s.status = 'completed' AND (s.host_id = $1 OR s.participant_id = $1)
		ORDER BY s.created_at DESC
		LIMIT $2
	`
	return r.listDetails(ctx, query, userID, limit)
}

// ListStaleActive returns active sessions created before the cutoff,
// oldest first, for the reaper.
func (r *SessionRepository) ListStaleActive(ctx context.Context, cutoff time.Time, limit int) ([]models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE status = 'active' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) listDetails(ctx context.Context, query string, args ...any) ([]models.SessionDetail, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []models.SessionDetail
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, rows.Err()
}
