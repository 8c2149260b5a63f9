package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codepair/api/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	id, external_id, email, name, profile_image, problems_solved,
	is_premium, subscription_tier, created_at, updated_at
`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.ExternalID,
		&user.Email,
		&user.Name,
		&user.ProfileImage,
		&user.ProblemsSolved,
		&user.IsPremium,
		&user.Tier,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, external_id, email, name, profile_image, problems_solved,
			is_premium, subscription_tier, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.ExternalID,
		user.Email,
		user.Name,
		user.ProfileImage,
		user.ProblemsSolved,
		user.IsPremium,
		user.Tier,
	)
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, externalID))
}

// Leaderboard returns the top users by solved count, ties broken by
// earliest signup.
func (r *UserRepository) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY problems_solved DESC, created_at ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// AdjustSolved moves a user's solved counter by delta. Negative deltas
// exist only for saga compensation; the counter never drops below zero.
func (r *UserRepository) AdjustSolved(ctx context.Context, id string, delta int) error {
	const query = `
		UPDATE users
		SET problems_solved = GREATEST(problems_solved + $2, 0), updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Upgrade(ctx context.Context, id string, tier models.SubscriptionTier) (models.User, error) {
	const query = `
		UPDATE users
		SET is_premium = TRUE, subscription_tier = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, id, tier))
}
