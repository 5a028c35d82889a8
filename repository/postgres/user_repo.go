package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vibesocial/backend/domain"
	"github.com/vibesocial/backend/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `
	id, first_name, last_name, email, username, avatar, bio, location,
	phone, website, birth_date, gender, is_active, is_verified,
	account_status, onboarding_completed, password_hash, created_at, updated_at
`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email,
		&user.Username, &user.Avatar, &user.Bio, &user.Location,
		&user.Phone, &user.Website, &user.BirthDate, &user.Gender,
		&user.IsActive, &user.IsVerified, &user.AccountStatus,
		&user.OnboardingCompleted, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO users (
		id, first_name, last_name, email, username, avatar, bio, location,
		phone, website, birth_date, gender, is_active, is_verified,
		account_status, onboarding_completed, password_hash, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
	RETURNING created_at, updated_at;
	`

	return r.pool.QueryRow(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Email,
		user.Username, user.Avatar, user.Bio, user.Location,
		user.Phone, user.Website, user.BirthDate, user.Gender,
		user.IsActive, user.IsVerified, user.AccountStatus,
		user.OnboardingCompleted, user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	if user == nil || user.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE users
	SET username = $2, avatar = $3, bio = $4, location = $5, phone = $6,
		website = $7, birth_date = $8, gender = $9, updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at;
	`

	if err := r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Avatar, user.Bio, user.Location,
		user.Phone, user.Website, user.BirthDate, user.Gender,
	).Scan(&user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return err
	}
	return nil
}

func (r *userRepository) SetOnboardingCompleted(ctx context.Context, id string) error {
	const query = `
	UPDATE users SET onboarding_completed = TRUE, updated_at = NOW() WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
