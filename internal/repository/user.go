// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kigogo-backend/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrDuplicatePhone        = errors.New("phone number already exists")
	ErrDuplicateReferralCode = errors.New("referral code already exists")
)

const (
	uniqueViolation = "23505"

	phoneConstraint        = "users_phone_number_key"
	referralCodeConstraint = "users_referral_code_key"
)

const userColumns = `
	id, phone_number, user_name, password, tiktok_name, youtube_name, instagram_name,
	referral_code, referred_by, bonus_amount_tl, bonus_amount_refs, bonus_amount_tasks,
	balance, referrals, created_at, updated_at`

// UserRepository handles user data persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.PhoneNumber,
		&user.UserName,
		&user.Password,
		&user.TiktokName,
		&user.YoutubeName,
		&user.InstagramName,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.BonusAmountTL,
		&user.BonusAmountRefs,
		&user.BonusAmountTasks,
		&user.Balance,
		&user.Referrals,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new account. Balance, referral count and bonus ledgers are
// taken from user as given; the ID and timestamps are filled in on return.
// Unique violations are reported as ErrDuplicatePhone or ErrDuplicateReferralCode.
func (r *UserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (
			phone_number, user_name, password, tiktok_name, youtube_name, instagram_name,
			referral_code, referred_by, bonus_amount_tl, bonus_amount_refs, bonus_amount_tasks,
			balance, referrals, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING ` + userColumns

	created, err := scanUser(r.pool.QueryRow(ctx, query,
		user.PhoneNumber,
		user.UserName,
		user.Password,
		user.TiktokName,
		user.YoutubeName,
		user.InstagramName,
		user.ReferralCode,
		user.ReferredBy,
		user.BonusAmountTL,
		user.BonusAmountRefs,
		user.BonusAmountTasks,
		user.Balance,
		user.Referrals,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case phoneConstraint:
				return nil, ErrDuplicatePhone
			case referralCodeConstraint:
				return nil, ErrDuplicateReferralCode
			}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// GetByPhone retrieves a user by phone number.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone_number = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}

	return user, nil
}

// GetByReferralCode retrieves the account owning the given referral code.
// Returns ErrUserNotFound if no account owns it.
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE referral_code = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}

	return user, nil
}

// ReferralCodeExists checks whether any account already owns code.
func (r *UserRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE referral_code = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check referral code: %w", err)
	}

	return exists, nil
}

// IncrementReferrals adds one to the referral counter of the given account.
func (r *UserRepository) IncrementReferrals(ctx context.Context, id int64) error {
	const query = `
		UPDATE users
		SET referrals = referrals + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment referrals: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetBalance sets an account's balance to an exact value.
func (r *UserRepository) SetBalance(ctx context.Context, phone string, balance int64) (*model.User, error) {
	query := `
		UPDATE users
		SET balance = $2, updated_at = NOW()
		WHERE phone_number = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, phone, balance))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}

	return user, nil
}

// List retrieves every account ordered by ID.
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Ping verifies the database is reachable.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
