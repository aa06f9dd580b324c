package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arjunhariram/ent-web/entity"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrAlreadyRegistered is returned when creating a user for a taken mobile number.
	ErrAlreadyRegistered = errors.New("mobile number already registered")
	// ErrUserNotFound is returned by updates on a missing user.
	ErrUserNotFound = errors.New("user not found")
)

const uniqueViolation = "23505"

// UserRepository interface defines user data operations
type UserRepository interface {
	// GetByMobileNumber returns nil, nil when no user exists.
	GetByMobileNumber(ctx context.Context, mobile entity.MobileNumber) (*entity.User, error)
	// GetByID returns nil, nil when no user exists.
	GetByID(ctx context.Context, id int) (*entity.User, error)
	Exists(ctx context.Context, mobile entity.MobileNumber) (bool, error)
	Create(ctx context.Context, mobile entity.MobileNumber, passwordHash string) (*entity.User, error)
	// UpdatePassword moves the current hash into history, trims history and
	// stores the new hash in one transaction.
	UpdatePassword(ctx context.Context, mobile entity.MobileNumber, passwordHash string) error
	RecentPasswordHashes(ctx context.Context, mobile entity.MobileNumber, limit int) ([]string, error)
}

// userRepository implements UserRepository interface
type userRepository struct {
	db          *sqlx.DB
	historySize int
}

// NewUserRepository creates a new user repository instance that keeps
// historySize previous password hashes per user
func NewUserRepository(db *sqlx.DB, historySize int) UserRepository {
	return &userRepository{
		db:          db,
		historySize: historySize,
	}
}

// GetByMobileNumber retrieves a user by mobile number
func (r *userRepository) GetByMobileNumber(ctx context.Context, mobile entity.MobileNumber) (*entity.User, error) {
	query := `
		SELECT id, mobile_number, password_hash, created_at, updated_at
		FROM users
		WHERE mobile_number = $1
	`

	var user entity.User
	err := r.db.GetContext(ctx, &user, query, mobile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by mobile number: %w", err)
	}

	return &user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int) (*entity.User, error) {
	query := `
		SELECT id, mobile_number, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user entity.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// Exists reports whether the mobile number is registered
func (r *userRepository) Exists(ctx context.Context, mobile entity.MobileNumber) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE mobile_number = $1)`, mobile)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// Create inserts a new user with its first password hash
func (r *userRepository) Create(ctx context.Context, mobile entity.MobileNumber, passwordHash string) (*entity.User, error) {
	query := `
		INSERT INTO users (mobile_number, password_hash)
		VALUES ($1, $2)
		RETURNING id, mobile_number, password_hash, created_at, updated_at
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var user entity.User
	if err := tx.GetContext(ctx, &user, query, mobile, passwordHash); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}

	return &user, nil
}

// UpdatePassword replaces the password hash and records the old one in history
func (r *userRepository) UpdatePassword(ctx context.Context, mobile entity.MobileNumber, passwordHash string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentHash string
	err = tx.GetContext(ctx, &currentHash, `SELECT password_hash FROM users WHERE mobile_number = $1 FOR UPDATE`, mobile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to lock user: %w", err)
	}

	if err := r.insertPasswordHistory(ctx, tx, mobile, currentHash); err != nil {
		return err
	}

	if err := r.deleteOldestPasswordHistory(ctx, tx, mobile); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, updated_at = NOW()
		WHERE mobile_number = $2
	`, passwordHash, mobile)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit password update: %w", err)
	}

	return nil
}

// RecentPasswordHashes returns up to limit previous hashes, newest first
func (r *userRepository) RecentPasswordHashes(ctx context.Context, mobile entity.MobileNumber, limit int) ([]string, error) {
	query := `
		SELECT password_hash
		FROM user_passwords
		WHERE mobile_number = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	var hashes []string
	if err := r.db.SelectContext(ctx, &hashes, query, mobile, limit); err != nil {
		return nil, fmt.Errorf("failed to get password history: %w", err)
	}
	return hashes, nil
}

func (r *userRepository) insertPasswordHistory(ctx context.Context, tx *sqlx.Tx, mobile entity.MobileNumber, passwordHash string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO user_passwords (mobile_number, password_hash) VALUES ($1, $2)`, mobile, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to insert password history: %w", err)
	}
	return nil
}

// deleteOldestPasswordHistory keeps only the newest historySize entries
func (r *userRepository) deleteOldestPasswordHistory(ctx context.Context, tx *sqlx.Tx, mobile entity.MobileNumber) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM user_passwords
		WHERE id IN (
			SELECT id FROM user_passwords
			WHERE mobile_number = $1
			ORDER BY created_at DESC, id DESC
			OFFSET $2
		)
	`, mobile, r.historySize)
	if err != nil {
		return fmt.Errorf("failed to trim password history: %w", err)
	}
	return nil
}
