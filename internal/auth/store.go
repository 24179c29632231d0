package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagecrew/backend-offers/internal/common"
)

// UserRecord is the persisted shape of a user account.
type UserRecord struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists user accounts in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// GetUserByEmail loads a user by normalised email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	if s == nil || s.Pool == nil {
		return UserRecord{}, errors.New("auth: pool not configured")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByID loads a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (UserRecord, error) {
	if s == nil || s.Pool == nil {
		return UserRecord{}, errors.New("auth: pool not configured")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true})
	return scanUser(row)
}

// CreateUser inserts a new account and returns the stored row.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string, role Role) (UserRecord, error) {
	if s == nil || s.Pool == nil {
		return UserRecord{}, errors.New("auth: pool not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		name, email, passwordHash, string(role))
	return scanUser(row)
}

func scanUser(row pgx.Row) (UserRecord, error) {
	var (
		id        pgtype.UUID
		u         UserRecord
		role      string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(&id, &u.Name, &u.Email, &u.PasswordHash, &role, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, common.ErrNotFound
		}
		return UserRecord{}, err
	}
	u.ID = uuid.UUID(id.Bytes)
	u.Role = Role(role)
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time
	return u, nil
}
