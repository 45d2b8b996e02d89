package postgres

import (
	"context"

	"github.com/diagnosis/sai-platform/internal/domain"
	"github.com/diagnosis/sai-platform/internal/repo"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, email_verified, verification_token, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.EmailVerified, &u.VerificationToken, &u.CreatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, nu *domain.NewUser) (*domain.User, error) {
	const q = `
INSERT INTO users (username, email, password_hash, first_name, last_name, verification_token)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING ` + userColumns
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, q,
		nu.Username, nu.Email, nu.PasswordHash, nu.FirstName, nu.LastName, nu.VerificationToken,
	))
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, q, id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, q, username))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, q, email))
}

func (s *Store) GetUserByUsernameOrEmail(ctx context.Context, login string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username=$1 OR lower(email)=lower($1) ORDER BY id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, q, login))
}

func (s *Store) GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, repo.ErrNotFound
	}
	const q = `SELECT ` + userColumns + ` FROM users WHERE verification_token=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, q, token))
}

func (s *Store) MarkUserVerified(ctx context.Context, id int64) error {
	const q = `UPDATE users SET email_verified=TRUE, verification_token=NULL WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
