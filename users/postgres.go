package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardhub/tokenauth"
)

// PostgresProvider reads accounts from the users table.
type PostgresProvider struct {
	db *pgxpool.Pool
}

// NewPostgres connects to dsn and pings the server.
func NewPostgres(ctx context.Context, dsn string) (*PostgresProvider, error) {
	const op = "users.NewPostgres"

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresProvider{db: db}, nil
}

func (p *PostgresProvider) Close() {
	p.db.Close()
}

// GetUserByIdentifier looks the account up by e-mail. Unknown addresses
// return an error wrapping tokenauth.ErrUserNotFound.
func (p *PostgresProvider) GetUserByIdentifier(ctx context.Context, identifier string) (tokenauth.UserRecord, error) {
	const op = "users.PostgresProvider.GetUserByIdentifier"

	query := `
		SELECT email, username, role, password_hash
		FROM users
		WHERE lower(email) = $1
	`

	var rec tokenauth.UserRecord
	err := p.db.QueryRow(ctx, query, normalize(identifier)).Scan(
		&rec.Subject,
		&rec.Username,
		&rec.Role,
		&rec.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tokenauth.UserRecord{}, fmt.Errorf("%s: %w", op, tokenauth.ErrUserNotFound)
		}
		return tokenauth.UserRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	return rec, nil
}

// UpdatePasswordHash replaces the stored hash for subject.
func (p *PostgresProvider) UpdatePasswordHash(ctx context.Context, subject, newHash string) error {
	const op = "users.PostgresProvider.UpdatePasswordHash"

	query := `
		UPDATE users
		SET password_hash = $2, updated_at = now()
		WHERE lower(email) = $1
	`

	tag, err := p.db.Exec(ctx, query, normalize(subject), newHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, tokenauth.ErrUserNotFound)
	}

	return nil
}

// Create inserts an account. Used by seeding and tests; the service itself
// never registers users.
func (p *PostgresProvider) Create(ctx context.Context, rec tokenauth.UserRecord) error {
	const op = "users.PostgresProvider.Create"

	query := `
		INSERT INTO users (email, username, role, password_hash)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := p.db.Exec(ctx, query, rec.Subject, rec.Username, rec.Role, rec.PasswordHash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ tokenauth.UserProvider = (*PostgresProvider)(nil)
