// Package postgres implements the user repository on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WolfieLeader/benchmarks/pkg/userstore"
)

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		favorite_number INT
	)
`

// Repository is the relational driver. The pool is established lazily on
// first use and shared by all callers for the process lifetime. Only a
// successful connect is memoized; a failed attempt redials on the next call,
// so a store that was down at startup comes back once it recovers.
type Repository struct {
	url  string
	mu   sync.Mutex
	pool *pgxpool.Pool
}

var _ userstore.Repository = (*Repository)(nil)

// New creates the driver without connecting.
func New(connectionString string) *Repository {
	return &Repository{url: connectionString}
}

func (r *Repository) connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool != nil {
		return nil
	}

	poolConfig, err := pgxpool.ParseConfig(r.url)
	if err != nil {
		return fmt.Errorf("failed to parse postgres URL: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ensure users table: %w", err)
	}

	r.pool = pool
	slog.Info("postgres connected", "max_conns", poolConfig.MaxConns)
	return nil
}

// parseID maps the external string id to the native UUID key. Malformed
// input reads as "no such row", indistinguishable from a miss.
func parseID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, false
	}
	return parsed, true
}

func (r *Repository) Create(ctx context.Context, data *userstore.CreateUser) (*userstore.User, error) {
	if err := r.connect(ctx); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, favorite_number)
		VALUES ($1, $2, $3, $4)
	`, id, data.Name, data.Email, data.FavoriteNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return userstore.BuildUser(id.String(), data), nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*userstore.User, error) {
	if err := r.connect(ctx); err != nil {
		return nil, err
	}

	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return r.findByKey(ctx, r.pool, key)
}

// rowQuerier is satisfied by both the pool and a transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) findByKey(ctx context.Context, q rowQuerier, key uuid.UUID) (*userstore.User, error) {
	var (
		name, email    string
		favoriteNumber *int
	)
	err := q.QueryRow(ctx, `
		SELECT name, email, favorite_number FROM users WHERE id = $1
	`, key).Scan(&name, &email, &favoriteNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &userstore.User{ID: key.String(), Name: name, Email: email, FavoriteNumber: favoriteNumber}, nil
}

func (r *Repository) Update(ctx context.Context, id string, data *userstore.UpdateUser) (*userstore.User, error) {
	if err := r.connect(ctx); err != nil {
		return nil, err
	}

	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	if data.Empty() {
		return r.findByKey(ctx, r.pool, key)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := r.findByKey(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	if data.Name != nil {
		user.Name = *data.Name
	}
	if data.Email != nil {
		user.Email = *data.Email
	}
	if data.FavoriteNumber != nil {
		user.FavoriteNumber = data.FavoriteNumber
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, favorite_number = $4 WHERE id = $1
	`, key, user.Name, user.Email, user.FavoriteNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	return user, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	if err := r.connect(ctx); err != nil {
		return false, err
	}

	key, ok := parseID(id)
	if !ok {
		return false, nil
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	if err := r.connect(ctx); err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to delete all users: %w", err)
	}
	return nil
}

func (r *Repository) HealthCheck(ctx context.Context) bool {
	if err := r.connect(ctx); err != nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var one int
	return r.pool.QueryRow(probeCtx, `SELECT 1`).Scan(&one) == nil
}

func (r *Repository) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
		slog.Info("postgres disconnected")
	}
	return nil
}
