// Package cassandra implements the user repository on Cassandra via gocql.
//
// The native driver blocks on storage I/O, so every session call is
// dispatched through a bounded worker pool; callers beyond the pool size
// queue, which bounds concurrent storage calls and gives natural
// backpressure.
package cassandra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/WolfieLeader/benchmarks/pkg/userstore"
)

const defaultWorkers = 4

// The keyspace must exist already; replication strategy is a deployment
// decision, not the driver's.
const schema = `CREATE TABLE IF NOT EXISTS users (
	id uuid PRIMARY KEY,
	name text,
	email text,
	favorite_number int
)`

// Repository is the wide-column driver. The session is established lazily on
// first use, with a datacenter-aware routing policy and a fixed keyspace.
// Only a successful connect is memoized; a failed attempt is retried on the
// next call.
type Repository struct {
	contactPoints []string
	localDC       string
	keyspace      string
	mu            sync.Mutex
	session       *gocql.Session
	executor      *ants.Pool
}

var _ userstore.Repository = (*Repository)(nil)

// New creates the driver without connecting.
func New(contactPoints []string, localDC, keyspace string) *Repository {
	// The pool itself is cheap; only the session is deferred.
	executor, err := ants.NewPool(defaultWorkers)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(fmt.Sprintf("cassandra executor: %v", err))
	}
	return &Repository{
		contactPoints: contactPoints,
		localDC:       localDC,
		keyspace:      keyspace,
		executor:      executor,
	}
}

func (r *Repository) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return nil
	}

	cluster := gocql.NewCluster(r.contactPoints...)
	cluster.Keyspace = r.keyspace
	cluster.Consistency = gocql.Quorum
	if r.localDC != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.DCAwareRoundRobinPolicy(r.localDC)
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to create cassandra session: %w", err)
	}
	if err := session.Query(schema).Exec(); err != nil {
		session.Close()
		return fmt.Errorf("failed to ensure users table: %w", err)
	}
	r.session = session
	slog.Info("cassandra connected", "keyspace", r.keyspace, "local_dc", r.localDC)
	return nil
}

// run executes fn on the bounded executor and suspends the caller until it
// finishes or ctx is done.
func (r *Repository) run(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	if err := r.executor.Submit(func() { done <- fn() }); err != nil {
		return fmt.Errorf("failed to submit storage call: %w", err)
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseID maps the external string id to the native time-ordered UUID.
func parseID(id string) (gocql.UUID, bool) {
	parsed, err := gocql.ParseUUID(id)
	if err != nil {
		return gocql.UUID{}, false
	}
	return parsed, true
}

func (r *Repository) Create(ctx context.Context, data *userstore.CreateUser) (*userstore.User, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	generated, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}
	id := gocql.UUID(generated)

	err = r.run(ctx, func() error {
		if data.FavoriteNumber != nil {
			return r.session.Query(
				`INSERT INTO users (id, name, email, favorite_number) VALUES (?, ?, ?, ?)`,
				id, data.Name, data.Email, *data.FavoriteNumber,
			).WithContext(ctx).Exec()
		}
		return r.session.Query(
			`INSERT INTO users (id, name, email) VALUES (?, ?, ?)`,
			id, data.Name, data.Email,
		).WithContext(ctx).Exec()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return userstore.BuildUser(id.String(), data), nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*userstore.User, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return r.findByKey(ctx, key)
}

func (r *Repository) findByKey(ctx context.Context, key gocql.UUID) (*userstore.User, error) {
	var (
		name, email    string
		favoriteNumber *int
	)
	err := r.run(ctx, func() error {
		return r.session.Query(
			`SELECT name, email, favorite_number FROM users WHERE id = ?`, key,
		).WithContext(ctx).Scan(&name, &email, &favoriteNumber)
	})
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &userstore.User{ID: key.String(), Name: name, Email: email, FavoriteNumber: favoriteNumber}, nil
}

func (r *Repository) Update(ctx context.Context, id string, data *userstore.UpdateUser) (*userstore.User, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	key, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	// Cassandra upserts blindly, so existence needs an explicit read.
	existing, err := r.findByKey(ctx, key)
	if err != nil || existing == nil {
		return nil, err
	}
	if data.Empty() {
		return existing, nil
	}

	assignments := make([]string, 0, 3)
	params := make([]any, 0, 4)
	if data.Name != nil {
		assignments = append(assignments, "name = ?")
		params = append(params, *data.Name)
		existing.Name = *data.Name
	}
	if data.Email != nil {
		assignments = append(assignments, "email = ?")
		params = append(params, *data.Email)
		existing.Email = *data.Email
	}
	if data.FavoriteNumber != nil {
		assignments = append(assignments, "favorite_number = ?")
		params = append(params, *data.FavoriteNumber)
		existing.FavoriteNumber = data.FavoriteNumber
	}
	params = append(params, key)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = ?`, joinAssignments(assignments))
	err = r.run(ctx, func() error {
		return r.session.Query(query, params...).WithContext(ctx).Exec()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return existing, nil
}

func joinAssignments(assignments []string) string {
	out := assignments[0]
	for _, a := range assignments[1:] {
		out += ", " + a
	}
	return out
}

func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	if err := r.connect(); err != nil {
		return false, err
	}

	key, ok := parseID(id)
	if !ok {
		return false, nil
	}

	// Deletes don't report whether a row existed; read first.
	existing, err := r.findByKey(ctx, key)
	if err != nil || existing == nil {
		return false, err
	}

	err = r.run(ctx, func() error {
		return r.session.Query(`DELETE FROM users WHERE id = ?`, key).WithContext(ctx).Exec()
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return true, nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	if err := r.connect(); err != nil {
		return err
	}

	err := r.run(ctx, func() error {
		return r.session.Query(`TRUNCATE users`).WithContext(ctx).Exec()
	})
	if err != nil {
		return fmt.Errorf("failed to truncate users: %w", err)
	}
	return nil
}

func (r *Repository) HealthCheck(ctx context.Context) bool {
	if err := r.connect(); err != nil {
		return false
	}

	var now gocql.UUID
	err := r.run(ctx, func() error {
		return r.session.Query(`SELECT now() FROM system.local`).WithContext(ctx).Scan(&now)
	})
	return err == nil
}

func (r *Repository) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		r.session.Close()
		r.session = nil
		slog.Info("cassandra disconnected")
	}
	r.executor.Release()
	return nil
}
