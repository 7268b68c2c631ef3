// Package redis implements the user repository on Redis hashes.
//
// Each user lives in a hash under "user:<id>" with fields name, email and
// favoriteNumber (stored as its decimal string form).
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/WolfieLeader/benchmarks/pkg/userstore"
)

const keyPrefix = "user:"

// Repository is the key-value driver. The client is created lazily on first
// use; go-redis manages its own connection pool underneath. Only a successful
// setup is memoized; a failed attempt is retried on the next call.
type Repository struct {
	url    string
	mu     sync.Mutex
	client *redis.Client
}

var _ userstore.Repository = (*Repository)(nil)

// New creates the driver without connecting.
func New(connectionString string) *Repository {
	return &Repository{url: connectionString}
}

func (r *Repository) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return nil
	}

	opts, err := redis.ParseURL(r.url)
	if err != nil {
		return fmt.Errorf("failed to parse redis URL: %w", err)
	}
	r.client = redis.NewClient(opts)
	slog.Info("redis connected", "addr", opts.Addr)
	return nil
}

func key(id string) string {
	return keyPrefix + id
}

func (r *Repository) Create(ctx context.Context, data *userstore.CreateUser) (*userstore.User, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}
	idStr := id.String()

	fields := map[string]any{
		"name":  data.Name,
		"email": data.Email,
	}
	if data.FavoriteNumber != nil {
		fields["favoriteNumber"] = strconv.Itoa(*data.FavoriteNumber)
	}

	if err := r.client.HSet(ctx, key(idStr), fields).Err(); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}
	return userstore.BuildUser(idStr, data), nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*userstore.User, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	values, err := r.client.HMGet(ctx, key(id), "name", "email", "favoriteNumber").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}

	name, nameOK := values[0].(string)
	email, emailOK := values[1].(string)
	if !nameOK || !emailOK {
		// Missing key or missing required fields both read as not found.
		return nil, nil
	}

	user := &userstore.User{ID: id, Name: name, Email: email}
	if raw, ok := values[2].(string); ok {
		favorite, err := strconv.Atoi(raw)
		if err != nil {
			// Corrupt hash field; treat the record as gone.
			return nil, nil
		}
		user.FavoriteNumber = &favorite
	}
	return user, nil
}

func (r *Repository) Update(ctx context.Context, id string, data *userstore.UpdateUser) (*userstore.User, error) {
	if err := r.connect(); err != nil {
		return nil, err
	}

	exists, err := r.client.Exists(ctx, key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists == 0 {
		return nil, nil
	}

	fields := make(map[string]any)
	if data.Name != nil {
		fields["name"] = *data.Name
	}
	if data.Email != nil {
		fields["email"] = *data.Email
	}
	if data.FavoriteNumber != nil {
		fields["favoriteNumber"] = strconv.Itoa(*data.FavoriteNumber)
	}

	// Exists-then-HSet is not atomic against a concurrent delete of the
	// same id; the hash primitive offers no find-and-modify equivalent.
	if len(fields) > 0 {
		if err := r.client.HSet(ctx, key(id), fields).Err(); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return r.FindByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	if err := r.connect(); err != nil {
		return false, err
	}

	deleted, err := r.client.Del(ctx, key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return deleted > 0, nil
}

// DeleteAll discovers keys by SCAN over the "user:" prefix and deletes them
// in batches. Not atomic: writers racing the scan may survive it.
func (r *Repository) DeleteAll(ctx context.Context) error {
	if err := r.connect(); err != nil {
		return err
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan user keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete user keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (r *Repository) HealthCheck(ctx context.Context) bool {
	if err := r.connect(); err != nil {
		return false
	}
	return r.client.Ping(ctx).Err() == nil
}

func (r *Repository) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	slog.Info("redis disconnected")
	return nil
}
