// Package memstore implements the user repository in process memory.
//
// It backs unit tests for the HTTP layer and the registry, standing in for
// the real drivers so no live store is needed.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/WolfieLeader/benchmarks/pkg/userstore"
)

// Repository is an in-memory driver guarded by a mutex.
type Repository struct {
	mu        sync.RWMutex
	users     map[string]userstore.User
	unhealthy atomic.Bool
}

var _ userstore.Repository = (*Repository)(nil)

// New creates an empty in-memory repository.
func New() *Repository {
	return &Repository{users: make(map[string]userstore.User)}
}

// SetHealthy flips the health probe outcome, for exercising degraded paths.
func (r *Repository) SetHealthy(healthy bool) {
	r.unhealthy.Store(!healthy)
}

func (r *Repository) Create(ctx context.Context, data *userstore.CreateUser) (*userstore.User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	user := userstore.BuildUser(id.String(), data)

	r.mu.Lock()
	r.users[user.ID] = *user
	r.mu.Unlock()
	return user, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*userstore.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *Repository) Update(ctx context.Context, id string, data *userstore.UpdateUser) (*userstore.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
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
	r.users[id] = user
	return &user, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	r.users = make(map[string]userstore.User)
	r.mu.Unlock()
	return nil
}

func (r *Repository) HealthCheck(ctx context.Context) bool {
	return !r.unhealthy.Load()
}

func (r *Repository) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	r.users = nil
	r.mu.Unlock()
	return nil
}
