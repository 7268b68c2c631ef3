package userstore

import (
	"context"
	"log/slog"
	"sync"
)

// Factory constructs a driver for one backend. Construction must be cheap:
// drivers connect lazily on first use, not here.
type Factory func() Repository

// Registry maps backend tags to their process-lifetime driver singletons.
// It is owned by the composition root and injected into the HTTP layer.
type Registry struct {
	mu        sync.RWMutex
	factories map[Backend]Factory
	repos     map[Backend]Repository
}

// NewRegistry creates a registry over the given driver factories. Drivers
// are constructed on first Resolve, at most once per backend.
func NewRegistry(factories map[Backend]Factory) *Registry {
	return &Registry{
		factories: factories,
		repos:     make(map[Backend]Repository, len(factories)),
	}
}

// Resolve returns the driver for the named backend, constructing it on
// first use. Unknown names return nil without constructing anything.
func (r *Registry) Resolve(name string) Repository {
	if !IsBackend(name) {
		return nil
	}
	return r.get(Backend(name))
}

func (r *Registry) get(backend Backend) Repository {
	r.mu.RLock()
	repo, ok := r.repos[backend]
	r.mu.RUnlock()
	if ok {
		return repo
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock so concurrent first calls for the same
	// backend construct exactly one driver.
	if repo, ok = r.repos[backend]; ok {
		return repo
	}

	factory, ok := r.factories[backend]
	if !ok {
		return nil
	}
	repo = factory()
	r.repos[backend] = repo
	return repo
}

// InitializeAll eagerly constructs every backend and probes it concurrently,
// so first real traffic does not pay connection-setup latency. A failing
// probe is logged and does not block the others or abort startup.
func (r *Registry) InitializeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, backend := range Backends {
		repo := r.get(backend)
		if repo == nil {
			continue
		}
		wg.Add(1)
		go func(backend Backend, repo Repository) {
			defer wg.Done()
			if repo.HealthCheck(ctx) {
				slog.Info("backend ready", "backend", backend)
			} else {
				slog.Warn("backend unavailable", "backend", backend)
			}
		}(backend, repo)
	}
	wg.Wait()
}

// DisconnectAll disconnects every constructed driver concurrently and clears
// the registry. Drivers that were never constructed are skipped, and one
// driver's disconnect fault never prevents disconnecting the rest.
func (r *Registry) DisconnectAll(ctx context.Context) {
	r.mu.Lock()
	repos := r.repos
	r.repos = make(map[Backend]Repository, len(r.factories))
	r.mu.Unlock()

	var wg sync.WaitGroup
	for backend, repo := range repos {
		wg.Add(1)
		go func(backend Backend, repo Repository) {
			defer wg.Done()
			if err := repo.Disconnect(ctx); err != nil {
				slog.Error("backend disconnect failed", "backend", backend, "error", err)
				return
			}
			slog.Info("backend disconnected", "backend", backend)
		}(backend, repo)
	}
	wg.Wait()
}
