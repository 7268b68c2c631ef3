// Package userstore defines the user CRUD contract shared by every storage
// driver, plus the registry that hands out one lazily-constructed driver
// instance per backend.
package userstore

import "context"

// Backend identifies one of the supported storage technologies.
type Backend string

const (
	BackendPostgres  Backend = "postgres"
	BackendMongoDB   Backend = "mongodb"
	BackendRedis     Backend = "redis"
	BackendCassandra Backend = "cassandra"
)

// Backends lists every supported backend tag.
var Backends = []Backend{BackendPostgres, BackendMongoDB, BackendRedis, BackendCassandra}

// IsBackend reports whether value names a supported backend.
func IsBackend(value string) bool {
	for _, b := range Backends {
		if string(b) == value {
			return true
		}
	}
	return false
}

// Repository is the uniform operation set every storage driver implements.
// Callers depend only on this interface, never on a driver's native types.
//
// Absence is a normal return value, not an error: FindByID and Update return
// a nil User for ids that are malformed or missing, and Delete returns false.
// Errors are reserved for storage and transport faults.
type Repository interface {
	// Create persists the payload under a freshly generated backend-native
	// id and returns the resulting user.
	Create(ctx context.Context, data *CreateUser) (*User, error)

	// FindByID looks a user up by its external string id.
	FindByID(ctx context.Context, id string) (*User, error)

	// Update applies the non-nil patch fields to an existing user and
	// returns the patched state. An empty patch returns the current state.
	Update(ctx context.Context, id string, data *UpdateUser) (*User, error)

	// Delete removes a user, reporting whether a row actually existed.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteAll unconditionally empties the backend's user collection.
	DeleteAll(ctx context.Context) error

	// HealthCheck probes the backend with a cheap liveness query. It never
	// returns an error; any fault reads as unhealthy.
	HealthCheck(ctx context.Context) bool

	// Disconnect releases the driver's connections and pools. Idempotent;
	// the driver is unusable afterwards.
	Disconnect(ctx context.Context) error
}
