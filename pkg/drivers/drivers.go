// Package drivers wires the concrete storage drivers into a registry.
package drivers

import (
	"github.com/WolfieLeader/benchmarks/pkg/config"
	"github.com/WolfieLeader/benchmarks/pkg/drivers/cassandra"
	"github.com/WolfieLeader/benchmarks/pkg/drivers/mongodb"
	"github.com/WolfieLeader/benchmarks/pkg/drivers/postgres"
	"github.com/WolfieLeader/benchmarks/pkg/drivers/redis"
	"github.com/WolfieLeader/benchmarks/pkg/userstore"
)

// NewRegistry builds the production registry: one factory per backend,
// each deferring its connection until first use.
func NewRegistry(settings *config.Settings) *userstore.Registry {
	return userstore.NewRegistry(map[userstore.Backend]userstore.Factory{
		userstore.BackendPostgres: func() userstore.Repository {
			return postgres.New(settings.PostgresURL)
		},
		userstore.BackendMongoDB: func() userstore.Repository {
			return mongodb.New(settings.MongoDBURL, settings.MongoDBDatabase)
		},
		userstore.BackendRedis: func() userstore.Repository {
			return redis.New(settings.RedisURL)
		},
		userstore.BackendCassandra: func() userstore.Repository {
			return cassandra.New(settings.CassandraContactPoints, settings.CassandraLocalDC, settings.CassandraKeyspace)
		},
	})
}
