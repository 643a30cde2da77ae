// Package redis provides the Redis client component and a TypedStore that
// backs conversation memory when it must outlive one process.
//
// TypedStore implements provider.ContextStore[C]:
//
//	store := redis.NewTypedStore[builtin.History](client, cfg.KeyPrefix)
//	plugins, err := builtin.NewRegistry(builtin.Options{Memory: store})
package redis
