// Package redis stores orchestration instances in Redis.
//
// Each instance is one hash holding the submitted graph, the latest snapshot
// and its sequence number. Snapshot writes run as a Lua script so an older
// sequence never overwrites a newer one. Unfinished instances are indexed in
// a set so the engine can resume them after a restart.
//
//	comp := redis.NewComponent(cfg, log)
//	registry.Register(comp)
//	// after start
//	st := comp.Store()
package redis
