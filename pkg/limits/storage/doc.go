// Package storage implements the durable relational store (plans, clients,
// global rate limit rules) and the shared counter store (atomic
// check-and-increment, subscription cache) that the rest of the limits
// packages depend on.
//
// DurableStore is backed by SQLite in WAL mode. CounterStore has two
// implementations: RedisCounterStore, which runs an embedded Lua script
// via EvalSha for the atomic evaluator, and MemoryCounterStore, a
// single-process double used by tests and the "memory" counters backend.
package storage
