// Package store provides SQL-backed durable storage for template records.
//
// The same embedded schema serves SQLite (mattn/go-sqlite3) and PostgreSQL
// (pgx stdlib driver); Open picks the driver from the DSN. Queries are
// written with ? placeholders and rebound to $n for PostgreSQL.
//
// # Deterministic Query Results
//
//   - Listings are ordered by name ASC, id ASC
//   - Ids are UUIDv7 unless a generator is injected
//   - Timestamps come from an injectable clock and are stored as RFC 3339 TEXT
//
// # Caching
//
// Get results are held in a golang-lru cache keyed by id. Update and Delete
// evict the entry before returning, including on failure.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
