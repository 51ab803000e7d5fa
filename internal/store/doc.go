// Package store provides a SQLite-backed relational source for paged
// queries.
//
// A Store wraps a single sqlx connection and implements paging.Source:
// commands are executed with their parameters bound as sql.Named values, so
// the @p1 placeholders emitted by internal/sqlgen bind by name.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Open applies the embedded schema, which creates the sample people table
// used by the CLI and the package tests. Tables created by other means are
// queried the same way.
package store
