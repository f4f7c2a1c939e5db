// Package history records completed conversions in a SQLite database so the
// CLI can list, search, and prune past output. Writes retry on SQLITE_BUSY
// with bounded backoff because the cache and orchestrator may share the file
// across processes.
package history
