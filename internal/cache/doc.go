// Package cache persists conversion results under content-derived keys.
// Entries are file-per-key JSON blobs beside an index tracking size and
// access times. A single mutex serializes index mutations, a directory file
// lock guards against other processes, and a per-key in-flight map lets
// concurrent identical builds share one execution.
package cache
