// Package config loads, normalizes, and validates clipbook's TOML
// configuration. Load applies defaults first, then overlays the file (when
// present), expands paths, and rejects unusable combinations before any
// component sees the values.
package config
