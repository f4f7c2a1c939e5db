// Package notifications pushes conversion lifecycle events to an ntfy topic.
// When no topic is configured a noop implementation is returned so callers
// never branch on notification availability.
package notifications
