// Package notifications delivers run lifecycle events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Per-event toggles let users silence completions or failures without
// removing the topic.
//
// Extend this package if you need alternative transports; pipeline code
// depends only on the simple Service interface, and delivery failures
// are surfaced as ordinary errors so callers can log and move on.
package notifications
