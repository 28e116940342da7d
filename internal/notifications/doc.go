// Package notifications delivers pipeline lifecycle events to the user via
// ntfy push notifications. When no topic is configured every notification is
// a no-op.
package notifications
