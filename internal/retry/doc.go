// Package retry decides, for a single observed failure, whether the
// operation should be retried after a computed backoff delay, routed to a
// fallback action, or aborted. It owns no execution; the recovery
// coordinator drives the loop.
package retry
