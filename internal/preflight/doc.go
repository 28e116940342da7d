// Package preflight validates the environment before a generation run:
// directory access, free disk space, API keys, and service reachability.
package preflight
