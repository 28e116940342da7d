// Package budget prices planned generation operations, records actual spend
// in an append-only SQLite ledger, and gates further work once the configured
// limit would be exceeded. Estimates never mutate accumulated spend; Track is
// the only write path.
package budget
