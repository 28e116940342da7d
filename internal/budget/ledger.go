package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one append-only cost record. Entries are never mutated after
// creation.
type Entry struct {
	ID            int64
	CreatedAt     time.Time
	Kind          Kind
	Model         string
	InputUnits    float64
	OutputUnits   float64
	Complexity    Complexity
	EstimatedCost float64
	ActualCost    float64
	Service       string
}

// timeLayout keeps a fixed-width fraction so lexicographic comparison in
// SQL matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Ledger manages cost entry persistence backed by SQLite.
type Ledger struct {
	db   *sql.DB
	path string
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS cost_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TEXT NOT NULL,
    kind TEXT NOT NULL,
    model TEXT NOT NULL,
    input_units REAL NOT NULL DEFAULT 0,
    output_units REAL NOT NULL DEFAULT 0,
    complexity TEXT NOT NULL DEFAULT 'low',
    estimated_cost REAL NOT NULL DEFAULT 0,
    actual_cost REAL NOT NULL DEFAULT 0,
    service TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cost_entries_created_at ON cost_entries(created_at);
`

// OpenLedger initializes or connects to the cost database in the state
// directory.
func OpenLedger(stateDir string) (*Ledger, error) {
	dbPath := filepath.Join(stateDir, "costs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cost ledger: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	return &Ledger{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Path returns the database file location.
func (l *Ledger) Path() string { return l.path }

// Append records one cost entry. The stored row is never updated afterwards.
func (l *Ledger) Append(ctx context.Context, entry Entry) error {
	if entry.Service == "" {
		return errors.New("cost entry requires a service name")
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	complexity := entry.Complexity
	if complexity == "" {
		complexity = ComplexityLow
	}

	_, err := l.db.ExecContext(
		ctx,
		`INSERT INTO cost_entries (
            created_at, kind, model, input_units, output_units,
            complexity, estimated_cost, actual_cost, service
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		createdAt.UTC().Format(timeLayout),
		string(entry.Kind),
		entry.Model,
		entry.InputUnits,
		entry.OutputUnits,
		string(complexity),
		entry.EstimatedCost,
		entry.ActualCost,
		entry.Service,
	)
	if err != nil {
		return fmt.Errorf("append cost entry: %w", err)
	}
	return nil
}

// EntriesSince returns entries created at or after the cutoff, oldest first.
// A zero cutoff returns everything.
func (l *Ledger) EntriesSince(ctx context.Context, cutoff time.Time) ([]Entry, error) {
	query := `SELECT id, created_at, kind, model, input_units, output_units,
        complexity, estimated_cost, actual_cost, service FROM cost_entries`
	args := []any{}
	if !cutoff.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, cutoff.UTC().Format(timeLayout))
	}
	query += ` ORDER BY created_at`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cost entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			createdRaw string
			kind       string
			complexity string
		)
		if err := rows.Scan(
			&entry.ID,
			&createdRaw,
			&kind,
			&entry.Model,
			&entry.InputUnits,
			&entry.OutputUnits,
			&complexity,
			&entry.EstimatedCost,
			&entry.ActualCost,
			&entry.Service,
		); err != nil {
			return nil, fmt.Errorf("scan cost entry: %w", err)
		}
		entry.Kind = Kind(kind)
		entry.Complexity = Complexity(complexity)
		if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
