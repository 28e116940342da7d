package budget_test

import (
	"context"
	"testing"
	"time"

	"fabula/internal/budget"
)

func TestLedgerAppendAndFilter(t *testing.T) {
	ledger, err := budget.OpenLedger(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ledger.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		entry := budget.Entry{
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
			Kind:       budget.KindText,
			Model:      "google/gemini-3-flash-preview",
			ActualCost: 0.01,
			Service:    "text",
		}
		if err := ledger.Append(ctx, entry); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := ledger.EntriesSince(ctx, time.Time{})
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if !all[0].CreatedAt.Before(all[1].CreatedAt) {
		t.Fatal("entries must come back oldest first")
	}

	recent, err := ledger.EntriesSince(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("entries since: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 entry after cutoff, got %d", len(recent))
	}
}

func TestLedgerRequiresService(t *testing.T) {
	ledger, err := budget.OpenLedger(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer ledger.Close()

	if err := ledger.Append(context.Background(), budget.Entry{Kind: budget.KindText}); err == nil {
		t.Fatal("expected error for missing service name")
	}
}
