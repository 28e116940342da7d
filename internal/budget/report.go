package budget

import (
	"context"
	"sort"
)

// ReportRow aggregates spend for one (service, kind) pair.
type ReportRow struct {
	Service     string
	Kind        Kind
	Count       int
	AvgUnitCost float64
	TotalCost   float64
}

// Report groups ledger entries within the accounting window by service and
// operation kind, sorted by total cost descending.
func (g *Governor) Report(ctx context.Context) ([]ReportRow, error) {
	entries, err := g.ledger.EntriesSince(ctx, g.windowStart())
	if err != nil {
		return nil, err
	}

	type key struct {
		service string
		kind    Kind
	}
	groups := make(map[key]*ReportRow)
	for _, entry := range entries {
		k := key{entry.Service, entry.Kind}
		row, ok := groups[k]
		if !ok {
			row = &ReportRow{Service: entry.Service, Kind: entry.Kind}
			groups[k] = row
		}
		row.Count++
		row.TotalCost += entry.ActualCost
	}

	rows := make([]ReportRow, 0, len(groups))
	for _, row := range groups {
		if row.Count > 0 {
			row.AvgUnitCost = row.TotalCost / float64(row.Count)
		}
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalCost != rows[j].TotalCost {
			return rows[i].TotalCost > rows[j].TotalCost
		}
		if rows[i].Service != rows[j].Service {
			return rows[i].Service < rows[j].Service
		}
		return rows[i].Kind < rows[j].Kind
	})
	return rows, nil
}
