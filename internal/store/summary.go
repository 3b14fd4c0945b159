package store

import (
	"context"
	"fmt"
)

// MasterSummary aggregates one master item against its assigned sub-rentals.
type MasterSummary struct {
	ItemID        string  `json:"item_id"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	Cost          float64 `json:"cost"`
	Revenue       float64 `json:"revenue"`
	Profit        float64 `json:"profit"`
	AssignedCount int     `json:"assigned_count"`
}

// Summary is the profit/loss overview across all of a user's master items.
type Summary struct {
	Masters      []MasterSummary `json:"masters"`
	TotalCost    float64         `json:"total_cost"`
	TotalRevenue float64         `json:"total_revenue"`
	TotalProfit  float64         `json:"total_profit"`
}

// GetSummary computes the profit/loss summary: per master item the cost is
// its own purchase price and the revenue is the sum of its assigned items'
// purchase prices.
func (s *Store) GetSummary(ctx context.Context, userID int64) (*Summary, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT m.id, m.name, m.status,
		        COALESCE(m.purchase_price, 0),
		        COALESCE(SUM(a.purchase_price), 0),
		        COUNT(a.id)
		 FROM items m
		 LEFT JOIN items a ON a.parent_id = m.id
		 WHERE m.user_id = ? AND m.parent_id IS NULL
		 GROUP BY m.id
		 ORDER BY m.created_at DESC, m.rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("computing summary: %w", err)
	}
	defer rows.Close()

	summary := &Summary{Masters: []MasterSummary{}}
	for rows.Next() {
		var m MasterSummary
		if err := rows.Scan(&m.ItemID, &m.Name, &m.Status, &m.Cost, &m.Revenue, &m.AssignedCount); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		m.Profit = m.Revenue - m.Cost
		summary.Masters = append(summary.Masters, m)
		summary.TotalCost += m.Cost
		summary.TotalRevenue += m.Revenue
	}
	summary.TotalProfit = summary.TotalRevenue - summary.TotalCost
	return summary, rows.Err()
}
