// internal/aggregate/stats.go

// Package aggregate computes the read-side projections shown on the donation page:
// running totals, the top-donor leaderboard and INR display formatting.
//
// The plain functions recompute from a full row set; Tally maintains the same
// results incrementally from change events.
package aggregate

import "mandir-fund/internal/domain"

// Stats is the running total shown as "Total Collected" and "Total Donors".
type Stats struct {
	TotalAmount int64 `json:"total_amount"`
	TotalDonors int   `json:"total_donors"`
}

// Totals sums amounts and counts rows. Every row counts as one donor, even
// repeated names, matching the public counter.
func Totals(rows []domain.Donation) Stats {
	var s Stats
	for _, r := range rows {
		s.TotalAmount += r.Amount
	}
	s.TotalDonors = len(rows)
	return s
}
