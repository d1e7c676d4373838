// internal/aggregate/top_donors.go
package aggregate

import (
	"sort"
	"time"

	"mandir-fund/internal/domain"
)

// LeaderboardSize is the number of donors on the public leaderboard.
const LeaderboardSize = 3

// DonorTotal is one donor key's cumulative contribution.
type DonorTotal struct {
	Key         string    `json:"donor_name"`
	Amount      int64     `json:"amount"`
	Donations   int       `json:"donations"`
	IsAnonymous bool      `json:"is_anonymous"`
	FirstAt     time.Time `json:"first_donation_at"`
}

// GroupByDonor sums amounts per donor key ("Anonymous" for anonymous rows).
// The result is ordered by the leaderboard ranking.
func GroupByDonor(rows []domain.Donation) []DonorTotal {
	byKey := make(map[string]*DonorTotal)
	for _, r := range rows {
		key := r.DonorKey()
		t, ok := byKey[key]
		if !ok {
			t = &DonorTotal{Key: key, IsAnonymous: r.IsAnonymous, FirstAt: r.CreatedAt}
			byKey[key] = t
		}
		t.Amount += r.Amount
		t.Donations++
		if r.CreatedAt.Before(t.FirstAt) {
			t.FirstAt = r.CreatedAt
		}
	}

	totals := make([]DonorTotal, 0, len(byKey))
	for _, t := range byKey {
		totals = append(totals, *t)
	}
	rank(totals)
	return totals
}

// TopDonors returns at most n donor totals, highest first. Fewer distinct
// donors than n yields a shorter slice, never padding.
func TopDonors(rows []domain.Donation, n int) []DonorTotal {
	totals := GroupByDonor(rows)
	if n < 0 {
		n = 0
	}
	if len(totals) > n {
		totals = totals[:n]
	}
	return totals
}

// rank orders by amount descending. Ties go to the donor whose first donation
// came earlier, then to the lexically smaller key, so the order never depends
// on how rows were fetched.
func rank(totals []DonorTotal) {
	sort.Slice(totals, func(i, j int) bool {
		a, b := totals[i], totals[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		if !a.FirstAt.Equal(b.FirstAt) {
			return a.FirstAt.Before(b.FirstAt)
		}
		return a.Key < b.Key
	})
}
