// internal/aggregate/tally.go
package aggregate

import (
	"mandir-fund/internal/domain"
)

// Tally maintains Stats and per-donor totals incrementally, keyed by row id.
// Applying an event costs O(1) except when a donor's earliest row is removed.
// Reset over the same rows always yields the same results as Totals and
// TopDonors. Tally is not safe for concurrent use; callers serialize access.
type Tally struct {
	rows   map[string]domain.Donation
	byKey  map[string]*DonorTotal
	keyIDs map[string]map[string]struct{}
	stats  Stats
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	t := &Tally{}
	t.Reset(nil)
	return t
}

// Reset discards all state and recomputes from rows.
func (t *Tally) Reset(rows []domain.Donation) {
	t.rows = make(map[string]domain.Donation, len(rows))
	t.byKey = make(map[string]*DonorTotal)
	t.keyIDs = make(map[string]map[string]struct{})
	t.stats = Stats{}
	for _, r := range rows {
		t.upsert(r)
	}
}

// Apply folds one change event into the tally. It reports whether the
// projections changed. Re-delivered inserts are idempotent.
func (t *Tally) Apply(ev domain.ChangeEvent) bool {
	switch ev.Type {
	case domain.ChangeTypeInsert, domain.ChangeTypeUpdate:
		if ev.Record == nil {
			return false
		}
		if prev, ok := t.rows[ev.Record.ID]; ok && prev == *ev.Record {
			return false
		}
		t.upsert(*ev.Record)
		return true
	case domain.ChangeTypeDelete:
		if ev.OldRecord == nil {
			return false
		}
		return t.remove(ev.OldRecord.ID)
	}
	return false
}

// Stats returns the current totals.
func (t *Tally) Stats() Stats {
	return t.stats
}

// Top returns at most n donor totals, ranked like TopDonors.
func (t *Tally) Top(n int) []DonorTotal {
	totals := make([]DonorTotal, 0, len(t.byKey))
	for _, dt := range t.byKey {
		totals = append(totals, *dt)
	}
	rank(totals)
	if n < 0 {
		n = 0
	}
	if len(totals) > n {
		totals = totals[:n]
	}
	return totals
}

// Len returns the number of rows tracked.
func (t *Tally) Len() int {
	return len(t.rows)
}

func (t *Tally) upsert(r domain.Donation) {
	if _, exists := t.rows[r.ID]; exists {
		t.remove(r.ID)
	}
	t.rows[r.ID] = r
	t.stats.TotalAmount += r.Amount
	t.stats.TotalDonors++

	key := r.DonorKey()
	dt, ok := t.byKey[key]
	if !ok {
		dt = &DonorTotal{Key: key, IsAnonymous: r.IsAnonymous, FirstAt: r.CreatedAt}
		t.byKey[key] = dt
		t.keyIDs[key] = make(map[string]struct{})
	}
	dt.Amount += r.Amount
	dt.Donations++
	if r.CreatedAt.Before(dt.FirstAt) {
		dt.FirstAt = r.CreatedAt
	}
	t.keyIDs[key][r.ID] = struct{}{}
}

func (t *Tally) remove(id string) bool {
	r, ok := t.rows[id]
	if !ok {
		return false
	}
	delete(t.rows, id)
	t.stats.TotalAmount -= r.Amount
	t.stats.TotalDonors--

	key := r.DonorKey()
	dt := t.byKey[key]
	ids := t.keyIDs[key]
	delete(ids, id)
	if len(ids) == 0 {
		delete(t.byKey, key)
		delete(t.keyIDs, key)
		return true
	}
	dt.Amount -= r.Amount
	dt.Donations--
	if r.CreatedAt.Equal(dt.FirstAt) {
		first := true
		for otherID := range ids {
			other := t.rows[otherID]
			if first || other.CreatedAt.Before(dt.FirstAt) {
				dt.FirstAt = other.CreatedAt
				first = false
			}
		}
	}
	return true
}
