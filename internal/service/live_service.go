// internal/service/live_service.go
package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"mandir-fund/internal/aggregate"
	"mandir-fund/internal/domain"
	"mandir-fund/internal/metrics"
	"mandir-fund/internal/repository"
	"mandir-fund/internal/util"
)

// LiveEventType names the events pushed to live viewers.
type LiveEventType string

const (
	LiveEventSnapshot  LiveEventType = "snapshot"
	LiveEventStats     LiveEventType = "stats"
	LiveEventTopDonors LiveEventType = "top_donors"
	LiveEventDonation  LiveEventType = "donation"
	LiveEventGratitude LiveEventType = "gratitude"
)

const watcherBuffer = 16

const defaultGratitudeMessage = "Every donation brings us closer to our dream of building a grand temple for Lord Hanuman. " +
	"Your contribution, no matter how small, makes a big difference. Jai Hanuman!"

// LiveEvent is one update for live viewers.
type LiveEvent struct {
	Type LiveEventType
	Data any
}

// StatsView is Stats plus its display form.
type StatsView struct {
	aggregate.Stats
	FormattedTotal string `json:"formatted_total"`
}

// Gratitude is the thank-you note for the latest named donor.
type Gratitude struct {
	DonorName string `json:"donor_name,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
	Message   string `json:"message"`
}

// LiveSnapshot is the full state a new viewer starts from.
type LiveSnapshot struct {
	Stats     StatsView              `json:"stats"`
	TopDonors []aggregate.DonorTotal `json:"top_donors"`
	Recent    []domain.Donation      `json:"recent"`
	Gratitude Gratitude              `json:"gratitude"`
}

// LiveService keeps the public projections (stats, top donors, recent feed,
// gratitude note) in sync with the donations table.
type LiveService interface {
	// Reload replaces every projection with a fresh load from storage.
	Reload(ctx context.Context) error
	// HandleChange folds one change event into the projections.
	HandleChange(ev domain.ChangeEvent)
	Stats() StatsView
	TopDonors() []aggregate.DonorTotal
	// Recent returns the feed newest first; limit <= 0 returns everything.
	Recent(limit int) []domain.Donation
	Gratitude() Gratitude
	Snapshot() LiveSnapshot
	// Watch streams live events, starting with a snapshot. Events are dropped
	// for a watcher whose buffer is full. cancel closes the channel.
	Watch() (events <-chan LiveEvent, cancel func())
	// CloseWatchers ends every live stream, e.g. on server shutdown.
	CloseWatchers()
}

// liveService implements the LiveService interface. Reload and HandleChange
// are serialized by mu, so a reload never interleaves with an event apply.
type liveService struct {
	dbExecutor   repository.DBExecutor
	donationRepo repository.DonationRepository

	mu        sync.RWMutex
	tally     *aggregate.Tally
	recent    []domain.Donation
	recentIDs map[string]struct{}
	latest    *domain.Donation // latest named donation
	watchers  map[uint64]chan LiveEvent
	nextID    uint64
}

// NewLiveService creates a new instance of LiveService with empty projections.
func NewLiveService(dbExecutor repository.DBExecutor, donationRepo repository.DonationRepository) LiveService {
	return &liveService{
		dbExecutor:   dbExecutor,
		donationRepo: donationRepo,
		tally:        aggregate.NewTally(),
		recentIDs:    make(map[string]struct{}),
		watchers:     make(map[uint64]chan LiveEvent),
	}
}

func (s *liveService) Reload(ctx context.Context) error {
	rows, err := s.donationRepo.ListDonations(ctx, s.dbExecutor, repository.DonationFilter{})
	if err != nil {
		return fmt.Errorf("reload: failed to list donations: %w", err)
	}
	named, err := s.donationRepo.ListDonations(ctx, s.dbExecutor, repository.DonationFilter{ExcludeAnonymous: true, Limit: 1})
	if err != nil {
		return fmt.Errorf("reload: failed to get latest named donation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tally.Reset(rows)
	s.recent = rows
	s.recentIDs = make(map[string]struct{}, len(rows))
	for _, r := range rows {
		s.recentIDs[r.ID] = struct{}{}
	}
	s.latest = nil
	if len(named) > 0 {
		s.latest = &named[0]
	}

	util.GetLogger().Debug().Int("donations", len(rows)).Msg("Live projections reloaded")
	s.broadcast(LiveEvent{Type: LiveEventSnapshot, Data: s.snapshotLocked()})
	return nil
}

func (s *liveService) HandleChange(ev domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.tally.Apply(ev)
	before := s.gratitudeLocked()

	var inserted *domain.Donation
	switch ev.Type {
	case domain.ChangeTypeInsert:
		if ev.Record == nil {
			break
		}
		if _, seen := s.recentIDs[ev.Record.ID]; seen {
			break
		}
		s.recent = slices.Insert(s.recent, 0, *ev.Record)
		s.recentIDs[ev.Record.ID] = struct{}{}
		inserted = ev.Record
		if !inserted.IsAnonymous {
			d := *inserted
			s.latest = &d
		}
	case domain.ChangeTypeUpdate:
		if ev.Record == nil {
			break
		}
		s.removeLocked(ev.Record.ID)
		s.placeLocked(*ev.Record)
		s.latest = s.latestNamedLocked()
	case domain.ChangeTypeDelete:
		if ev.OldRecord == nil {
			break
		}
		s.removeLocked(ev.OldRecord.ID)
		s.latest = s.latestNamedLocked()
	}

	if inserted != nil {
		s.broadcast(LiveEvent{Type: LiveEventDonation, Data: *inserted})
	}
	if after := s.gratitudeLocked(); after != before || (inserted != nil && !inserted.IsAnonymous) {
		s.broadcast(LiveEvent{Type: LiveEventGratitude, Data: after})
	}
	if changed {
		s.broadcast(LiveEvent{Type: LiveEventStats, Data: s.statsLocked()})
		s.broadcast(LiveEvent{Type: LiveEventTopDonors, Data: s.tally.Top(aggregate.LeaderboardSize)})
	}
}

func (s *liveService) Stats() StatsView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

func (s *liveService) TopDonors() []aggregate.DonorTotal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tally.Top(aggregate.LeaderboardSize)
}

func (s *liveService) Recent(limit int) []domain.Donation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentLocked(limit)
}

func (s *liveService) Gratitude() Gratitude {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gratitudeLocked()
}

func (s *liveService) Snapshot() LiveSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *liveService) Watch() (<-chan LiveEvent, func()) {
	ch := make(chan LiveEvent, watcherBuffer)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	ch <- LiveEvent{Type: LiveEventSnapshot, Data: s.snapshotLocked()}
	s.watchers[id] = ch
	s.mu.Unlock()
	metrics.LiveWatchers.Inc()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(ch)
			metrics.LiveWatchers.Dec()
		}
	}
}

func (s *liveService) CloseWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
		metrics.LiveWatchers.Dec()
	}
}

// broadcast must be called with mu held, which keeps per-watcher event order
// identical to apply order.
func (s *liveService) broadcast(ev LiveEvent) {
	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
			metrics.LiveEventsDropped.Inc()
		}
	}
}

func (s *liveService) removeLocked(id string) {
	if i := slices.IndexFunc(s.recent, func(d domain.Donation) bool { return d.ID == id }); i >= 0 {
		s.recent = slices.Delete(s.recent, i, i+1)
	}
	delete(s.recentIDs, id)
}

// placeLocked inserts d keeping the feed ordered by created_at, newest first.
func (s *liveService) placeLocked(d domain.Donation) {
	i := slices.IndexFunc(s.recent, func(r domain.Donation) bool { return r.CreatedAt.Before(d.CreatedAt) })
	if i < 0 {
		i = len(s.recent)
	}
	s.recent = slices.Insert(s.recent, i, d)
	s.recentIDs[d.ID] = struct{}{}
}

// latestNamedLocked returns the newest non-anonymous row of the feed.
func (s *liveService) latestNamedLocked() *domain.Donation {
	for _, d := range s.recent {
		if !d.IsAnonymous {
			latest := d
			return &latest
		}
	}
	return nil
}

func (s *liveService) statsLocked() StatsView {
	stats := s.tally.Stats()
	return StatsView{Stats: stats, FormattedTotal: aggregate.FormatINR(stats.TotalAmount)}
}

func (s *liveService) recentLocked(limit int) []domain.Donation {
	n := len(s.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	return slices.Clone(s.recent[:n])
}

func (s *liveService) gratitudeLocked() Gratitude {
	if s.latest == nil {
		return Gratitude{Message: defaultGratitudeMessage}
	}
	return Gratitude{
		DonorName: s.latest.DonorName,
		Amount:    s.latest.Amount,
		Message:   GratitudeMessage(s.latest.DonorName, s.latest.Amount),
	}
}

func (s *liveService) snapshotLocked() LiveSnapshot {
	return LiveSnapshot{
		Stats:     s.statsLocked(),
		TopDonors: s.tally.Top(aggregate.LeaderboardSize),
		Recent:    s.recentLocked(0),
		Gratitude: s.gratitudeLocked(),
	}
}

// GratitudeMessage is the thank-you text shown for a named donor.
func GratitudeMessage(donorName string, amount int64) string {
	return fmt.Sprintf("Thank you, %s! Your generous donation of ₹%s will help us build a magnificent temple. "+
		"May Lord Hanuman bless you with strength, wisdom, and prosperity. Jai Hanuman!",
		donorName, aggregate.GroupIndian(amount))
}
