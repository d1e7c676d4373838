// internal/realtime/listener.go
package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"mandir-fund/internal/metrics"
)

// ChannelDonations is the NOTIFY channel the donations trigger publishes on.
const ChannelDonations = "donations_changes"

const (
	minReconnectInterval = 1 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// Source is the subset of *pq.Listener the change listener needs.
type Source interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// ResyncFunc reloads every projection from storage. It runs on startup, after
// a reconnect (notifications may have been missed) and for truncated payloads.
type ResyncFunc func(ctx context.Context) error

// NewPQSource opens a dedicated LISTEN connection using lib/pq.
func NewPQSource(dsn string, logger *zerolog.Logger) *pq.Listener {
	return pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Info().Msg("Change listener connected")
		case pq.ListenerEventDisconnected:
			metrics.ListenerReconnects.WithLabelValues("disconnected").Inc()
			logger.Warn().Err(err).Msg("Change listener disconnected")
		case pq.ListenerEventReconnected:
			metrics.ListenerReconnects.WithLabelValues("reconnected").Inc()
			logger.Info().Msg("Change listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			metrics.ListenerReconnects.WithLabelValues("attempt_failed").Inc()
			logger.Warn().Err(err).Msg("Change listener connection attempt failed")
		}
	})
}

// Listener turns NOTIFY payloads into validated change events on a Hub.
type Listener struct {
	source Source
	hub    *Hub
	resync ResyncFunc
	logger *zerolog.Logger
}

// NewListener creates a Listener. resync may be nil.
func NewListener(source Source, hub *Hub, resync ResyncFunc, logger *zerolog.Logger) *Listener {
	return &Listener{source: source, hub: hub, resync: resync, logger: logger}
}

// Run subscribes to the donations channel and dispatches events until ctx is
// cancelled. The initial resync happens after LISTEN is active so no commit
// falls between the load and the subscription.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.source.Listen(ChannelDonations); err != nil && !errors.Is(err, pq.ErrChannelAlreadyOpen) {
		_ = l.source.Close()
		return fmt.Errorf("failed to listen on %s: %w", ChannelDonations, err)
	}
	defer func() {
		if err := l.source.Close(); err != nil {
			l.logger.Warn().Err(err).Msg("Failed to close change listener")
		}
	}()

	l.doResync(ctx, "startup")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	notifications := l.source.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			if n == nil {
				// pq sends nil after re-establishing the connection.
				l.doResync(ctx, "reconnect")
				continue
			}
			l.handle(ctx, n.Extra)
		case <-ticker.C:
			go func() {
				if err := l.source.Ping(); err != nil {
					l.logger.Warn().Err(err).Msg("Change listener ping failed")
				}
			}()
		}
	}
}

func (l *Listener) handle(ctx context.Context, payload string) {
	ev, err := DecodeChangeEvent(payload, time.Now().UTC())
	if err != nil {
		metrics.InvalidChangePayloads.Inc()
		l.logger.Warn().Err(err).Msg("Dropping invalid change notification")
		return
	}
	if ev.Truncated {
		l.doResync(ctx, "truncated_payload")
		return
	}
	l.hub.Dispatch(ev)
}

func (l *Listener) doResync(ctx context.Context, reason string) {
	if l.resync == nil {
		return
	}
	metrics.ProjectionResyncs.WithLabelValues(reason).Inc()
	if err := l.resync(ctx); err != nil {
		l.logger.Error().Err(err).Str("reason", reason).Msg("Projection resync failed")
	}
}
