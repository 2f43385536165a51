package mqtt

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/binwatch/internal/eventlog"
	"github.com/sweeney/binwatch/internal/status"
)

// DefaultTelemetryInterval is the push period.
const DefaultTelemetryInterval = 500 * time.Millisecond

// RunTelemetry pushes the latest snapshot on every tick until ctx is done.
// Ticks are skipped while disconnected and before the first snapshot is ready.
func RunTelemetry(ctx context.Context, pub Publisher, conn ConnectionStatus, tracker *status.Tracker, tick <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if conn != nil && !conn.IsConnected() {
				continue
			}
			snap := tracker.Snapshot()
			if !snap.Ready {
				continue
			}
			err := pub.PublishTelemetry(status.FormatTelemetry(snap))
			if err != nil && !errors.Is(err, ErrNotConnected) {
				log.Debug().Err(err).Msg("telemetry push failed")
			}
		}
	}
}

// ForwardEvents returns an event log observer that publishes every append.
func ForwardEvents(pub Publisher) eventlog.Observer {
	return func(e eventlog.Entry) {
		if err := pub.PublishEvent(e); err != nil {
			log.Warn().Err(err).Str("message", e.Message).Msg("event publish failed")
		}
	}
}
