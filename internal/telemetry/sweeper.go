package telemetry

import (
	"context"
	"time"

	"github.com/nerrad567/smartbin-core/internal/device"
	"github.com/nerrad567/smartbin-core/internal/state"
)

// Sweeper marks online devices offline once no telemetry has been seen for
// offlineAfter.
type Sweeper struct {
	devices      device.Repository
	offlineAfter time.Duration
	interval     time.Duration
	notifier     state.Notifier
	logger       Logger
	now          func() time.Time
}

// NewSweeper creates a sweeper. A zero offlineAfter disables it.
func NewSweeper(devices device.Repository, offlineAfter, interval time.Duration) *Sweeper {
	return &Sweeper{
		devices:      devices,
		offlineAfter: offlineAfter,
		interval:     interval,
		logger:       noopLogger{},
		now:          time.Now,
	}
}

// SetLogger sets the logger for the sweeper.
func (s *Sweeper) SetLogger(logger Logger) {
	s.logger = logger
}

// SetNotifier sets the sink for status change events.
func (s *Sweeper) SetNotifier(n state.Notifier) {
	s.notifier = n
}

// Enabled reports whether the sweeper has a threshold to enforce.
func (s *Sweeper) Enabled() bool {
	return s.offlineAfter > 0 && s.interval > 0
}

// Run sweeps every interval until ctx is cancelled. It returns nil
// immediately when the sweeper is disabled.
func (s *Sweeper) Run(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	s.logger.Info("offline sweep started", "offline_after", s.offlineAfter.String(), "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("offline sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass and returns the ids of devices marked offline.
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	ids, err := s.devices.MarkStaleOffline(ctx, s.now().Add(-s.offlineAfter))
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.logger.Info("device marked offline after silence", "device_id", id)
		if s.notifier != nil {
			s.notifier.Broadcast(state.ChannelDeviceStatus, map[string]any{
				"device_id": id,
				"status":    device.StatusOffline,
			})
		}
	}
	return ids, nil
}
