package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/smartbin-core/internal/device"
	"github.com/nerrad567/smartbin-core/internal/infrastructure/database"
	"github.com/nerrad567/smartbin-core/internal/lifecycle"
	"github.com/nerrad567/smartbin-core/internal/location"
	"github.com/nerrad567/smartbin-core/internal/state"
	"github.com/nerrad567/smartbin-core/migrations"
)

// recordingLogger captures warnings for assertions.
type recordingLogger struct {
	noopLogger
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

type recordingNotifier struct {
	mu       sync.Mutex
	channels []string
}

func (n *recordingNotifier) Broadcast(channel string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, channel)
}

type pipeline struct {
	coordinator *lifecycle.Coordinator
	devices     *device.SQLiteRepository
	bins        *device.SQLiteBinRepository
	resolver    *Resolver
	ingestor    *Ingestor
	router      *Router
	logger      *recordingLogger
	notifier    *recordingNotifier
	now         time.Time
}

func setupPipeline(t *testing.T) *pipeline {
	t.Helper()

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	p := &pipeline{
		devices:  device.NewSQLiteRepository(db.DB),
		bins:     device.NewSQLiteBinRepository(db.DB),
		logger:   &recordingLogger{},
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
	}
	coordinator, err := lifecycle.NewCoordinator(location.NewSQLiteRepository(db.DB), p.devices, p.bins, nil)
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	p.coordinator = coordinator

	updater := state.NewUpdater(p.devices, p.bins)
	updater.SetNotifier(p.notifier)

	p.resolver = NewResolver(p.devices, p.bins)
	p.resolver.SetLogger(p.logger)
	p.ingestor = NewIngestor(p.resolver, updater)
	p.ingestor.SetLogger(p.logger)
	p.ingestor.now = func() time.Time { return p.now }
	p.router = NewRouter(p.ingestor)
	p.router.SetLogger(p.logger)
	return p
}

// registerDevice creates an area and a device bound to clientID.
func (p *pipeline) registerDevice(t *testing.T, clientID string) (*device.Device, []device.Bin) {
	t.Helper()
	ctx := context.Background()

	area, err := p.coordinator.CreateArea(ctx, "Area "+clientID, nil)
	if err != nil {
		t.Fatalf("CreateArea() error = %v", err)
	}
	d, bins, err := p.coordinator.CreateDevice(ctx, lifecycle.NewDevice{
		Name:         "Bin " + clientID,
		AreaRef:      area.ID,
		ClientIDMQTT: clientID,
	})
	if err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	return d, bins
}

func (p *pipeline) send(topic, payload string) {
	p.router.Route(context.Background(), topic, []byte(payload))
}

func (p *pipeline) deviceCount(t *testing.T) int {
	t.Helper()
	all, err := p.devices.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return len(all)
}
