package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/meridian-erp/meridian-pnl/internal/realtime"
	"github.com/meridian-erp/meridian-pnl/internal/store"
)

// SnapshotLister reads the persisted per-module cost snapshots.
type SnapshotLister interface {
	Snapshots(ctx context.Context) ([]store.Snapshot, error)
}

// Poller is the fallback update path for consumers without a Redis
// subscription. It watches the persisted snapshots and fires the in-process
// hub whenever a module's snapshot advances.
type Poller struct {
	Interval time.Duration
	Store    SnapshotLister
	Hub      *realtime.Hub
	Logger   *slog.Logger

	lastSeen map[string]time.Time
}

// NewPoller constructs a Poller. A non-positive interval falls back to 30s.
func NewPoller(interval time.Duration, lister SnapshotLister, hub *realtime.Hub, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		Interval: interval,
		Store:    lister,
		Hub:      hub,
		Logger:   logger,
		lastSeen: make(map[string]time.Time),
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.Store == nil {
		return
	}
	snapshots, err := p.Store.Snapshots(ctx)
	if err != nil {
		p.Logger.Warn("poll snapshots", slog.Any("error", err))
		return
	}
	for _, snap := range snapshots {
		seen, ok := p.lastSeen[snap.Module]
		if ok && !snap.UpdatedAt.After(seen) {
			continue
		}
		p.lastSeen[snap.Module] = snap.UpdatedAt
		if ok && p.Hub != nil {
			p.Hub.TriggerUpdate(snap.Module)
		}
	}
}
