package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/meridian-erp/meridian-pnl/internal/aggregate"
)

// Default debounce windows, overridable through Options.
const (
	DefaultSyncDebounce   = 400 * time.Millisecond
	DefaultNotifyDebounce = time.Second
	pushTimeout           = 10 * time.Second
)

// Mark records the last successful push for a module, for the read side of
// the sync surface.
type Mark struct {
	Module      string    `json:"module"`
	RecordCount int       `json:"recordCount"`
	SyncedAt    time.Time `json:"syncedAt"`
}

// Options tunes the scheduler.
type Options struct {
	SyncDebounce   time.Duration
	NotifyDebounce time.Duration
	// Excluded lists "module:action" pairs whose change notifications are
	// dropped without publishing.
	Excluded []string
}

// Scheduler coalesces rapid successive sync and notification requests per
// module, de-duplicates identical payloads, and pushes the survivors to
// the sink. Timers are per module: rescheduling one module never disturbs
// another.
type Scheduler struct {
	sink   Sink
	hub    *Hub
	logger *slog.Logger

	syncDelay   time.Duration
	notifyDelay time.Duration
	excluded    map[string]struct{}
	now         func() time.Time

	mu           sync.Mutex
	syncTimers   map[string]*time.Timer
	notifyTimers map[string]*time.Timer
	lastPayload  map[string]string
	marks        map[string]Mark
}

// NewScheduler wires the sync scheduler. A nil sink disables pushes but
// keeps hub fan-out working.
func NewScheduler(sink Sink, hub *Hub, logger *slog.Logger, opts Options) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SyncDebounce <= 0 {
		opts.SyncDebounce = DefaultSyncDebounce
	}
	if opts.NotifyDebounce <= 0 {
		opts.NotifyDebounce = DefaultNotifyDebounce
	}
	excluded := make(map[string]struct{}, len(opts.Excluded))
	for _, pair := range opts.Excluded {
		pair = strings.TrimSpace(strings.ToLower(pair))
		if pair != "" {
			excluded[pair] = struct{}{}
		}
	}
	return &Scheduler{
		sink:         sink,
		hub:          hub,
		logger:       logger,
		syncDelay:    opts.SyncDebounce,
		notifyDelay:  opts.NotifyDebounce,
		excluded:     excluded,
		now:          func() time.Time { return time.Now().UTC() },
		syncTimers:   make(map[string]*time.Timer),
		notifyTimers: make(map[string]*time.Timer),
		lastPayload:  make(map[string]string),
		marks:        make(map[string]Mark),
	}
}

// ScheduleSync debounces a period-cost push for the module. A call inside
// the debounce window supersedes the pending one; only the last survives.
func (s *Scheduler) ScheduleSync(module string, records []aggregate.Record, dateField, amountField string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.syncTimers[module]; ok {
		timer.Stop()
	}
	s.syncTimers[module] = time.AfterFunc(s.syncDelay, func() {
		s.pushCosts(module, records, dateField, amountField)
	})
}

// NotifyChange debounces a change notification for the module. Pairs on
// the exclusion list are dropped silently.
func (s *Scheduler) NotifyChange(module, action string, data any) {
	if _, skip := s.excluded[strings.ToLower(module+":"+action)]; skip {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.notifyTimers[module]; ok {
		timer.Stop()
	}
	s.notifyTimers[module] = time.AfterFunc(s.notifyDelay, func() {
		s.publishChange(module, action, data)
	})
}

// Marks snapshots the last successful push per module.
func (s *Scheduler) Marks() []Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Mark, 0, len(s.marks))
	for _, mark := range s.marks {
		out = append(out, mark)
	}
	return out
}

// Stop cancels every pending timer. Superseded or stopped computations
// simply never fire.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for module, timer := range s.syncTimers {
		timer.Stop()
		delete(s.syncTimers, module)
	}
	for module, timer := range s.notifyTimers {
		timer.Stop()
		delete(s.notifyTimers, module)
	}
}

func (s *Scheduler) pushCosts(module string, records []aggregate.Record, dateField, amountField string) {
	push := CostPush{
		Module:      module,
		Costs:       aggregate.PeriodCosts(records, dateField, amountField, s.now()),
		RecordCount: len(records),
	}
	payload, err := json.Marshal(push)
	if err != nil {
		s.logger.Error("marshal cost push", slog.String("module", module), slog.Any("error", err))
		return
	}

	s.mu.Lock()
	if s.lastPayload[module] == string(payload) {
		s.mu.Unlock()
		s.logger.Debug("skipping unchanged cost push", slog.String("module", module))
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if s.sink != nil {
		if err := s.sink.PushPeriodCosts(ctx, push); err != nil {
			s.logger.Warn("cost push failed",
				slog.String("module", module),
				slog.Any("error", err))
			return
		}
	}

	s.mu.Lock()
	s.lastPayload[module] = string(payload)
	s.marks[module] = Mark{Module: module, RecordCount: push.RecordCount, SyncedAt: s.now()}
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.TriggerUpdate(module)
	}
}

func (s *Scheduler) publishChange(module, action string, data any) {
	event := ChangeEvent{Module: module, Action: action, Data: data, Timestamp: s.now()}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if s.sink != nil {
		if err := s.sink.PublishChange(ctx, event); err != nil {
			s.logger.Warn("change publish failed",
				slog.String("module", module),
				slog.String("action", action),
				slog.Any("error", err))
			return
		}
	}
	if s.hub != nil {
		s.hub.TriggerUpdate(module)
	}
}
