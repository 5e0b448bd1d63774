package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-pnl/internal/aggregate"
)

type recorderSink struct {
	mu      sync.Mutex
	pushes  []CostPush
	changes []ChangeEvent
}

func (r *recorderSink) PushPeriodCosts(_ context.Context, push CostPush) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, push)
	return nil
}

func (r *recorderSink) PublishChange(_ context.Context, event ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, event)
	return nil
}

func (r *recorderSink) pushCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func (r *recorderSink) changeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func fastScheduler(sink Sink, hub *Hub) *Scheduler {
	return NewScheduler(sink, hub, nil, Options{
		SyncDebounce:   20 * time.Millisecond,
		NotifyDebounce: 20 * time.Millisecond,
		Excluded:       []string{"pnl:calculate"},
	})
}

func TestHubFanOutAndIdempotentUnsubscribe(t *testing.T) {
	hub := NewHub()

	var mu sync.Mutex
	got := map[string]int{}
	record := func(key string) Callback {
		return func(u Update) {
			mu.Lock()
			defer mu.Unlock()
			got[key]++
			if u.Source != "assets" || u.Timestamp.IsZero() {
				t.Errorf("unexpected update %+v", u)
			}
		}
	}

	subA := hub.Subscribe("hr", record("a"))
	hub.Subscribe("hr", record("b"))
	hub.Subscribe("sales", record("c"))

	hub.TriggerUpdate("assets")

	mu.Lock()
	require.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, got)
	mu.Unlock()

	hub.Unsubscribe(subA)
	hub.Unsubscribe(subA) // double unsubscribe is a no-op

	hub.TriggerUpdate("assets")
	mu.Lock()
	require.Equal(t, 1, got["a"])
	require.Equal(t, 2, got["b"])
	mu.Unlock()
}

func TestScheduleSyncCoalescesBursts(t *testing.T) {
	sink := &recorderSink{}
	sched := fastScheduler(sink, nil)
	defer sched.Stop()

	records := []aggregate.Record{{"date": "2024-06-15", "amount": 10}}
	for i := 0; i < 5; i++ {
		sched.ScheduleSync("hr", records, "date", "amount")
	}

	require.Eventually(t, func() bool { return sink.pushCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, sink.pushCount(), "burst must coalesce into one push")
	require.Equal(t, "hr", sink.pushes[0].Module)
	require.Equal(t, 1, sink.pushes[0].RecordCount)
}

func TestScheduleSyncSkipsUnchangedPayload(t *testing.T) {
	sink := &recorderSink{}
	sched := fastScheduler(sink, nil)
	defer sched.Stop()
	sched.now = func() time.Time { return time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC) }

	records := []aggregate.Record{{"date": "2024-06-15", "amount": 10}}
	sched.ScheduleSync("hr", records, "date", "amount")
	require.Eventually(t, func() bool { return sink.pushCount() == 1 }, time.Second, 5*time.Millisecond)

	// Same content again: de-duplicated.
	sched.ScheduleSync("hr", records, "date", "amount")
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 1, sink.pushCount())

	// Changed content goes through.
	sched.ScheduleSync("hr", append(records, aggregate.Record{"date": "2024-06-16", "amount": 5}), "date", "amount")
	require.Eventually(t, func() bool { return sink.pushCount() == 2 }, time.Second, 5*time.Millisecond)
}

func TestSchedulerTimersAreIndependentPerModule(t *testing.T) {
	sink := &recorderSink{}
	sched := fastScheduler(sink, nil)
	defer sched.Stop()

	sched.ScheduleSync("hr", []aggregate.Record{{"date": "2024-06-15", "amount": 1}}, "date", "amount")
	sched.ScheduleSync("assets", []aggregate.Record{{"date": "2024-06-15", "amount": 2}}, "date", "amount")
	// Rescheduling hr must not disturb the pending assets timer.
	sched.ScheduleSync("hr", []aggregate.Record{{"date": "2024-06-15", "amount": 3}}, "date", "amount")

	require.Eventually(t, func() bool { return sink.pushCount() == 2 }, time.Second, 5*time.Millisecond)

	modules := map[string]bool{}
	sink.mu.Lock()
	for _, push := range sink.pushes {
		modules[push.Module] = true
	}
	sink.mu.Unlock()
	require.True(t, modules["hr"] && modules["assets"])
}

func TestNotifyChangeHonoursExclusionList(t *testing.T) {
	sink := &recorderSink{}
	sched := fastScheduler(sink, nil)
	defer sched.Stop()

	sched.NotifyChange("pnl", "calculate", nil)
	time.Sleep(60 * time.Millisecond)
	require.Empty(t, sched.Marks())
	require.Equal(t, 0, sink.changeCount(), "excluded pair must never publish")

	sched.NotifyChange("assets", "update", map[string]any{"id": 7})
	require.Eventually(t, func() bool { return sink.changeCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "assets", sink.changes[0].Module)
	require.Equal(t, "update", sink.changes[0].Action)
}

func TestSchedulerTriggersHubAfterPush(t *testing.T) {
	sink := &recorderSink{}
	hub := NewHub()
	sched := fastScheduler(sink, hub)
	defer sched.Stop()

	var mu sync.Mutex
	var sources []string
	hub.Subscribe("dashboard", func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		sources = append(sources, u.Source)
	})

	sched.ScheduleSync("hr", []aggregate.Record{{"date": "2024-06-15", "amount": 1}}, "date", "amount")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sources) == 1 && sources[0] == "hr"
	}, time.Second, 5*time.Millisecond)

	marks := sched.Marks()
	require.Len(t, marks, 1)
	require.Equal(t, "hr", marks[0].Module)
	require.Equal(t, 1, marks[0].RecordCount)
}

func TestHubMirrorsUpdatesToPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	sub := client.Subscribe(context.Background(), ChannelUpdates)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	hub := NewHub()
	hub.PublishTo(UpdatePublisher(client, nil))
	hub.TriggerUpdate("inventory")

	select {
	case msg := <-sub.Channel():
		var got Update
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Equal(t, "inventory", got.Source)
		require.False(t, got.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no message received on the updates channel")
	}
}

func TestRedisSinkPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	sub := client.Subscribe(context.Background(), ChannelPeriodCosts)
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	sink := NewRedisSink(client)
	push := CostPush{Module: "hr", Costs: aggregate.Buckets{Monthly: 100}, RecordCount: 2}
	require.NoError(t, sink.PushPeriodCosts(context.Background(), push))

	select {
	case msg := <-sub.Channel():
		var got CostPush
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Equal(t, push, got)
	case <-time.After(time.Second):
		t.Fatal("no message received on the period cost channel")
	}
}
