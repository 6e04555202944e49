package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohit83k/aaabridge/internal/logs"
	"github.com/mohit83k/aaabridge/internal/model"
)

// --- Mocks ---

type mockSource struct {
	mu      sync.Mutex
	nat     []model.LogEvent
	aaa     []model.LogEvent
	natErr  error
	queries []logs.Query
}

func (m *mockSource) FetchNAT(_ context.Context, q logs.Query) ([]model.LogEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	return m.nat, m.natErr
}

func (m *mockSource) FetchAAA(_ context.Context, q logs.Query) ([]model.LogEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	return m.aaa, nil
}

type mockSink struct {
	mu    sync.Mutex
	seen  map[string]bool
	fail  string
	saved []string
}

func (m *mockSink) SaveEvent(_ context.Context, device string, ev model.LogEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == m.fail {
		return false, errors.New("redis is down")
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	key := device + ev.ID
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	m.saved = append(m.saved, ev.ID)
	return true, nil
}

type mockObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *mockObserver) ObserveEvent(kind string, stored bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	if stored {
		kind += "/new"
	}
	m.counts[kind]++
}

func event(id string, kind model.EventKind, ts time.Time) model.LogEvent {
	return model.LogEvent{ID: id, Kind: kind, Timestamp: &ts, Message: id}
}

var t0 = time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC)

// --- Tests ---

func TestRunOnce_StoresAndDedupes(t *testing.T) {
	src := &mockSource{
		nat: []model.LogEvent{event("*1", model.EventNAT, t0), event("*2", model.EventNAT, t0.Add(time.Second))},
		aaa: []model.LogEvent{event("*3", model.EventAAA, t0)},
	}
	sink := &mockSink{}
	obs := &mockObserver{}
	c := New("core-1", src, sink, WithObserver(obs), WithCount(50))

	sum, err := c.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != (Summary{Fetched: 3, Stored: 3}) {
		t.Errorf("unexpected summary %+v", sum)
	}

	sum, err = c.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != (Summary{Fetched: 3, Duplicates: 3}) {
		t.Errorf("second run should only see duplicates, got %+v", sum)
	}
	if obs.counts["nat/new"] != 2 || obs.counts["nat"] != 2 || obs.counts["aaa/new"] != 1 {
		t.Errorf("unexpected observations %v", obs.counts)
	}
	if src.queries[0].Count != 50 {
		t.Errorf("count option not applied: %+v", src.queries[0])
	}
}

func TestRunOnce_AdvancesWatermark(t *testing.T) {
	src := &mockSource{
		nat: []model.LogEvent{event("*1", model.EventNAT, t0), event("*2", model.EventNAT, t0.Add(time.Minute))},
	}
	c := New("core-1", src, &mockSink{})

	if _, err := c.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.queries[0].Since != nil || src.queries[1].Since != nil {
		t.Fatal("first run should not filter by time")
	}
	if _, err := c.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nat := src.queries[2]
	if nat.Since == nil || !nat.Since.Equal(t0.Add(time.Minute)) {
		t.Errorf("expected nat watermark at newest line, got %v", nat.Since)
	}
	if src.queries[3].Since != nil {
		t.Errorf("aaa had no lines, watermark should stay unset: %v", src.queries[3].Since)
	}
}

func TestRunOnce_FetchFailureDoesNotStopOtherKind(t *testing.T) {
	src := &mockSource{
		natErr: errors.New("connection refused"),
		aaa:    []model.LogEvent{event("*3", model.EventAAA, t0)},
	}
	sink := &mockSink{}
	sum, err := New("core-1", src, sink).RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected nat fetch error")
	}
	if sum.Stored != 1 || len(sink.saved) != 1 || sink.saved[0] != "*3" {
		t.Errorf("aaa events should still be stored: %+v %v", sum, sink.saved)
	}
}

func TestRunOnce_StoreFailureHoldsWatermark(t *testing.T) {
	src := &mockSource{nat: []model.LogEvent{event("*1", model.EventNAT, t0), event("*2", model.EventNAT, t0.Add(time.Minute))}}
	sink := &mockSink{fail: "*2"}
	c := New("core-1", src, sink)

	sum, err := c.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected store error")
	}
	if sum.Failed != 1 || sum.Stored != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if _, ok := c.since[model.EventNAT]; ok {
		t.Error("watermark advanced despite a failed store")
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	c := New("core-1", &mockSource{}, &mockSink{})
	if err := c.Start("not a schedule"); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestStart_RunsOnSchedule(t *testing.T) {
	src := &mockSource{nat: []model.LogEvent{event("*1", model.EventNAT, t0)}}
	sink := &mockSink{}
	c := New("core-1", src, sink)
	if err := c.Start("@every 1s"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		n := len(sink.saved)
		sink.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("scheduled collection never ran")
}
