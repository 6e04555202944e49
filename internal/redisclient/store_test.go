package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/mohit83k/aaabridge/internal/model"
)

func natEvent() model.LogEvent {
	return model.LogEvent{
		ID:      "*1a",
		Time:    "2025-06-21 10:00:00",
		Topics:  []string{"firewall", "info"},
		Message: "src-address=10.0.0.5 dst-address=93.1.1.1 protocol=tcp action=dstnat",
		Kind:    model.EventNAT,
		NAT:     &model.NATFields{SourceIP: "10.0.0.5", DestinationIP: "93.1.1.1", Protocol: "tcp", Action: "dstnat", NATType: "destination"},
	}
}

func TestEventKey(t *testing.T) {
	ev := natEvent()
	key := EventKey("core-1", ev)
	if !strings.HasPrefix(key, "aaabridge:log:core-1:nat:") {
		t.Errorf("unexpected key %q", key)
	}
	if len(key) != len("aaabridge:log:core-1:nat:")+16 {
		t.Errorf("unexpected hash length in %q", key)
	}
	if EventKey("core-1", ev) != key {
		t.Error("key is not stable")
	}
	ev.Message += " "
	if EventKey("core-1", ev) == key {
		t.Error("different lines share a key")
	}
}

func TestRedisStore_SaveEvent_New(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newStore(db, time.Hour)

	ev := natEvent()
	val, _ := json.Marshal(ev)
	mock.ExpectSetNX(EventKey("core-1", ev), string(val), time.Hour).SetVal(true)

	created, err := store.SaveEvent(context.Background(), "core-1", ev)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !created {
		t.Error("expected event to be new")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRedisStore_SaveEvent_Duplicate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newStore(db, 0)

	ev := natEvent()
	val, _ := json.Marshal(ev)
	mock.ExpectSetNX(EventKey("core-1", ev), string(val), DefaultTTL).SetVal(false)

	created, err := store.SaveEvent(context.Background(), "core-1", ev)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if created {
		t.Error("duplicate reported as new")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRedisStore_SaveEvent_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newStore(db, time.Hour)

	ev := natEvent()
	val, _ := json.Marshal(ev)
	mock.ExpectSetNX(EventKey("core-1", ev), string(val), time.Hour).SetErr(fmt.Errorf("redis is down"))

	if _, err := store.SaveEvent(context.Background(), "core-1", ev); err == nil {
		t.Fatal("expected error but got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRedisStore_SaveSyncResult(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newStore(db, time.Hour)
	store.now = func() time.Time { return time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC) }

	res := model.SyncResult{Success: true, Message: "account created", Username: "alice", Profile: "Fiber_100_pppoe", Created: 1}
	val, _ := json.Marshal(res)
	mock.ExpectSet("aaabridge:sync:alice:20250621T100000.000000", string(val), time.Hour).SetVal("OK")

	if err := store.SaveSyncResult(context.Background(), res); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRedisStore_SaveSyncResult_Failure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := newStore(db, time.Hour)
	store.now = func() time.Time { return time.Date(2025, 6, 21, 11, 30, 0, 0, time.UTC) }

	res := model.SyncResult{Success: false, Message: "no username"}
	val, _ := json.Marshal(res)
	mock.ExpectSet("aaabridge:sync:unknown:20250621T113000.000000", string(val), time.Hour).
		SetErr(fmt.Errorf("redis is down"))

	if err := store.SaveSyncResult(context.Background(), res); err == nil {
		t.Fatal("expected error but got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestWatched(t *testing.T) {
	tests := []struct {
		key, scope string
		want       bool
	}{
		{"aaabridge:log:core-1:nat:abcd", "", true},
		{"aaabridge:log:core-1:nat:abcd", "log", true},
		{"aaabridge:sync:alice:20250621T100000", "log", false},
		{"radius:acct:alice", "", false},
	}
	for _, tt := range tests {
		if got := Watched(tt.key, tt.scope); got != tt.want {
			t.Errorf("Watched(%q, %q) = %v, want %v", tt.key, tt.scope, got, tt.want)
		}
	}
}
