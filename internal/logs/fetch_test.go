package logs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohit83k/aaabridge/internal/model"
	"github.com/mohit83k/aaabridge/internal/routeros"
	"github.com/mohit83k/aaabridge/internal/routeros/routerostest"
)

func seededDevice() *routerostest.Device {
	dev := routerostest.NewDevice()
	dev.Logs = []routeros.Row{
		{".id": "*1", "time": "2024-03-01 08:00:01", "topics": "firewall,info",
			"message": "src-address=10.0.0.5 dst-address=93.1.1.1 protocol=tcp action=dstnat"},
		{".id": "*2", "time": "08:00:02", "topics": "pppoe,ppp,info",
			"message": "user=alice client=10.0.0.5 login accept"},
		{".id": "*3", "time": "mar/01 08:00:03", "topics": "system,info",
			"message": "router rebooted"},
		{".id": "*4", "time": "garbage", "topics": "firewall,info",
			"message": "in:ether1 out:bridge, proto UDP, 10.0.0.9:53->8.8.8.8:53"},
	}
	return dev
}

func testFetcher(dev *routerostest.Device) *Fetcher {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewFetcher(dev, WithLocation(time.UTC), withClock(func() time.Time { return now }))
}

func TestFetch_ClassifiesEveryLine(t *testing.T) {
	dev := seededDevice()
	events, err := testFetcher(dev).Fetch(context.Background(), Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected all 4 lines, got %d", len(events))
	}
	kinds := []model.EventKind{model.EventNAT, model.EventAAA, model.EventOther, model.EventNAT}
	for i, k := range kinds {
		if events[i].Kind != k {
			t.Errorf("line %d: got kind %s, want %s", i, events[i].Kind, k)
		}
	}
	if events[0].ID != "*1" || events[0].Time != "2024-03-01 08:00:01" {
		t.Errorf("row identity not carried: %+v", events[0])
	}
	if len(events[1].Topics) != 3 || events[1].Topics[0] != "pppoe" {
		t.Errorf("topics not split: %v", events[1].Topics)
	}

	cmd := dev.Calls()[0]
	if c, _ := cmd.Arg("count"); c != "100" {
		t.Errorf("expected default count 100, got %q", c)
	}
	if _, ok := cmd.Arg("where"); ok {
		t.Error("empty query should not send a predicate")
	}
}

func TestFetch_Timestamps(t *testing.T) {
	events, err := testFetcher(seededDevice()).Fetch(context.Background(), Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Time{
		time.Date(2024, 3, 1, 8, 0, 1, 0, time.UTC),
		time.Date(2024, 3, 1, 8, 0, 2, 0, time.UTC),
		time.Date(2024, 3, 1, 8, 0, 3, 0, time.UTC),
	}
	for i, w := range want {
		if events[i].Timestamp == nil || !events[i].Timestamp.Equal(w) {
			t.Errorf("line %d: got %v, want %v", i, events[i].Timestamp, w)
		}
	}
	if events[3].Timestamp != nil {
		t.Errorf("unparseable time should leave timestamp nil, got %v", events[3].Timestamp)
	}
	if events[3].Time != "garbage" {
		t.Errorf("raw time should be kept, got %q", events[3].Time)
	}
}

func TestFetch_TimestampsAcrossMidnight(t *testing.T) {
	dev := routerostest.NewDevice()
	dev.Logs = []routeros.Row{
		{".id": "*1", "time": "23:59:58", "topics": "system,info", "message": "before midnight"},
		{".id": "*2", "time": "00:00:10", "topics": "system,info", "message": "after midnight"},
		{".id": "*3", "time": "dec/31 23:59:59", "topics": "system,info", "message": "last year"},
	}
	now := time.Date(2024, 1, 1, 0, 0, 30, 0, time.UTC)
	f := NewFetcher(dev, WithLocation(time.UTC), withClock(func() time.Time { return now }))

	events, err := f.Fetch(context.Background(), Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Time{
		time.Date(2023, 12, 31, 23, 59, 58, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC),
		time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
	}
	for i, w := range want {
		if events[i].Timestamp == nil || !events[i].Timestamp.Equal(w) {
			t.Errorf("line %d: got %v, want %v", i, events[i].Timestamp, w)
		}
		if events[i].Timestamp != nil && events[i].Timestamp.After(now) {
			t.Errorf("line %d: timestamp %v is in the future", i, events[i].Timestamp)
		}
	}
}

func TestFetch_EmptyReply(t *testing.T) {
	srv := routerostest.NewServer(t, routerostest.NewDevice(), "admin", "pw")
	srv.SetEmpty(true)
	client := routeros.NewClient(routeros.Config{Address: srv.Addr(), Username: "admin", Password: "pw", Timeout: 2 * time.Second})

	events, err := NewFetcher(client).FetchAAA(context.Background(), Query{Count: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestFetchNAT_DefaultTopics(t *testing.T) {
	dev := seededDevice()
	events, err := testFetcher(dev).FetchNAT(context.Background(), Query{Count: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 firewall lines, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Kind != model.EventNAT || ev.NAT == nil {
			t.Errorf("expected nat event, got %+v", ev)
		}
	}
	if got := events[1].NAT; got.DestinationPort != "53" || got.Protocol != "udp" || got.InInterface != "ether1" {
		t.Errorf("unexpected nat fields %+v", got)
	}
	if topics, _ := dev.Calls()[0].Arg("topics"); topics != "firewall" {
		t.Errorf("expected firewall topic, got %q", topics)
	}
}

func TestFetchAAA_DefaultTopicsAndPredicate(t *testing.T) {
	dev := seededDevice()
	since := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	q := Query{Contains: []string{"alice"}, Since: &since}

	events, err := testFetcher(dev).FetchAAA(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].AAA == nil || events[0].AAA.Username != "alice" {
		t.Fatalf("unexpected events %+v", events)
	}

	cmd := dev.Calls()[0]
	if topics, _ := cmd.Arg("topics"); topics != "pppoe,ppp,hotspot,radius,account" {
		t.Errorf("unexpected topics %q", topics)
	}
	want := `(message contains "alice") and time >= "2024-03-01 07:00:00"`
	if where, _ := cmd.Arg("where"); where != want {
		t.Errorf("got where %q, want %q", where, want)
	}
}

func TestFetch_InvalidCountNeverReachesDevice(t *testing.T) {
	for _, n := range []int{1001, -5} {
		dev := seededDevice()
		_, err := testFetcher(dev).Fetch(context.Background(), Query{Count: n})
		if !errors.Is(err, ErrInvalidCount) {
			t.Errorf("count %d: expected ErrInvalidCount, got %v", n, err)
		}
		if dev.CallCount("/log/print") != 0 {
			t.Errorf("count %d: device was called", n)
		}
	}
}

func TestFetchResult_Envelope(t *testing.T) {
	dev := seededDevice()
	f := testFetcher(dev)

	res := f.FetchResult(context.Background(), Query{Count: 2}, "")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	events, ok := res.Data.([]model.LogEvent)
	if !ok || len(events) != 2 {
		t.Fatalf("unexpected data %#v", res.Data)
	}

	dev.Fail["/log/print"] = &routeros.DeviceError{Kind: routeros.KindConnection, Message: "connection refused"}
	res = f.FetchResult(context.Background(), Query{}, model.EventAAA)
	if res.Success || res.Error == "" {
		t.Errorf("expected failure envelope, got %+v", res)
	}

	res = f.FetchResult(context.Background(), Query{Count: 5000}, model.EventNAT)
	if res.Success {
		t.Error("expected count rejection")
	}
}
