// Package logs retrieves device log lines and classifies them into NAT and
// AAA events.
package logs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohit83k/aaabridge/internal/command"
	"github.com/mohit83k/aaabridge/internal/logger"
	"github.com/mohit83k/aaabridge/internal/model"
	"github.com/mohit83k/aaabridge/internal/routeros"
)

// DefaultCount applies when a query leaves Count at zero.
const DefaultCount = 100

var ErrInvalidCount = errors.New("invalid log line count")

// Query selects log lines. Contains, Since and Until are combined into a
// single device-side predicate.
type Query struct {
	Topics   []string
	Contains []string
	Since    *time.Time
	Until    *time.Time
	Count    int
}

// Where renders the query filters as a predicate.
func (q Query) Where() Where {
	var w Where
	for _, s := range q.Contains {
		if s != "" {
			w = w.Contains(s)
		}
	}
	if q.Since != nil {
		w = w.Since(*q.Since)
	}
	if q.Until != nil {
		w = w.Until(*q.Until)
	}
	return w
}

// LineCount resolves Count, rejecting values outside 0..MaxLogLines.
func (q Query) LineCount() (int, error) {
	switch {
	case q.Count == 0:
		return DefaultCount, nil
	case q.Count < 0:
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidCount, q.Count)
	case q.Count > command.MaxLogLines:
		return 0, fmt.Errorf("%w: %d exceeds limit of %d", ErrInvalidCount, q.Count, command.MaxLogLines)
	}
	return q.Count, nil
}

type Fetcher struct {
	exec       routeros.Executor
	classifier *Classifier
	log        logger.Logger
	loc        *time.Location
	now        func() time.Time
}

type Option func(*Fetcher)

// WithLocation sets the zone device timestamps are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(f *Fetcher) { f.loc = loc }
}

func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

func withClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

func NewFetcher(exec routeros.Executor, opts ...Option) *Fetcher {
	f := &Fetcher{
		exec:       exec,
		classifier: NewClassifier(),
		log:        logger.Discard(),
		loc:        time.Local,
		now:        time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch reads lines and classifies each one by its own content.
func (f *Fetcher) Fetch(ctx context.Context, q Query) ([]model.LogEvent, error) {
	return f.fetch(ctx, q, "")
}

// FetchNAT reads firewall lines (NATTopics unless the query names topics)
// and classifies them as NAT.
func (f *Fetcher) FetchNAT(ctx context.Context, q Query) ([]model.LogEvent, error) {
	if len(q.Topics) == 0 {
		q.Topics = NATTopics
	}
	return f.fetch(ctx, q, model.EventNAT)
}

// FetchAAA reads authentication lines (AAATopics unless the query names
// topics) and classifies them as AAA.
func (f *Fetcher) FetchAAA(ctx context.Context, q Query) ([]model.LogEvent, error) {
	if len(q.Topics) == 0 {
		q.Topics = AAATopics
	}
	return f.fetch(ctx, q, model.EventAAA)
}

// FetchResult runs the fetch for kind ("" for mixed) and wraps it in the
// caller envelope.
func (f *Fetcher) FetchResult(ctx context.Context, q Query, kind model.EventKind) model.Result {
	var (
		events []model.LogEvent
		err    error
	)
	switch kind {
	case model.EventNAT:
		events, err = f.FetchNAT(ctx, q)
	case model.EventAAA:
		events, err = f.FetchAAA(ctx, q)
	default:
		events, err = f.Fetch(ctx, q)
	}
	if err != nil {
		return model.Fail("failed to fetch logs", err)
	}
	return model.OK(fmt.Sprintf("%d log lines", len(events)), events)
}

func (f *Fetcher) fetch(ctx context.Context, q Query, kind model.EventKind) ([]model.LogEvent, error) {
	n, err := q.LineCount()
	if err != nil {
		return nil, err
	}
	cmd, err := command.LogQuery{Topics: q.Topics, Where: q.Where().String(), Count: n}.Build()
	if err != nil {
		return nil, err
	}
	rows, err := f.exec.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}

	events := make([]model.LogEvent, 0, len(rows))
	for _, row := range rows {
		topics := splitTopics(row["topics"])
		var ev model.LogEvent
		if kind == "" {
			ev = f.classifier.Classify(row["message"], topics)
		} else {
			ev = f.classifier.ClassifyAs(kind, row["message"], topics)
		}
		ev.ID = row.ID()
		ev.Time = row["time"]
		if ts, ok := f.parseTime(row["time"]); ok {
			ev.Timestamp = &ts
		}
		events = append(events, ev)
	}
	f.log.WithFields(map[string]any{
		"topics": strings.Join(q.Topics, ","),
		"lines":  len(events),
	}).Info("fetched device logs")
	return events, nil
}

func splitTopics(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Device clocks print the date only when it differs from today, and older
// firmware uses "jan/02/2006" style dates.
var timeLayouts = []struct {
	layout  string
	hasYear bool
	hasDate bool
}{
	{"2006-01-02 15:04:05", true, true},
	{"Jan/02/2006 15:04:05", true, true},
	{"01-02 15:04:05", false, true},
	{"Jan/02 15:04:05", false, true},
	{"15:04:05", false, false},
}

// clockSkew is how far ahead of the local clock a device timestamp may be
// before it is taken to belong to the previous day or year.
const clockSkew = 5 * time.Minute

// parseTime is best effort; an unparseable value leaves Timestamp nil.
func (f *Fetcher) parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	now := f.now().In(f.loc)
	for _, l := range timeLayouts {
		t, err := time.ParseInLocation(l.layout, s, f.loc)
		if err != nil {
			continue
		}
		year, month, day := t.Date()
		if !l.hasYear {
			year = now.Year()
		}
		if !l.hasDate {
			year, month, day = now.Date()
		}
		ts := time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), 0, f.loc)
		// A line stamped later than now was written before the date
		// rolled over.
		if ts.After(now.Add(clockSkew)) {
			switch {
			case !l.hasDate:
				ts = ts.AddDate(0, 0, -1)
			case !l.hasYear:
				ts = ts.AddDate(-1, 0, 0)
			}
		}
		return ts, true
	}
	return time.Time{}, false
}
