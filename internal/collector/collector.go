// Package collector periodically pulls NAT and AAA log lines from a device
// into the event store.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mohit83k/aaabridge/internal/logger"
	"github.com/mohit83k/aaabridge/internal/logs"
	"github.com/mohit83k/aaabridge/internal/model"
)

const DefaultSchedule = "@every 1m"

type Source interface {
	FetchNAT(ctx context.Context, q logs.Query) ([]model.LogEvent, error)
	FetchAAA(ctx context.Context, q logs.Query) ([]model.LogEvent, error)
}

type Sink interface {
	SaveEvent(ctx context.Context, device string, ev model.LogEvent) (bool, error)
}

// Observer is told about every event handed to the sink.
type Observer interface {
	ObserveEvent(kind string, stored bool)
}

// Summary describes one collection run.
type Summary struct {
	Fetched    int `json:"fetched" yaml:"fetched"`
	Stored     int `json:"stored" yaml:"stored"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	Failed     int `json:"failed" yaml:"failed"`
}

type Collector struct {
	device  string
	source  Source
	sink    Sink
	log     logger.Logger
	obs     Observer
	count   int
	timeout time.Duration

	cron *cron.Cron

	mu    sync.Mutex
	since map[model.EventKind]time.Time
}

type Option func(*Collector)

func WithLogger(l logger.Logger) Option { return func(c *Collector) { c.log = l } }

func WithObserver(o Observer) Option { return func(c *Collector) { c.obs = o } }

// WithCount sets how many lines each fetch asks for.
func WithCount(n int) Option { return func(c *Collector) { c.count = n } }

// WithTimeout bounds one scheduled run.
func WithTimeout(d time.Duration) Option { return func(c *Collector) { c.timeout = d } }

func New(device string, source Source, sink Sink, opts ...Option) *Collector {
	c := &Collector{
		device:  device,
		source:  source,
		sink:    sink,
		log:     logger.Discard(),
		timeout: 30 * time.Second,
		since:   make(map[model.EventKind]time.Time),
		// A slow device must not stack up overlapping runs.
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RunOnce fetches NAT then AAA lines and stores them. A failure of one kind
// does not prevent the other from being collected.
func (c *Collector) RunOnce(ctx context.Context) (Summary, error) {
	var sum Summary
	natErr := c.collect(ctx, model.EventNAT, c.source.FetchNAT, &sum)
	aaaErr := c.collect(ctx, model.EventAAA, c.source.FetchAAA, &sum)

	c.log.WithFields(map[string]any{
		"device":     c.device,
		"fetched":    sum.Fetched,
		"stored":     sum.Stored,
		"duplicates": sum.Duplicates,
		"failed":     sum.Failed,
	}).Info("log collection finished")
	return sum, errors.Join(natErr, aaaErr)
}

type fetchFunc func(context.Context, logs.Query) ([]model.LogEvent, error)

func (c *Collector) collect(ctx context.Context, kind model.EventKind, fetch fetchFunc, sum *Summary) error {
	q := logs.Query{Count: c.count}
	c.mu.Lock()
	if t, ok := c.since[kind]; ok {
		q.Since = &t
	}
	c.mu.Unlock()

	events, err := fetch(ctx, q)
	if err != nil {
		return fmt.Errorf("fetch %s logs: %w", kind, err)
	}
	sum.Fetched += len(events)

	var (
		latest time.Time
		errs   []error
	)
	for _, ev := range events {
		if ev.Timestamp != nil && ev.Timestamp.After(latest) {
			latest = *ev.Timestamp
		}
		stored, err := c.sink.SaveEvent(ctx, c.device, ev)
		if err != nil {
			sum.Failed++
			errs = append(errs, err)
			continue
		}
		if stored {
			sum.Stored++
		} else {
			sum.Duplicates++
		}
		if c.obs != nil {
			c.obs.ObserveEvent(string(ev.Kind), stored)
		}
	}

	// Only advance the watermark when every line made it into the store.
	if len(errs) == 0 && !latest.IsZero() {
		c.mu.Lock()
		c.since[kind] = latest
		c.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Start schedules RunOnce on the given cron spec and starts the scheduler.
func (c *Collector) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	_, err := c.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if _, err := c.RunOnce(ctx); err != nil {
			c.log.Error(fmt.Errorf("collect from %s: %w", c.device, err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid collect schedule %q: %w", schedule, err)
	}
	c.cron.Start()
	c.log.WithFields(map[string]any{"device": c.device, "schedule": schedule}).Info("log collector started")
	return nil
}

// Stop halts scheduling and waits for a running collection to finish.
func (c *Collector) Stop() {
	<-c.cron.Stop().Done()
	c.log.WithFields(map[string]any{"device": c.device}).Info("log collector stopped")
}
