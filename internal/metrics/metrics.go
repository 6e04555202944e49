// Package metrics exposes Prometheus instrumentation for device calls,
// account syncs and collected log events.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aaabridge"

// Recorder owns its own registry so tests and multiple instances do not
// collide on the global one.
type Recorder struct {
	registry *prometheus.Registry

	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	syncs    *prometheus.CounterVec
	events   *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_commands_total",
			Help:      "Device API commands by path and outcome.",
		}, []string{"path", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "device_command_duration_seconds",
			Help:      "Wall time of device API commands including connect and login.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"path"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_syncs_total",
			Help:      "Account sync attempts by result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_events_total",
			Help:      "Collected log events by kind and whether they were new.",
		}, []string{"kind", "stored"}),
	}
	r.registry.MustRegister(
		r.commands,
		r.duration,
		r.syncs,
		r.events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveCommand implements routeros.Observer.
func (r *Recorder) ObserveCommand(path, outcome string, elapsed time.Duration) {
	r.commands.WithLabelValues(path, outcome).Inc()
	r.duration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// ObserveSync counts one sync outcome: "created", "updated" or "failed".
func (r *Recorder) ObserveSync(result string) {
	r.syncs.WithLabelValues(result).Inc()
}

// ObserveEvent counts one collected event.
func (r *Recorder) ObserveEvent(kind string, stored bool) {
	s := "duplicate"
	if stored {
		s = "new"
	}
	r.events.WithLabelValues(kind, s).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
