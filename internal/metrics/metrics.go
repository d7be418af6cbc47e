// Package metrics instruments registry writes and listing refreshes.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "catctl"

// Write result labels.
const (
	ResultSuccess  = "success"
	ResultReverted = "reverted"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Recorder holds the collectors. A nil *Recorder records nothing.
type Recorder struct {
	writes    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	entries   prometheus.Gauge
	confirm   *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_writes_total",
			Help:      "Registry write transactions by kind and result.",
		}, []string{"kind", "result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_refreshes_total",
			Help:      "Listing refreshes by result.",
		}, []string{"result"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listing_entries",
			Help:      "Entries in the current listing snapshot.",
		}),
		confirm: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirmation_seconds",
			Help:      "Time from submission to confirmation of registry writes.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{r.writes, r.refreshes, r.entries, r.confirm} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register collector")
		}
	}
	return r, nil
}

// ObserveWrite counts a finished write and, when it was confirmed, its confirmation latency.
func (r *Recorder) ObserveWrite(kind, result string, took time.Duration) {
	if r == nil {
		return
	}
	r.writes.WithLabelValues(kind, result).Inc()
	if result == ResultSuccess || result == ResultReverted {
		r.confirm.WithLabelValues(kind).Observe(took.Seconds())
	}
}

// ObserveRefresh counts a refresh and updates the entry gauge on success.
func (r *Recorder) ObserveRefresh(entries int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.refreshes.WithLabelValues(ResultError).Inc()
		return
	}
	r.refreshes.WithLabelValues(ResultSuccess).Inc()
	r.entries.Set(float64(entries))
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "metrics server failed")
	}
	return nil
}
