// Package prometheus instruments fetchers and record writers with
// Prometheus collectors. Crawls are batch jobs, so metrics are exported
// as a node-exporter textfile rather than served.
package prometheus

import (
	"context"
	"strconv"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "docingest"

// Fetch outcomes used as label values.
const (
	OutcomeOK        = "ok"
	OutcomeHTTPError = "http_error"
	OutcomeError     = "error"
)

// Metrics holds the crawl collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	FetchesTotal   *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	FetchesRunning prometheus.Gauge
	StatusTotal    *prometheus.CounterVec
	RecordsTotal   *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	MarkdownBytes  prometheus.Counter
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetches_total",
			Help:      "Total number of fetch attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetch attempts.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		FetchesRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "fetches_in_flight",
			Help:      "Current number of fetches in progress.",
		}),
		StatusTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_responses_total",
			Help:      "Total number of responses by HTTP status code.",
		}, []string{"status"}),
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_total",
			Help:      "Total number of records written by type.",
		}, []string{"type"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of error records by kind.",
		}, []string{"kind"}),
		MarkdownBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "markdown_bytes_total",
			Help:      "Total bytes of Markdown written.",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes the current metric values to path in
// the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Ensure InstrumentedFetcher implements docingest.Fetcher at compile time.
var _ docingest.Fetcher = (*InstrumentedFetcher)(nil)

// InstrumentedFetcher records outcome, status and duration of every fetch.
type InstrumentedFetcher struct {
	next    docingest.Fetcher
	metrics *Metrics
}

// NewInstrumentedFetcher wraps next.
func NewInstrumentedFetcher(next docingest.Fetcher, m *Metrics) *InstrumentedFetcher {
	return &InstrumentedFetcher{next: next, metrics: m}
}

// Fetch delegates to the wrapped fetcher.
func (f *InstrumentedFetcher) Fetch(ctx context.Context, req *docingest.FetchRequest) (resp *docingest.FetchResponse, err error) {
	f.metrics.FetchesRunning.Inc()
	defer func(begin time.Time) {
		f.metrics.FetchesRunning.Dec()
		outcome := OutcomeError
		if err == nil && resp != nil {
			outcome = OutcomeOK
			if !resp.OK() {
				outcome = OutcomeHTTPError
			}
			f.metrics.StatusTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		}
		f.metrics.FetchesTotal.WithLabelValues(outcome).Inc()
		f.metrics.FetchDuration.WithLabelValues(outcome).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return f.next.Fetch(ctx, req)
}

// Close delegates to the wrapped fetcher.
func (f *InstrumentedFetcher) Close() error {
	return f.next.Close()
}

// Ensure InstrumentedRecordWriter implements docingest.RecordWriter at compile time.
var _ docingest.RecordWriter = (*InstrumentedRecordWriter)(nil)

// InstrumentedRecordWriter counts records that were written successfully.
type InstrumentedRecordWriter struct {
	next    docingest.RecordWriter
	metrics *Metrics
}

// NewInstrumentedRecordWriter wraps next.
func NewInstrumentedRecordWriter(next docingest.RecordWriter, m *Metrics) *InstrumentedRecordWriter {
	return &InstrumentedRecordWriter{next: next, metrics: m}
}

// WritePage delegates and counts the page and its Markdown size.
func (w *InstrumentedRecordWriter) WritePage(ctx context.Context, rec *docingest.PageRecord) error {
	if err := w.next.WritePage(ctx, rec); err != nil {
		return err
	}
	w.metrics.RecordsTotal.WithLabelValues("page").Inc()
	w.metrics.MarkdownBytes.Add(float64(len(rec.Markdown)))
	return nil
}

// WriteImage delegates and counts the image.
func (w *InstrumentedRecordWriter) WriteImage(ctx context.Context, rec *docingest.ImageRecord) error {
	if err := w.next.WriteImage(ctx, rec); err != nil {
		return err
	}
	w.metrics.RecordsTotal.WithLabelValues("image").Inc()
	return nil
}

// WriteVideoLink delegates and counts the video link.
func (w *InstrumentedRecordWriter) WriteVideoLink(ctx context.Context, rec *docingest.VideoLinkRecord) error {
	if err := w.next.WriteVideoLink(ctx, rec); err != nil {
		return err
	}
	w.metrics.RecordsTotal.WithLabelValues("video").Inc()
	return nil
}

// WriteError delegates and counts the error by kind.
func (w *InstrumentedRecordWriter) WriteError(ctx context.Context, rec *docingest.ErrorRecord) error {
	if err := w.next.WriteError(ctx, rec); err != nil {
		return err
	}
	w.metrics.RecordsTotal.WithLabelValues("error").Inc()
	w.metrics.ErrorsTotal.WithLabelValues(string(rec.ErrorKind)).Inc()
	return nil
}

// Close delegates to the wrapped writer.
func (w *InstrumentedRecordWriter) Close() error {
	return w.next.Close()
}
