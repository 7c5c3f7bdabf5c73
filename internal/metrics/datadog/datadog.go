// Package datadog submits warehouse load metrics to Datadog.
//
// Metrics buffer in memory and ship on a ticker (default once per minute),
// with one final flush on Close. Short-lived load jobs therefore still get
// their tail submitted, and long promotions show up as a real time series
// rather than a single spike at exit.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"telcodw/internal/metrics"
)

// Options configures the backend.
type Options struct {
	// JobName becomes the "job:<name>" tag on every series. Defaults to "telcodw".
	JobName string

	// Tags are extra Datadog tags, e.g. []string{"env:prod", "service:warehouse"}.
	Tags []string

	// FlushEvery is the submission interval. Defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets these; tests use them
	// to avoid real clocks, tickers and network submission.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the slice of the Datadog SDK the backend depends on.
// The SDK only exposes the concrete *datadogV2.MetricsApi; depending on this
// interface instead lets tests substitute a fake.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	stepCounts      map[string]float64
	recordCounts    map[string]float64
	durationSamples map[string][]float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client and
// starts its periodic flush goroutine. Credentials come from the standard
// DD_API_KEY / DD_APP_KEY environment variables.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "telcodw"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),

		baseTags: baseTags,

		now:       nowFn,
		newTicker: newTicker,

		stepCounts:      make(map[string]float64),
		recordCounts:    make(map[string]float64),
		durationSamples: make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs one final Flush. Close once;
// a second Close panics on the already-closed stop channel.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend. Unknown metric names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepTotal:
		b.stepCounts[stepStatusKey(labels["step"], labels["status"])] += delta

	case metrics.RecordsTotal:
		kind := labels["kind"]
		if kind == "" {
			return
		}
		b.recordCounts[kind] += delta
	}
}

// ObserveHistogram implements metrics.Backend. Unknown metric names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if name == metrics.StepDurationSeconds {
		k := stepStatusKey(labels["step"], labels["status"])
		b.durationSamples[k] = append(b.durationSamples[k], value)
	}
}

// snapshot is a detached copy of the buffers, taken so Flush can build and
// submit the payload without holding the lock.
type snapshot struct {
	stepCounts      map[string]float64
	recordCounts    map[string]float64
	durationSamples map[string][]float64
}

func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		stepCounts:      b.stepCounts,
		recordCounts:    b.recordCounts,
		durationSamples: b.durationSamples,
	}

	b.stepCounts = make(map[string]float64)
	b.recordCounts = make(map[string]float64)
	b.durationSamples = make(map[string][]float64)

	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.stepCounts) == 0 && len(s.recordCounts) == 0 && len(s.durationSamples) == 0
}

// Flush submits buffered metrics and resets the buffers. Buffers reset even
// when submission fails, so a broken intake never blocks the load path.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	series := b.buildSeries(snap, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries turns a snapshot into Datadog series at a fixed timestamp.
// It is pure, which is what makes the naming and tagging contract testable.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.stepCounts)+len(s.recordCounts)+6*len(s.durationSamples))

	for k, v := range s.stepCounts {
		if v == 0 {
			continue
		}
		step, status := splitStepStatusKey(k)
		tags := withTags(b.baseTags, "step:"+step, "status:"+status)
		series = append(series, countSeries("telcodw.step.total", v, tags, nowUnix))
	}

	for kind, v := range s.recordCounts {
		if v == 0 {
			continue
		}
		tags := withTags(b.baseTags, "kind:"+kind)
		series = append(series, countSeries("telcodw.records.total", v, tags, nowUnix))
	}

	for k, samples := range s.durationSamples {
		if len(samples) == 0 {
			continue
		}
		cp := append([]float64(nil), samples...)
		sort.Float64s(cp)

		step, status := splitStepStatusKey(k)
		tags := withTags(b.baseTags, "step:"+step, "status:"+status)
		prefix := "telcodw.step.duration_seconds"

		series = append(series, gaugeSeries(prefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix))
		series = append(series, gaugeSeries(prefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix))
		series = append(series, gaugeSeries(prefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix))
		series = append(series, gaugeSeries(prefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix))
		series = append(series, gaugeSeries(prefix+".max", cp[len(cp)-1], tags, nowUnix))
		series = append(series, gaugeSeries(prefix+".samples", float64(len(cp)), tags, nowUnix))
	}

	return series
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func stepStatusKey(step, status string) string {
	return step + "\x00" + status
}

func splitStepStatusKey(k string) (step, status string) {
	parts := strings.SplitN(k, "\x00", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return k, "unknown"
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,service:warehouse".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
