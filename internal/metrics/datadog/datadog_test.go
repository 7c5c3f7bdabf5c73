package datadog

import (
	"context"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"telcodw/internal/metrics"
)

// fakeSubmitter captures payloads submitted by Backend.Flush().
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSubmitter) last() (datadogV2.MetricPayload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return datadogV2.MetricPayload{}, false
	}
	return f.payloads[len(f.payloads)-1], true
}

// newTestBackend builds a backend with a fake submitter and a ticker that
// never fires, so flushes happen only when the test asks for them.
func newTestBackend(t *testing.T, fake *fakeSubmitter) *Backend {
	t.Helper()
	b, err := NewBackend(context.Background(), Options{
		JobName: "test_job",
		now:     func() time.Time { return time.Unix(1_000_000, 0) },
		newTicker: func(time.Duration) *time.Ticker {
			return time.NewTicker(24 * time.Hour)
		},
		submitter: fake,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

func TestResolveEnvTag(t *testing.T) {
	oldENV := os.Getenv("ENV")
	oldDDENV := os.Getenv("DD_ENV")
	t.Cleanup(func() {
		_ = os.Setenv("ENV", oldENV)
		_ = os.Setenv("DD_ENV", oldDDENV)
	})

	tests := []struct {
		name string
		env  string
		dd   string
		want string
	}{
		{name: "ENV_wins", env: "prod", dd: "stage", want: "env:prod"},
		{name: "DD_ENV_fallback", env: "", dd: "stage", want: "env:stage"},
		{name: "whitespace_ignored", env: "  ", dd: "\t", want: "env:unknown"},
		{name: "default_unknown", env: "", dd: "", want: "env:unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_ = os.Setenv("ENV", tc.env)
			_ = os.Setenv("DD_ENV", tc.dd)
			if got := resolveEnvTag(); got != tc.want {
				t.Fatalf("resolveEnvTag()=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestFlush_EmptySubmitsNothing(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)
	defer func() { _ = b.Close() }()

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush()=%v", err)
	}
	if fake.count() != 0 {
		t.Fatalf("empty flush submitted %d payloads", fake.count())
	}
}

func TestFlush_SubmitsAndResets(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)
	defer func() { _ = b.Close() }()

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "stage", "status": "ok"})
	b.IncCounter(metrics.RecordsTotal, 7043, metrics.Labels{"kind": "stage"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 1.5, metrics.Labels{"step": "stage", "status": "ok"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush()=%v", err)
	}
	payload, ok := fake.last()
	if !ok {
		t.Fatal("no payload submitted")
	}
	if len(payload.Series) == 0 {
		t.Fatal("empty series submitted")
	}

	// Buffers reset: an immediate second flush submits nothing.
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush()=%v", err)
	}
	if fake.count() != 1 {
		t.Fatalf("payloads=%d want 1", fake.count())
	}
}

func TestClose_PerformsFinalFlush(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "promote", "status": "ok"})
	if err := b.Close(); err != nil {
		t.Fatalf("Close()=%v", err)
	}
	if fake.count() != 1 {
		t.Fatalf("payloads=%d want 1", fake.count())
	}
}

func TestIncCounter_IgnoresUnknownAndNonPositive(t *testing.T) {
	fake := &fakeSubmitter{}
	b := newTestBackend(t, fake)
	defer func() { _ = b.Close() }()

	b.IncCounter("something_else", 1, nil)
	b.IncCounter(metrics.StepTotal, 0, metrics.Labels{"step": "s", "status": "ok"})
	b.IncCounter(metrics.StepTotal, -3, metrics.Labels{"step": "s", "status": "ok"})
	b.IncCounter(metrics.RecordsTotal, 5, nil) // no kind label

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush()=%v", err)
	}
	if fake.count() != 0 {
		t.Fatalf("ignored metrics were submitted: %d payloads", fake.count())
	}
}

func TestBuildSeries_NamesAndTags(t *testing.T) {
	b := &Backend{baseTags: []string{"env:test", "job:test_job"}}

	s := snapshot{
		stepCounts:   map[string]float64{stepStatusKey("stage", "ok"): 2},
		recordCounts: map[string]float64{"fact_churn": 100},
		durationSamples: map[string][]float64{
			stepStatusKey("stage", "ok"): {0.5, 1.0, 2.0},
		},
	}

	series := b.buildSeries(s, 1700000000)

	byMetric := map[string]datadogV2.MetricSeries{}
	for _, ser := range series {
		byMetric[ser.Metric] = ser
	}

	step, ok := byMetric["telcodw.step.total"]
	if !ok {
		t.Fatalf("step counter missing: %v", byMetric)
	}
	wantTags := map[string]bool{"env:test": true, "job:test_job": true, "step:stage": true, "status:ok": true}
	for _, tag := range step.Tags {
		delete(wantTags, tag)
	}
	if len(wantTags) != 0 {
		t.Fatalf("step tags missing %v, got %v", wantTags, step.Tags)
	}

	if _, ok := byMetric["telcodw.records.total"]; !ok {
		t.Fatal("records counter missing")
	}
	for _, suffix := range []string{".p50", ".p90", ".p95", ".p99", ".max", ".samples"} {
		if _, ok := byMetric["telcodw.step.duration_seconds"+suffix]; !ok {
			t.Fatalf("percentile gauge %s missing", suffix)
		}
	}

	samples := byMetric["telcodw.step.duration_seconds.samples"]
	if got := *samples.Points[0].Value; got != 3 {
		t.Fatalf("sample count gauge = %v want 3", got)
	}
	if got := *samples.Points[0].Timestamp; got != 1700000000 {
		t.Fatalf("timestamp = %d", got)
	}
}

func TestPercentileNearestRank(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.5, 6},
		{0.9, 9},
		{1, 10},
	}
	for _, tt := range tests {
		if got := percentileNearestRank(s, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v want %v", tt.p, got, tt.want)
		}
	}
	if got := percentileNearestRank(nil, 0.5); got != 0 {
		t.Errorf("percentile(nil) = %v want 0", got)
	}
}

func TestParseTagsCSV(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"env:prod", 1},
		{"env:prod,service:warehouse", 2},
		{" env:prod , ,service:warehouse ", 2},
	}
	for _, tt := range tests {
		if got := ParseTagsCSV(tt.in); len(got) != tt.want {
			t.Errorf("ParseTagsCSV(%q) = %v want %d tags", tt.in, got, tt.want)
		}
	}
}

func TestStepStatusKey_RoundTrip(t *testing.T) {
	k := stepStatusKey("promote", "error")
	step, status := splitStepStatusKey(k)
	if step != "promote" || status != "error" {
		t.Fatalf("round trip = %q, %q", step, status)
	}
	step, status = splitStepStatusKey("bare")
	if step != "bare" || status != "unknown" {
		t.Fatalf("malformed key = %q, %q", step, status)
	}
}
