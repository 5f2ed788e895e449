package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/metrics/export/internaldefs"
)

type fakeSource struct {
	snapshot storegate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() storegate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestCollectorCountsEveryDefinition(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: storegate.MetricsSnapshot{
			Counters:   map[storegate.MetricID]uint64{storegate.MetricLoginSuccess: 7},
			Histograms: map[storegate.MetricID][]uint64{},
		},
	})

	want := len(internaldefs.CounterDefs) + 1
	if got := testutil.CollectAndCount(c); got != want {
		t.Fatalf("expected %d metrics, got %d", want, got)
	}
}

func TestCollectorRendersCounterAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: storegate.MetricsSnapshot{
			Counters: map[storegate.MetricID]uint64{
				storegate.MetricLoginSuccess: 7,
			},
			Histograms: map[storegate.MetricID][]uint64{
				storegate.MetricGateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	expected := `
# HELP storegate_login_success_total Successful sign-ins.
# TYPE storegate_login_success_total counter
storegate_login_success_total 7
# HELP storegate_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE storegate_audit_dropped_total counter
storegate_audit_dropped_total 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"storegate_login_success_total", "storegate_audit_dropped_total"); err != nil {
		t.Fatalf("unexpected collector output: %v", err)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := rec.Body.String()
	if !strings.Contains(out, `storegate_gate_latency_seconds_bucket{le="0.005"} 1`) {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, `storegate_gate_latency_seconds_bucket{le="+Inf"} 36`) {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if strings.Contains(out, "storegate_backend_latency_seconds_bucket") {
		t.Fatalf("histogram without samples should be omitted, got:\n%s", out)
	}
}

func TestGateCollectorReadsMetrics(t *testing.T) {
	m := storegate.NewMetrics(storegate.MetricsConfig{Enabled: true})
	m.Inc(storegate.MetricGateAllow)
	m.Inc(storegate.MetricGateAllow)

	reg := prom.NewRegistry()
	if err := reg.Register(NewGateCollector(m)); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "storegate_gate_allow_total" {
			continue
		}
		if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 2 {
			t.Fatalf("expected 2, got %v", got)
		}
		return
	}
	t.Fatal("storegate_gate_allow_total not gathered")
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: storegate.MetricsSnapshot{
			Counters: map[storegate.MetricID]uint64{
				storegate.MetricLoginSuccess:   1000,
				storegate.MetricLoginFailure:   40,
				storegate.MetricRefreshSuccess: 800,
				storegate.MetricGateAllow:      90000,
			},
			Histograms: map[storegate.MetricID][]uint64{
				storegate.MetricGateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = testutil.CollectAndCount(c)
	}
}
