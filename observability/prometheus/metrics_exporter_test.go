package prometheus

import (
	"testing"
	"time"

	"github.com/Swind/go-app-scheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("appscheduler", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTickDuration("sched-a", 250*time.Microsecond)
	exporter.RecordAppCount("sched-a", 5, 2)
	exporter.RecordAppInstalled("sched-a", "Blinker")
	exporter.RecordAppReaped("sched-a", "Blinker")
	exporter.RecordInstallRejected("sched-a", "dead")
	exporter.RecordHookPanic("sched-a", core.StateRunning, "boom")

	if got := testutil.ToFloat64(exporter.appCount.WithLabelValues("sched-a", "live")); got != 5 {
		t.Fatalf("live gauge = %v, want 5", got)
	}
	if got := testutil.ToFloat64(exporter.appCount.WithLabelValues("sched-a", "pending")); got != 2 {
		t.Fatalf("pending gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exporter.appsInstalledTotal.WithLabelValues("sched-a", "Blinker")); got != 1 {
		t.Fatalf("installed total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.appsReapedTotal.WithLabelValues("sched-a", "Blinker")); got != 1 {
		t.Fatalf("reaped total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.installRejectedTotal.WithLabelValues("sched-a", "dead")); got != 1 {
		t.Fatalf("rejected total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.hookPanicTotal.WithLabelValues("sched-a", "running")); got != 1 {
		t.Fatalf("panic total = %v, want 1", got)
	}

	histCount, err := histogramSampleCount(exporter.tickDurationSeconds.WithLabelValues("sched-a"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("tick sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_EmptyLabelsFallBack(t *testing.T) {
	exporter, err := NewMetricsExporter("", prom.NewRegistry(), ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordInstallRejected("", "")

	if got := testutil.ToFloat64(exporter.installRejectedTotal.WithLabelValues("unknown", "unknown")); got != 1 {
		t.Fatalf("fallback label counter = %v, want 1", got)
	}
}

func TestMetricsExporter_NilReceiver(t *testing.T) {
	var exporter *MetricsExporter
	exporter.RecordTickDuration("s", time.Millisecond)
	exporter.RecordAppCount("s", 1, 1)
	exporter.RecordHookPanic("s", core.StateDying, nil)
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("appscheduler", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("appscheduler", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordAppInstalled("sched-a", "Countdown")
	second.RecordAppInstalled("sched-a", "Countdown")

	got := testutil.ToFloat64(first.appsInstalledTotal.WithLabelValues("sched-a", "Countdown"))
	if got != 2 {
		t.Fatalf("shared installed counter = %v, want 2", got)
	}
}

type shortLived struct {
	core.Base
	runs int
}

func (a *shortLived) OnRunning() {
	a.runs++
	if a.runs == 2 {
		a.Kill()
	}
}

// TestMetricsExporter_WiredIntoScheduler verifies a scheduler drives the exporter
// Given: A scheduler configured with the exporter and one short-lived app
// When: The app runs to completion
// Then: Install, reap, count and tick metrics reflect its lifecycle
func TestMetricsExporter_WiredIntoScheduler(t *testing.T) {
	exporter, err := NewMetricsExporter("", prom.NewRegistry(), ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}
	s := core.NewSchedulerWithConfig(&core.SchedulerConfig{
		Name:    "wired",
		Logger:  core.NewNoOpLogger(),
		Metrics: exporter,
	})

	s.Install(&shortLived{})
	s.Install(nil)
	for i := 0; i < 4; i++ {
		s.Update()
	}

	if got := testutil.ToFloat64(exporter.appsInstalledTotal.WithLabelValues("wired", "shortLived")); got != 1 {
		t.Fatalf("installed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.appsReapedTotal.WithLabelValues("wired", "shortLived")); got != 1 {
		t.Fatalf("reaped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.installRejectedTotal.WithLabelValues("wired", "nil")); got != 1 {
		t.Fatalf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exporter.appCount.WithLabelValues("wired", "live")); got != 0 {
		t.Fatalf("live = %v, want 0", got)
	}
	histCount, err := histogramSampleCount(exporter.tickDurationSeconds.WithLabelValues("wired"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 4 {
		t.Fatalf("tick samples = %d, want 4", histCount)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
