package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-app-scheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every collector when no namespace is given.
const DefaultNamespace = "appscheduler"

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	TickBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	tickDurationSeconds  *prom.HistogramVec
	appCount             *prom.GaugeVec
	appsInstalledTotal   *prom.CounterVec
	appsReapedTotal      *prom.CounterVec
	installRejectedTotal *prom.CounterVec
	hookPanicTotal       *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
// Registering twice on the same Registerer reuses the existing collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.TickBuckets
	if len(buckets) == 0 {
		buckets = prom.ExponentialBuckets(0.0001, 4, 8)
	}

	tickVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "tick_duration_seconds",
		Help:      "Duration of one scheduler Update in seconds.",
		Buckets:   buckets,
	}, []string{"scheduler"})
	countVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "app_count",
		Help:      "Apps owned by a scheduler, split into live and pending.",
	}, []string{"scheduler", "set"})
	installedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "apps_installed_total",
		Help:      "Total number of installed apps.",
	}, []string{"scheduler", "kind"})
	reapedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "apps_reaped_total",
		Help:      "Total number of dead apps removed from a scheduler.",
	}, []string{"scheduler", "kind"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "install_rejected_total",
		Help:      "Total number of ignored install calls.",
	}, []string{"scheduler", "reason"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "hook_panic_total",
		Help:      "Total number of recovered lifecycle hook panics.",
	}, []string{"scheduler", "state"})

	var err error
	if tickVec, err = registerCollector(reg, tickVec); err != nil {
		return nil, err
	}
	if countVec, err = registerCollector(reg, countVec); err != nil {
		return nil, err
	}
	if installedVec, err = registerCollector(reg, installedVec); err != nil {
		return nil, err
	}
	if reapedVec, err = registerCollector(reg, reapedVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		tickDurationSeconds:  tickVec,
		appCount:             countVec,
		appsInstalledTotal:   installedVec,
		appsReapedTotal:      reapedVec,
		installRejectedTotal: rejectedVec,
		hookPanicTotal:       panicVec,
	}, nil
}

// RecordTickDuration records the duration of one Update.
func (m *MetricsExporter) RecordTickDuration(schedulerName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.tickDurationSeconds.WithLabelValues(normalizeLabel(schedulerName, "unknown")).Observe(duration.Seconds())
}

// RecordAppCount records the live and pending set sizes.
func (m *MetricsExporter) RecordAppCount(schedulerName string, live, pending int) {
	if m == nil {
		return
	}
	name := normalizeLabel(schedulerName, "unknown")
	m.appCount.WithLabelValues(name, "live").Set(float64(live))
	m.appCount.WithLabelValues(name, "pending").Set(float64(pending))
}

// RecordAppInstalled counts accepted installs by app kind.
func (m *MetricsExporter) RecordAppInstalled(schedulerName string, kind string) {
	if m == nil {
		return
	}
	m.appsInstalledTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown"), normalizeLabel(kind, "unknown")).Inc()
}

// RecordAppReaped counts removed apps by app kind.
func (m *MetricsExporter) RecordAppReaped(schedulerName string, kind string) {
	if m == nil {
		return
	}
	m.appsReapedTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown"), normalizeLabel(kind, "unknown")).Inc()
}

// RecordInstallRejected counts ignored installs.
func (m *MetricsExporter) RecordInstallRejected(schedulerName string, reason string) {
	if m == nil {
		return
	}
	m.installRejectedTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordHookPanic counts recovered hook panics by the state the app was in.
func (m *MetricsExporter) RecordHookPanic(schedulerName string, state core.State, panicInfo any) {
	if m == nil {
		return
	}
	m.hookPanicTotal.WithLabelValues(normalizeLabel(schedulerName, "unknown"), state.String()).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
