package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-app-scheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
// Both *core.Scheduler and the root TickLoop satisfy it.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// LoopSnapshotProvider reports whether a tick loop is running.
type LoopSnapshotProvider interface {
	SchedulerSnapshotProvider
	IsRunning() bool
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	loopsMu sync.RWMutex
	loops   map[string]LoopSnapshotProvider

	tick         *prom.GaugeVec
	live         *prom.GaugeVec
	pending      *prom.GaugeVec
	installed    *prom.GaugeVec
	reaped       *prom.GaugeVec
	panics       *prom.GaugeVec
	lastTickSecs *prom.GaugeVec

	loopRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors
// under namespace, which defaults to DefaultNamespace.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	p := &SnapshotPoller{
		interval:     interval,
		schedulers:   make(map[string]SchedulerSnapshotProvider),
		loops:        make(map[string]LoopSnapshotProvider),
		tick:         gauge("scheduler_tick", "Number of Update calls started per scheduler.", "scheduler"),
		live:         gauge("scheduler_live_apps", "Apps in the live set per scheduler.", "scheduler"),
		pending:      gauge("scheduler_pending_apps", "Apps waiting for the next tick per scheduler.", "scheduler"),
		installed:    gauge("scheduler_installed_snapshot", "Scheduler installed app count snapshot.", "scheduler"),
		reaped:       gauge("scheduler_reaped_snapshot", "Scheduler reaped app count snapshot.", "scheduler"),
		panics:       gauge("scheduler_hook_panics_snapshot", "Scheduler recovered panic count snapshot.", "scheduler"),
		lastTickSecs: gauge("scheduler_last_tick_seconds", "Duration of the latest Update per scheduler.", "scheduler"),
		loopRunning:  gauge("loop_running", "Tick loop running state (1=running, 0=stopped).", "loop"),
	}

	for _, vec := range []**prom.GaugeVec{
		&p.tick, &p.live, &p.pending, &p.installed, &p.reaped, &p.panics, &p.lastTickSecs, &p.loopRunning,
	} {
		registered, err := registerCollector(reg, *vec)
		if err != nil {
			return nil, err
		}
		*vec = registered
	}

	return p, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// AddLoop adds or replaces a tick loop by name. Its scheduler is exported
// under the scheduler name found in its stats.
func (p *SnapshotPoller) AddLoop(name string, provider LoopSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "loop")
	p.loopsMu.Lock()
	p.loops[name] = provider
	p.loopsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	for name, provider := range p.schedulers {
		p.exportScheduler(name, provider.Stats())
	}
	p.schedulersMu.RUnlock()

	p.loopsMu.RLock()
	for name, provider := range p.loops {
		stats := provider.Stats()
		p.exportScheduler(normalizeLabel(stats.Name, name), stats)
		p.loopRunning.WithLabelValues(name).Set(boolGauge(provider.IsRunning()))
	}
	p.loopsMu.RUnlock()
}

func (p *SnapshotPoller) exportScheduler(name string, stats core.SchedulerStats) {
	p.tick.WithLabelValues(name).Set(float64(stats.Tick))
	p.live.WithLabelValues(name).Set(float64(stats.Live))
	p.pending.WithLabelValues(name).Set(float64(stats.Pending))
	p.installed.WithLabelValues(name).Set(float64(stats.Installed))
	p.reaped.WithLabelValues(name).Set(float64(stats.Reaped))
	p.panics.WithLabelValues(name).Set(float64(stats.Panics))
	p.lastTickSecs.WithLabelValues(name).Set(stats.LastTickDuration.Seconds())
}
