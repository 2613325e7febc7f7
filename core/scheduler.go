package core

import (
	"runtime/debug"
	"slices"
	"sync/atomic"
	"time"
)

const defaultSchedulerName = "scheduler"

// Scheduler owns a set of Apps and advances each of them by one lifecycle
// step per Update.
//
// Newly installed Apps wait in a pending buffer and join the live set at the
// start of the next Update, so hooks can install Apps while the live set is
// being traversed. Apps that reach StateDead are removed in the same tick.
//
// A Scheduler is not safe for concurrent use: Install, Update and the lookups
// belong to the goroutine that drives the loop. Hooks run on that goroutine,
// so they may call Install and Kill directly.
type Scheduler struct {
	live    []App
	pending []App

	name         string
	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler
	history      *lifecycleHistory

	tick     uint64
	updating bool
	goid     uint64

	installed        int64
	reaped           int64
	rejected         int64
	panics           int64
	lastTickAt       time.Time
	lastTickDuration time.Duration

	stats atomic.Pointer[SchedulerStats]
}

// NewScheduler creates a Scheduler with the default config.
func NewScheduler() *Scheduler {
	return NewSchedulerWithConfig(DefaultSchedulerConfig())
}

// NewSchedulerWithConfig creates a Scheduler. Zero fields of cfg fall back to
// the defaults of DefaultSchedulerConfig, except PanicHandler which stays nil.
func NewSchedulerWithConfig(cfg *SchedulerConfig) *Scheduler {
	if cfg == nil {
		cfg = DefaultSchedulerConfig()
	}

	name := cfg.Name
	if name == "" {
		name = defaultSchedulerName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &NilMetrics{}
	}

	s := &Scheduler{
		name:         name,
		logger:       logger,
		metrics:      metrics,
		panicHandler: cfg.PanicHandler,
		history:      newLifecycleHistory(cfg.HistoryCapacity),
	}
	s.publish()
	return s
}

// Name returns the scheduler name used in logs and metrics.
func (s *Scheduler) Name() string {
	return s.name
}

// Install takes ownership of app and queues it for the next Update.
// It returns app so callers can keep a handle to it.
//
// A nil app, or one embedding a nil *Base, is ignored and nil is returned.
// So is an App that is dead or already owned by a scheduler.
func (s *Scheduler) Install(app App) App {
	s.assertOwner()

	if isNilApp(app) {
		s.reject("nil")
		return nil
	}

	b := app.base()
	switch {
	case b.owner != nil:
		s.logger.Warn("app already installed; ignored",
			F("scheduler", s.name), F("app", b.name), F("app_id", b.id.String()))
		s.reject("already_installed")
		return nil
	case b.IsDead():
		s.logger.Warn("dead app cannot be installed; ignored",
			F("scheduler", s.name), F("app", b.name))
		s.reject("dead")
		return nil
	}

	b.owner = s
	b.id = GenerateAppID()
	b.kind = appKind(app)
	if b.name == "" {
		b.name = b.kind
	}

	s.pending = append(s.pending, app)
	s.installed++

	s.logger.Debug("app installed",
		F("scheduler", s.name),
		F("app", b.name),
		F("app_id", b.id.String()),
		F("state", b.state.String()),
	)
	s.metrics.RecordAppInstalled(s.name, b.kind)
	s.metrics.RecordAppCount(s.name, len(s.live), len(s.pending))
	s.publish()

	return app
}

// InstallNew allocates a zero T, installs it on s and returns it.
//
//	counter := core.InstallNew[Counter](s)
func InstallNew[T any, PT interface {
	*T
	App
}](s *Scheduler) PT {
	app := PT(new(T))
	s.Install(app)
	return app
}

// Update runs one tick:
//  1. Pending Apps are appended to the live set, in install order.
//  2. Every live App is stepped once, in order.
//  3. An App that is dead after its step is removed right away and the
//     traversal continues with the next App.
//
// Apps installed by hooks during the traversal wait for the next Update.
// Calling Update from inside a hook is logged and ignored.
func (s *Scheduler) Update() {
	if s.updating {
		s.logger.Error("update called from inside a hook; ignored",
			F("scheduler", s.name), F("tick", s.tick))
		return
	}
	s.bindOwner()

	startedAt := time.Now()
	s.updating = true
	s.tick++
	defer func() {
		s.updating = false
		s.lastTickAt = startedAt
		s.lastTickDuration = time.Since(startedAt)
		s.metrics.RecordTickDuration(s.name, s.lastTickDuration)
		s.metrics.RecordAppCount(s.name, len(s.live), len(s.pending))
		s.publish()
	}()

	s.drainPending()
	s.publish()

	for i := 0; i < len(s.live); {
		app := s.live[i]
		s.stepApp(app)

		if app.base().IsDead() {
			s.live = slices.Delete(s.live, i, i+1)
			s.release(app)
			continue
		}
		i++
	}
}

func (s *Scheduler) drainPending() {
	if len(s.pending) == 0 {
		return
	}
	s.live = append(s.live, s.pending...)
	clear(s.pending)
	s.pending = s.pending[:0]
}

// stepApp advances app once. With a PanicHandler configured, a hook panic is
// recovered and the App is taken out of service.
func (s *Scheduler) stepApp(app App) {
	b := app.base()
	from := b.state

	if s.panicHandler != nil {
		defer func() {
			if rec := recover(); rec != nil {
				s.recoverHook(app, from, rec, debug.Stack())
			}
		}()
	}

	step(app)
	if to := b.state; to != from {
		s.record(b, from, to)
	}
}

func (s *Scheduler) recoverHook(app App, from State, rec any, stack []byte) {
	b := app.base()
	s.panics++
	s.metrics.RecordHookPanic(s.name, from, rec)
	s.panicHandler.HandlePanic(s.name, b.id, b.name, from, rec, stack)

	if from == StateDying {
		b.state = StateDead
		s.record(b, from, StateDead)
		return
	}

	b.Kill()
	s.record(b, from, b.state)
}

func (s *Scheduler) record(b *Base, from, to State) {
	s.history.Add(LifecycleRecord{
		AppID: b.id,
		Name:  b.name,
		From:  from,
		To:    to,
		Tick:  s.tick,
		At:    time.Now(),
	})
	s.logger.Debug("app "+to.String(),
		F("scheduler", s.name),
		F("app", b.name),
		F("app_id", b.id.String()),
		F("from", from.String()),
		F("tick", s.tick),
	)
}

// release drops the scheduler's ownership of a reaped App.
func (s *Scheduler) release(app App) {
	b := app.base()
	b.owner = nil
	s.reaped++

	s.logger.Debug("app reaped",
		F("scheduler", s.name), F("app", b.name), F("app_id", b.id.String()), F("tick", s.tick))
	s.metrics.RecordAppReaped(s.name, b.kind)
}

func (s *Scheduler) reject(reason string) {
	s.rejected++
	s.metrics.RecordInstallRejected(s.name, reason)
	s.publish()
}

// Count returns the number of live plus pending Apps.
func (s *Scheduler) Count() int {
	return len(s.live) + len(s.pending)
}

// Tick returns the number of Update calls that have started.
func (s *Scheduler) Tick() uint64 {
	return s.tick
}

// KillAll kills every live and pending App. They are destroyed and reaped on
// the next Update.
func (s *Scheduler) KillAll() {
	s.assertOwner()
	for _, app := range s.live {
		app.Kill()
	}
	for _, app := range s.pending {
		app.Kill()
	}
}

// RecentTransitions returns up to limit lifecycle transitions, newest first.
// limit <= 0 returns the whole retained history.
func (s *Scheduler) RecentTransitions(limit int) []LifecycleRecord {
	return s.history.Recent(limit)
}

// LastTransition returns the most recent lifecycle transition, if any.
func (s *Scheduler) LastTransition() (LifecycleRecord, bool) {
	return s.history.Last()
}

// Stats returns the snapshot published after the last Install or Update.
// Unlike the other methods it is safe to call from any goroutine.
func (s *Scheduler) Stats() SchedulerStats {
	return *s.stats.Load()
}

func (s *Scheduler) publish() {
	s.stats.Store(&SchedulerStats{
		Name:             s.name,
		Tick:             s.tick,
		Live:             len(s.live),
		Pending:          len(s.pending),
		Installed:        s.installed,
		Reaped:           s.reaped,
		Rejected:         s.rejected,
		Panics:           s.panics,
		Updating:         s.updating,
		LastTickAt:       s.lastTickAt,
		LastTickDuration: s.lastTickDuration,
	})
}
