package core

import (
	"slices"
	"testing"
	"time"
)

// journal records hook invocations in call order.
type journal struct {
	events []string
}

func (j *journal) add(event string) {
	j.events = append(j.events, event)
}

func (j *journal) take() []string {
	out := j.events
	j.events = nil
	return out
}

// recorderApp logs every hook to a journal and runs optional callbacks.
type recorderApp struct {
	Base
	label   string
	journal *journal

	setupFn   func()
	runningFn func()
	destroyFn func()
}

func newRecorder(label string, j *journal) *recorderApp {
	return &recorderApp{label: label, journal: j}
}

func (a *recorderApp) OnSetup() {
	a.journal.add(a.label + ".setup")
	if a.setupFn != nil {
		a.setupFn()
	}
}

func (a *recorderApp) OnRunning() {
	a.journal.add(a.label + ".running")
	if a.runningFn != nil {
		a.runningFn()
	}
}

func (a *recorderApp) OnDestroy() {
	a.journal.add(a.label + ".destroy")
	if a.destroyFn != nil {
		a.destroyFn()
	}
}

// alphaApp and betaApp are distinct concrete kinds for typed lookup.
type alphaApp struct {
	recorderApp
}

type betaApp struct {
	recorderApp
}

func newAlpha(label string, j *journal) *alphaApp {
	return &alphaApp{recorderApp: recorderApp{label: label, journal: j}}
}

func newBeta(label string, j *journal) *betaApp {
	return &betaApp{recorderApp: recorderApp{label: label, journal: j}}
}

// plainApp relies on the no-op hooks of Base.
type plainApp struct {
	Base
}

// MockMetrics counts Metrics calls.
type MockMetrics struct {
	ticks     []time.Duration
	installed []string
	reaped    []string
	rejected  []string
	panics    []State
	lastLive  int
	lastPend  int
}

func (m *MockMetrics) RecordTickDuration(schedulerName string, duration time.Duration) {
	m.ticks = append(m.ticks, duration)
}

func (m *MockMetrics) RecordAppCount(schedulerName string, live, pending int) {
	m.lastLive, m.lastPend = live, pending
}

func (m *MockMetrics) RecordAppInstalled(schedulerName string, kind string) {
	m.installed = append(m.installed, kind)
}

func (m *MockMetrics) RecordAppReaped(schedulerName string, kind string) {
	m.reaped = append(m.reaped, kind)
}

func (m *MockMetrics) RecordInstallRejected(schedulerName string, reason string) {
	m.rejected = append(m.rejected, reason)
}

func (m *MockMetrics) RecordHookPanic(schedulerName string, state State, panicInfo any) {
	m.panics = append(m.panics, state)
}

// MockPanicHandler captures recovered hook panics.
type MockPanicHandler struct {
	calls []mockPanicCall
}

type mockPanicCall struct {
	appName   string
	state     State
	panicInfo any
	stack     []byte
}

func (h *MockPanicHandler) HandlePanic(schedulerName string, appID AppID, appName string, state State, panicInfo any, stackTrace []byte) {
	h.calls = append(h.calls, mockPanicCall{appName: appName, state: state, panicInfo: panicInfo, stack: stackTrace})
}

func newTestScheduler() *Scheduler {
	return NewSchedulerWithConfig(&SchedulerConfig{
		Name:   "test",
		Logger: NewNoOpLogger(),
	})
}

func liveLabels(s *Scheduler) []string {
	out := make([]string, 0, len(s.live))
	for _, app := range s.live {
		out = append(out, labelOf(app))
	}
	return out
}

func labelOf(app App) string {
	if isNilApp(app) {
		return "<nil>"
	}
	switch a := app.(type) {
	case *recorderApp:
		return a.label
	case *alphaApp:
		return a.label
	case *betaApp:
		return a.label
	default:
		return app.base().Name()
	}
}

func assertEvents(t *testing.T, got []string, want ...string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}
