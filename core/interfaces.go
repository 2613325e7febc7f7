package core

import (
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling hook panics
// =============================================================================

// PanicHandler is called when a lifecycle hook panics during Update.
//
// Installing a PanicHandler opts into recovery. Without one, a panicking hook
// propagates to the caller of Update.
type PanicHandler interface {
	// HandlePanic is called after a hook panic has been recovered.
	//
	// Parameters:
	// - schedulerName: The name of the scheduler that stepped the App
	// - appID: The ID of the App whose hook panicked
	// - appName: The display name of that App
	// - state: The state the App was in when the hook ran
	// - panicInfo: The panic value recovered from the hook
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(schedulerName string, appID AppID, appName string, state State, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler reports recovered hook panics through a Logger.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic and its stack trace at error level.
func (h *DefaultPanicHandler) HandlePanic(schedulerName string, appID AppID, appName string, state State, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Error("app hook panicked",
		F("scheduler", schedulerName),
		F("app_id", appID.String()),
		F("app", appName),
		F("state", state.String()),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called on the goroutine that drives the scheduler and should be
// fast; a slow Metrics implementation delays every App in the tick.
type Metrics interface {
	// RecordTickDuration records how long one Update call took.
	RecordTickDuration(schedulerName string, duration time.Duration)

	// RecordAppCount records the live and pending set sizes after a tick or install.
	RecordAppCount(schedulerName string, live, pending int)

	// RecordAppInstalled records an accepted install.
	//
	// Parameters:
	// - schedulerName: The name of the scheduler
	// - kind: The concrete type name of the App
	RecordAppInstalled(schedulerName string, kind string)

	// RecordAppReaped records an App removed from the live set after reaching StateDead.
	RecordAppReaped(schedulerName string, kind string)

	// RecordInstallRejected records an install that was ignored.
	//
	// Parameters:
	// - schedulerName: The name of the scheduler
	// - reason: Why the install was ignored (e.g., "nil", "already_installed")
	RecordInstallRejected(schedulerName string, reason string)

	// RecordHookPanic records a recovered hook panic.
	RecordHookPanic(schedulerName string, state State, panicInfo any)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTickDuration is a no-op.
func (m *NilMetrics) RecordTickDuration(schedulerName string, duration time.Duration) {}

// RecordAppCount is a no-op.
func (m *NilMetrics) RecordAppCount(schedulerName string, live, pending int) {}

// RecordAppInstalled is a no-op.
func (m *NilMetrics) RecordAppInstalled(schedulerName string, kind string) {}

// RecordAppReaped is a no-op.
func (m *NilMetrics) RecordAppReaped(schedulerName string, kind string) {}

// RecordInstallRejected is a no-op.
func (m *NilMetrics) RecordInstallRejected(schedulerName string, reason string) {}

// RecordHookPanic is a no-op.
func (m *NilMetrics) RecordHookPanic(schedulerName string, state State, panicInfo any) {}

// =============================================================================
// SchedulerConfig: Configuration for Scheduler
// =============================================================================

// SchedulerConfig holds configuration options for Scheduler.
// All fields are optional; zero values fall back to defaults.
type SchedulerConfig struct {
	// Name labels logs, metrics and stats. Defaults to "scheduler".
	Name string

	// Logger receives lifecycle logs. Defaults to a SlogLogger over slog.Default().
	Logger Logger

	// Metrics records scheduler metrics. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler enables hook panic recovery when non-nil.
	// Defaults to nil: hook panics propagate to the caller of Update.
	PanicHandler PanicHandler

	// HistoryCapacity bounds the lifecycle transition history. Defaults to 100.
	HistoryCapacity int
}

// DefaultSchedulerConfig returns a config with default handlers.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Name:            defaultSchedulerName,
		Logger:          NewDefaultLogger(),
		Metrics:         &NilMetrics{},
		HistoryCapacity: defaultHistoryCapacity,
	}
}
