package appscheduler

import "github.com/Swind/go-app-scheduler/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the appscheduler package for most use cases.

// App is the lifecycle contract implemented by embedding Base
type App = core.App

// Base provides the lifecycle state and no-op hooks for an App
type Base = core.Base

// State is the lifecycle position of an App
type State = core.State

// AppID identifies an installed App in logs, metrics and history
type AppID = core.AppID

// Scheduler owns Apps and steps them once per Update
type Scheduler = core.Scheduler

// SchedulerConfig holds optional Scheduler settings
type SchedulerConfig = core.SchedulerConfig

// SchedulerStats is a snapshot of scheduler state
type SchedulerStats = core.SchedulerStats

// LifecycleRecord is one recorded state transition
type LifecycleRecord = core.LifecycleRecord

// Logger, Metrics and PanicHandler are the pluggable scheduler hooks
type (
	Logger       = core.Logger
	Field        = core.Field
	Metrics      = core.Metrics
	PanicHandler = core.PanicHandler
)

// State constants
const (
	StateSetup   State = core.StateSetup
	StateRunning State = core.StateRunning
	StateDying   State = core.StateDying
	StateDead    State = core.StateDead
)

// Convenience constructors
var (
	NewScheduler           = core.NewScheduler
	NewSchedulerWithConfig = core.NewSchedulerWithConfig
	DefaultSchedulerConfig = core.DefaultSchedulerConfig
	F                      = core.F
)

// GetApp returns the first non-dead App of type T, searching live Apps before
// pending ones.
func GetApp[T App](s *Scheduler) (T, bool) {
	return core.GetApp[T](s)
}

// InstallNew allocates a zero T, installs it on s and returns it.
func InstallNew[T any, PT interface {
	*T
	App
}](s *Scheduler) PT {
	return core.InstallNew[T, PT](s)
}
