package core

import "time"

// LifecycleRecord captures one state transition of an App.
type LifecycleRecord struct {
	AppID AppID
	Name  string
	From  State
	To    State
	Tick  uint64
	At    time.Time
}

// SchedulerStats represents runtime observability state for a scheduler.
type SchedulerStats struct {
	Name             string
	Tick             uint64
	Live             int
	Pending          int
	Installed        int64
	Reaped           int64
	Rejected         int64
	Panics           int64
	Updating         bool
	LastTickAt       time.Time
	LastTickDuration time.Duration
}
