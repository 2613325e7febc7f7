package core

// State is the lifecycle position of an installed App.
type State int

const (
	// StateSetup: installed, OnSetup has not run yet
	StateSetup State = iota

	// StateRunning: OnRunning runs once per tick
	StateRunning

	// StateDying: Kill was called, OnDestroy runs on the next step
	StateDying

	// StateDead: terminal, the scheduler reaps the App in the same tick
	StateDead
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateRunning:
		return "running"
	case StateDying:
		return "dying"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}
