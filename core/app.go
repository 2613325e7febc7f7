package core

import (
	"reflect"

	"github.com/google/uuid"
)

// AppID identifies an installed App in logs, metrics and history.
// Lookups never use it: an App is found by its concrete type.
type AppID uuid.UUID

// GenerateAppID returns a new random AppID.
func GenerateAppID() AppID {
	return AppID(uuid.New())
}

func (id AppID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the ID was never assigned.
func (id AppID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// App is the behavior contract for a scheduled application.
//
// Implement an App by embedding [Base] (by value) in a struct and overriding
// any of the lifecycle hooks. The unexported base method means the only way to
// satisfy App is through that embedding, so the lifecycle state can only be
// advanced by a [Scheduler].
type App interface {
	base() *Base

	// OnSetup runs once, on the first tick after installation.
	OnSetup()

	// OnRunning runs on every tick while the App is running.
	OnRunning()

	// OnDestroy runs once, on the first tick after Kill.
	OnDestroy()

	// Kill requests destruction. It takes effect on the App's next step.
	Kill()

	// IsDead reports whether OnDestroy has run.
	IsDead() bool
}

// Base carries the lifecycle state of an App and provides no-op hooks.
type Base struct {
	state State
	setUp bool
	id    AppID
	kind  string
	name  string
	owner *Scheduler
}

func (b *Base) base() *Base {
	return b
}

func (b *Base) OnSetup()   {}
func (b *Base) OnRunning() {}
func (b *Base) OnDestroy() {}

// Kill moves the App to StateDying. Calling it again, or on a dead App, has no
// further effect.
func (b *Base) Kill() {
	if b.state == StateDead {
		return
	}
	b.state = StateDying
}

// IsDead reports whether the App reached its terminal state.
func (b *Base) IsDead() bool {
	return b.state == StateDead
}

// State returns the current lifecycle state.
func (b *Base) State() State {
	return b.state
}

// WasSetUp reports whether OnSetup completed. An App killed before its first
// tick goes straight to OnDestroy without ever being set up.
func (b *Base) WasSetUp() bool {
	return b.setUp
}

// ID returns the AppID assigned at installation (zero before that).
func (b *Base) ID() AppID {
	return b.id
}

// Name returns the display name. Defaults to the concrete type name once the
// App is installed.
func (b *Base) Name() string {
	return b.name
}

// SetName overrides the display name.
func (b *Base) SetName(name string) {
	b.name = name
}

// step advances app by exactly one lifecycle transition and returns the state
// it was in before the step.
//
// A Kill issued from inside OnSetup or OnRunning is preserved and observed on
// the next step.
func step(app App) State {
	b := app.base()
	from := b.state

	switch from {
	case StateSetup:
		app.OnSetup()
		b.setUp = true
		if b.state == StateSetup {
			b.state = StateRunning
		}
	case StateRunning:
		app.OnRunning()
	case StateDying:
		app.OnDestroy()
		b.state = StateDead
	}

	return from
}

func appKind(app App) string {
	t := reflect.TypeOf(app)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "App"
	}
	return t.Name()
}

func isNilApp(app App) bool {
	if app == nil {
		return true
	}
	v := reflect.ValueOf(app)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return true
	}
	// An App embedding a nil *Base has no lifecycle state to drive.
	return app.base() == nil
}
