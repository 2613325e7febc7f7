// Package demoapp holds small Apps used by the appsched command and the
// examples. Each one exercises a different part of the lifecycle.
package demoapp

import (
	"fmt"

	"github.com/Swind/go-app-scheduler/core"
	"github.com/Swind/go-app-scheduler/internal/config"
)

// Blinker toggles its light on every running tick. With a positive Lifetime
// it kills itself after that many toggles.
type Blinker struct {
	core.Base
	Lifetime int
	Logger   core.Logger

	lit     bool
	toggles int
}

func (b *Blinker) OnRunning() {
	b.lit = !b.lit
	b.toggles++
	logger(b.Logger).Debug("blink", core.F("app", b.Name()), core.F("lit", b.lit))
	if b.Lifetime > 0 && b.toggles >= b.Lifetime {
		b.Kill()
	}
}

// Lit reports the current light state.
func (b *Blinker) Lit() bool { return b.lit }

// Toggles returns how many running ticks the Blinker has seen.
func (b *Blinker) Toggles() int { return b.toggles }

// Countdown counts down from Lifetime and kills itself at zero.
type Countdown struct {
	core.Base
	Lifetime int
	Logger   core.Logger

	remaining int
}

// NewCountdown returns a Countdown that lives for n running ticks.
func NewCountdown(n int) *Countdown {
	return &Countdown{Lifetime: n}
}

func (c *Countdown) OnSetup() {
	c.remaining = c.Lifetime
}

func (c *Countdown) OnRunning() {
	c.remaining--
	if c.remaining <= 0 {
		c.Kill()
	}
}

func (c *Countdown) OnDestroy() {
	logger(c.Logger).Info("countdown finished", core.F("app", c.Name()), core.F("ticks", c.Lifetime))
}

// Remaining returns the ticks left before the Countdown kills itself.
func (c *Countdown) Remaining() int { return c.remaining }

// Spawner installs its children from OnSetup, so they join the scheduler on
// the following tick. With a positive Lifetime it kills itself after that
// many running ticks; children keep running.
type Spawner struct {
	core.Base
	Scheduler *core.Scheduler
	Children  []core.App
	Lifetime  int
	Logger    core.Logger

	spawned int
	ticks   int
}

func (s *Spawner) OnSetup() {
	for _, child := range s.Children {
		if s.Scheduler.Install(child) != nil {
			s.spawned++
		}
	}
	logger(s.Logger).Info("spawned children", core.F("app", s.Name()), core.F("count", s.spawned))
}

func (s *Spawner) OnRunning() {
	s.ticks++
	if s.Lifetime > 0 && s.ticks >= s.Lifetime {
		s.Kill()
	}
}

// Spawned returns the number of children accepted by the scheduler.
func (s *Spawner) Spawned() int { return s.spawned }

// FromSpec builds the App described by spec. Spawner children are built
// recursively and installed on s when the spawner is set up.
func FromSpec(spec config.AppSpec, s *core.Scheduler, log core.Logger) (core.App, error) {
	var app core.App
	switch spec.Kind {
	case config.KindBlinker:
		app = &Blinker{Lifetime: spec.Lifetime, Logger: log}
	case config.KindCountdown:
		app = &Countdown{Lifetime: spec.Lifetime, Logger: log}
	case config.KindSpawner:
		sp := &Spawner{Scheduler: s, Lifetime: spec.Lifetime, Logger: log}
		for _, childSpec := range spec.Children {
			child, err := FromSpec(childSpec, s, log)
			if err != nil {
				return nil, err
			}
			sp.Children = append(sp.Children, child)
		}
		app = sp
	default:
		return nil, fmt.Errorf("unknown app kind %q", spec.Kind)
	}

	if spec.Name != "" {
		setName(app, spec.Name)
	}
	return app, nil
}

// InstallAll builds every spec and installs it on s.
func InstallAll(specs []config.AppSpec, s *core.Scheduler, log core.Logger) ([]core.App, error) {
	apps := make([]core.App, 0, len(specs))
	for _, spec := range specs {
		app, err := FromSpec(spec, s, log)
		if err != nil {
			return nil, err
		}
		s.Install(app)
		apps = append(apps, app)
	}
	return apps, nil
}

func setName(app core.App, name string) {
	if named, ok := app.(interface{ SetName(string) }); ok {
		named.SetName(name)
	}
}

func logger(l core.Logger) core.Logger {
	if l == nil {
		return core.NewNoOpLogger()
	}
	return l
}
