package demoapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/go-app-scheduler/core"
	"github.com/Swind/go-app-scheduler/internal/config"
)

func newScheduler() *core.Scheduler {
	return core.NewSchedulerWithConfig(&core.SchedulerConfig{Name: "demo", Logger: core.NewNoOpLogger()})
}

func TestBlinker_TogglesAndExpires(t *testing.T) {
	s := newScheduler()
	b := &Blinker{Lifetime: 3}
	s.Install(b)

	s.Update() // setup
	assert.False(t, b.Lit())

	s.Update()
	assert.True(t, b.Lit())
	s.Update()
	assert.False(t, b.Lit())
	s.Update()
	assert.Equal(t, 3, b.Toggles())
	assert.Equal(t, core.StateDying, b.State())

	s.Update()
	assert.True(t, b.IsDead())
	assert.Equal(t, 0, s.Count())
}

func TestBlinker_ZeroLifetimeRunsForever(t *testing.T) {
	s := newScheduler()
	b := &Blinker{}
	s.Install(b)
	for i := 0; i < 20; i++ {
		s.Update()
	}
	assert.Equal(t, 19, b.Toggles())
	assert.Equal(t, core.StateRunning, b.State())
}

// TestCountdown_KillsItself verifies the self-kill path
// Given: A countdown of 2
// When: The scheduler ticks
// Then: It runs twice, is destroyed on the next tick and reaped
func TestCountdown_KillsItself(t *testing.T) {
	s := newScheduler()
	c := NewCountdown(2)
	s.Install(c)

	s.Update()
	assert.Equal(t, 2, c.Remaining())
	s.Update()
	assert.Equal(t, 1, c.Remaining())
	s.Update()
	assert.Equal(t, core.StateDying, c.State())
	s.Update()
	assert.True(t, c.IsDead())
	assert.Equal(t, int64(1), s.Stats().Reaped)
}

// TestSpawner_InstallsChildrenMidTick verifies hook installs wait for the next tick
// Given: A spawner with two countdown children
// When: The first tick runs the spawner's setup
// Then: The children are pending until the second tick sets them up
func TestSpawner_InstallsChildrenMidTick(t *testing.T) {
	s := newScheduler()
	first, second := NewCountdown(1), NewCountdown(1)
	sp := &Spawner{Scheduler: s, Children: []core.App{first, second}}
	s.Install(sp)

	s.Update()
	assert.Equal(t, 2, sp.Spawned())
	assert.Equal(t, core.StateSetup, first.State())
	assert.Equal(t, 1, s.Stats().Live)
	assert.Equal(t, 2, s.Stats().Pending)

	s.Update()
	assert.Equal(t, core.StateRunning, first.State())
	assert.Equal(t, core.StateRunning, second.State())
	assert.Equal(t, 3, s.Stats().Live)

	s.Update()
	s.Update()
	assert.True(t, first.IsDead())
	assert.True(t, second.IsDead())
	assert.Equal(t, core.StateRunning, sp.State(), "children dying does not kill the spawner")
}

func TestSpawner_SkipsRejectedChildren(t *testing.T) {
	s := newScheduler()
	owned := NewCountdown(5)
	s.Install(owned)
	sp := &Spawner{Scheduler: s, Children: []core.App{owned, nil}}
	s.Install(sp)

	s.Update()

	assert.Equal(t, 0, sp.Spawned())
	assert.Equal(t, int64(2), s.Stats().Rejected)
}

func TestFromSpec(t *testing.T) {
	s := newScheduler()
	spec := config.AppSpec{
		Kind: config.KindSpawner,
		Name: "nursery",
		Children: []config.AppSpec{
			{Kind: config.KindBlinker, Name: "led", Lifetime: 1},
			{Kind: config.KindCountdown, Lifetime: 1},
		},
	}

	app, err := FromSpec(spec, s, nil)
	require.NoError(t, err)

	sp, ok := app.(*Spawner)
	require.True(t, ok)
	assert.Equal(t, "nursery", sp.Name())
	require.Len(t, sp.Children, 2)
	assert.IsType(t, &Blinker{}, sp.Children[0])
	assert.IsType(t, &Countdown{}, sp.Children[1])

	_, err = FromSpec(config.AppSpec{Kind: "rocket"}, s, nil)
	assert.ErrorContains(t, err, "rocket")
}

// TestInstallAll_RunsToCompletion drives a config-built tree until only
// forever-running apps remain.
func TestInstallAll_RunsToCompletion(t *testing.T) {
	s := newScheduler()
	specs := []config.AppSpec{
		{Kind: config.KindCountdown, Lifetime: 2},
		{Kind: config.KindSpawner, Lifetime: 1, Children: []config.AppSpec{
			{Kind: config.KindCountdown, Lifetime: 1},
		}},
	}

	apps, err := InstallAll(specs, s, core.NewNoOpLogger())
	require.NoError(t, err)
	require.Len(t, apps, 2)

	for i := 0; i < 10 && s.Count() > 0; i++ {
		s.Update()
	}

	assert.Equal(t, 0, s.Count())
	stats := s.Stats()
	assert.Equal(t, int64(3), stats.Installed)
	assert.Equal(t, int64(3), stats.Reaped)

	got, ok := core.GetApp[*Countdown](s)
	assert.False(t, ok)
	assert.Nil(t, got)
}
