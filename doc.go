// Package appscheduler provides a cooperative, tick-driven scheduler for
// long-lived application units ("apps") in embedded-style main loops.
//
// Every App moves through a fixed lifecycle, one step per tick:
//
//	Setup --OnSetup--> Running --OnRunning--> Running
//	Kill() --> Dying --OnDestroy--> Dead (reaped)
//
// # Quick Start
//
// Implement an App by embedding Base and overriding the hooks you need:
//
//	type Blinker struct {
//		appscheduler.Base
//		on bool
//	}
//
//	func (b *Blinker) OnRunning() { b.on = !b.on }
//
// Install it and call Update once per tick from your main loop:
//
//	s := appscheduler.NewScheduler()
//	appscheduler.InstallNew[Blinker](s)
//	for range time.Tick(16 * time.Millisecond) {
//		s.Update()
//	}
//
// Or let a TickLoop own the loop goroutine:
//
//	loop := appscheduler.NewTickLoop("main", 16*time.Millisecond, s)
//	loop.Start(ctx)
//	defer loop.StopGraceful(time.Second)
//
// # Key Concepts
//
// Scheduler: Owns every installed App. New installs wait in a pending buffer
// and join the live set at the start of the next Update, so hooks may install
// Apps while the scheduler is iterating.
//
// Kill: Cooperative and delayed. It only marks the App; OnDestroy runs and the
// App is removed on its next step.
//
// GetApp: Typed lookup of the first App of a concrete type that is not dead,
// including Apps installed earlier in the same tick.
//
// # Thread Safety
//
// A Scheduler belongs to one goroutine. Hooks run synchronously on it and a
// slow hook delays the whole tick. Use TickLoop.Post to reach a running
// scheduler from other goroutines. Build with -tags debug to assert this at
// runtime.
//
// # Failure Handling
//
// A panicking hook propagates to the caller of Update unless a
// core.PanicHandler is configured, in which case the App is killed instead.
package appscheduler
