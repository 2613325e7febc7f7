//go:build debug

package core

import (
	"fmt"
	"runtime"
)

func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// "goroutine 123 [running]:\n"
	var id uint64
	_, _ = fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}

// assertOwner panics if called off the goroutine that drives Update (debug only).
// Before the first Update any goroutine may install.
func (s *Scheduler) assertOwner() {
	if s.goid == 0 {
		return
	}
	if id := goid(); s.goid != id {
		panic(
			fmt.Sprintf(
				"appscheduler: contract violation: scheduler %s used from goroutine %d, owned by goroutine %d; "+
					"use TickLoop.Post to hop to the loop goroutine",
				s.name,
				id,
				s.goid,
			),
		)
	}
}

// bindOwner ties the scheduler to the calling goroutine on the first Update (debug only).
func (s *Scheduler) bindOwner() {
	if s.goid == 0 {
		s.goid = goid()
		return
	}
	s.assertOwner()
}
