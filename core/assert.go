//go:build !debug

package core

// assertOwner panics if called off the scheduler's goroutine (debug only).
func (s *Scheduler) assertOwner() {}

// bindOwner ties the scheduler to the calling goroutine (debug only).
func (s *Scheduler) bindOwner() {}
