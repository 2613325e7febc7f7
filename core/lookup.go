package core

// GetApp returns the first App of type T that is not dead, searching the live
// set first and then the pending buffer. It finds Apps installed earlier in
// the same tick, before they have joined the live set.
//
//	if counter, ok := core.GetApp[*Counter](s); ok {
//		counter.Reset()
//	}
//
// T may also be an interface type, in which case the first App implementing
// it matches.
func GetApp[T App](s *Scheduler) (T, bool) {
	s.assertOwner()

	for _, apps := range [...][]App{s.live, s.pending} {
		for _, app := range apps {
			if typed, ok := app.(T); ok && !app.base().IsDead() {
				return typed, true
			}
		}
	}

	var zero T
	return zero, false
}

// GetAppByName returns the first App with the given display name that is not
// dead, with the same search order as GetApp.
func (s *Scheduler) GetAppByName(name string) (App, bool) {
	s.assertOwner()

	for _, apps := range [...][]App{s.live, s.pending} {
		for _, app := range apps {
			if app.base().name == name && !app.base().IsDead() {
				return app, true
			}
		}
	}
	return nil, false
}

// Apps returns a snapshot of the Apps that are not dead, live ones first and
// then pending ones, each group in install order.
func (s *Scheduler) Apps() []App {
	s.assertOwner()

	out := make([]App, 0, s.Count())
	for _, apps := range [...][]App{s.live, s.pending} {
		for _, app := range apps {
			if !app.base().IsDead() {
				out = append(out, app)
			}
		}
	}
	return out
}
