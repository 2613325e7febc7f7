package appscheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Swind/go-app-scheduler/core"
)

// DefaultTickInterval is used when a TickLoop is created with a non-positive interval.
const DefaultTickInterval = 10 * time.Millisecond

// ErrTickLoopClosed is returned when waiting on a loop that has been stopped.
var ErrTickLoopClosed = errors.New("tick loop is closed")

// TickLoop drives a Scheduler from one dedicated goroutine, calling Update
// once per interval.
//
// The Scheduler is not safe for concurrent use, so once the loop is started
// other goroutines reach it through Post. Before Start the Scheduler may be
// used directly.
//
// A hook panic is not recovered by the loop. Configure a core.PanicHandler on
// the Scheduler to keep the loop alive through faulty Apps.
type TickLoop struct {
	id        string
	interval  time.Duration
	scheduler *core.Scheduler
	logger    core.Logger

	postMu sync.Mutex
	posts  []func(*core.Scheduler)
	wake   chan struct{}

	tickMu   sync.Mutex
	tickDone chan struct{}

	wg        sync.WaitGroup
	stopped   chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	closed    bool
	runningMu sync.RWMutex
}

// NewTickLoop creates a TickLoop. A nil scheduler gets a default one.
func NewTickLoop(id string, interval time.Duration, scheduler *core.Scheduler) *TickLoop {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if scheduler == nil {
		scheduler = core.NewScheduler()
	}
	return &TickLoop{
		id:        id,
		interval:  interval,
		scheduler: scheduler,
		logger:    core.NewDefaultLogger(),
		wake:      make(chan struct{}, 1),
		tickDone:  make(chan struct{}),
	}
}

// SetLogger replaces the loop logger. Call it before Start.
func (tl *TickLoop) SetLogger(logger core.Logger) {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	tl.logger = logger
}

// Start launches the loop goroutine. Repeated calls are no-ops.
func (tl *TickLoop) Start(ctx context.Context) {
	tl.runningMu.Lock()
	defer tl.runningMu.Unlock()

	if tl.running || tl.closed {
		return
	}

	tl.ctx, tl.cancel = context.WithCancel(ctx)
	tl.stopped = make(chan struct{})
	tl.running = true

	tl.wg.Add(1)
	go tl.loop(tl.ctx, tl.stopped)

	tl.logger.Info("tick loop started", core.F("loop", tl.id), core.F("interval", tl.interval))
}

// Stop cancels the loop and waits for the current tick to finish.
// Apps still installed are not destroyed; see StopGraceful.
func (tl *TickLoop) Stop() {
	tl.runningMu.Lock()
	tl.closed = true
	cancel := tl.cancel
	tl.runningMu.Unlock()

	if cancel != nil {
		cancel()
	}
	tl.Join()
}

// StopGraceful kills every App, keeps ticking until all of them have been
// destroyed and reaped, then stops the loop.
// Returns an error if timeout is exceeded first; the loop is stopped either way.
func (tl *TickLoop) StopGraceful(timeout time.Duration) error {
	if !tl.IsRunning() {
		tl.Stop()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	tl.Post(func(s *core.Scheduler) {
		s.KillAll()
	})

	var err error
	for {
		stats := tl.scheduler.Stats()
		if stats.Live+stats.Pending == 0 {
			break
		}
		if err = tl.WaitTick(ctx); err != nil {
			break
		}
	}

	tl.Stop()
	return err
}

// ID returns the ID of the loop
func (tl *TickLoop) ID() string {
	return tl.id
}

// Interval returns the tick interval
func (tl *TickLoop) Interval() time.Duration {
	return tl.interval
}

// IsRunning returns whether the loop goroutine is running
func (tl *TickLoop) IsRunning() bool {
	tl.runningMu.RLock()
	defer tl.runningMu.RUnlock()
	return tl.running
}

// Scheduler returns the driven Scheduler. Only touch it from Post callbacks,
// from hooks, or before Start.
func (tl *TickLoop) Scheduler() *core.Scheduler {
	return tl.scheduler
}

// Stats returns the scheduler's latest published snapshot.
func (tl *TickLoop) Stats() core.SchedulerStats {
	return tl.scheduler.Stats()
}

// Post queues fn to run on the loop goroutine, ahead of the next tick.
// It returns false once the loop has been stopped, either by Stop or by
// cancellation of the context given to Start.
func (tl *TickLoop) Post(fn func(*core.Scheduler)) bool {
	if fn == nil {
		return false
	}

	tl.runningMu.RLock()
	closed := tl.closed
	tl.runningMu.RUnlock()
	if closed {
		return false
	}

	tl.postMu.Lock()
	tl.posts = append(tl.posts, fn)
	tl.postMu.Unlock()

	select {
	case tl.wake <- struct{}{}:
	default:
	}
	return true
}

// Install posts an install of app to the loop goroutine.
func (tl *TickLoop) Install(app core.App) bool {
	return tl.Post(func(s *core.Scheduler) {
		s.Install(app)
	})
}

// WaitTick blocks until the next tick completes.
// It returns ErrTickLoopClosed if the loop is not running or stops first.
func (tl *TickLoop) WaitTick(ctx context.Context) error {
	tl.runningMu.RLock()
	running, stopped := tl.running, tl.stopped
	tl.runningMu.RUnlock()
	if !running {
		return ErrTickLoopClosed
	}

	tl.tickMu.Lock()
	done := tl.tickDone
	tl.tickMu.Unlock()

	select {
	case <-done:
		return nil
	case <-stopped:
		return ErrTickLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join waits for the loop goroutine to finish
func (tl *TickLoop) Join() {
	tl.wg.Wait()
}

// loop is the dedicated goroutine owning the scheduler
func (tl *TickLoop) loop(ctx context.Context, stopped chan struct{}) {
	defer tl.wg.Done()
	defer close(stopped)
	defer tl.exited()

	ticker := time.NewTicker(tl.interval)
	defer ticker.Stop()

	tl.runPosts()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tl.wake:
			tl.runPosts()
		case <-ticker.C:
			tl.runPosts()
			tl.scheduler.Update()
			tl.broadcastTick()
		}
	}
}

// exited marks the loop closed; a loop is not restarted once its goroutine ends.
func (tl *TickLoop) exited() {
	tl.runningMu.Lock()
	tl.running = false
	tl.closed = true
	tl.runningMu.Unlock()

	tl.logger.Info("tick loop stopped", core.F("loop", tl.id), core.F("tick", tl.scheduler.Stats().Tick))
}

func (tl *TickLoop) runPosts() {
	tl.postMu.Lock()
	posts := tl.posts
	tl.posts = nil
	tl.postMu.Unlock()

	for _, fn := range posts {
		fn(tl.scheduler)
	}
}

func (tl *TickLoop) broadcastTick() {
	tl.tickMu.Lock()
	close(tl.tickDone)
	tl.tickDone = make(chan struct{})
	tl.tickMu.Unlock()
}

// =============================================================================
// Global Tick Loop Helper (Singleton)
// =============================================================================

var (
	globalTickLoop *TickLoop
	globalMu       sync.Mutex
)

// InitGlobalTickLoop creates and starts the global tick loop.
// Later calls are no-ops until ShutdownGlobalTickLoop.
func InitGlobalTickLoop(interval time.Duration) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalTickLoop != nil {
		return
	}

	globalTickLoop = NewTickLoop("global-loop", interval, core.NewSchedulerWithConfig(&core.SchedulerConfig{
		Name: "global",
	}))
	globalTickLoop.Start(context.Background())
}

// GetGlobalTickLoop returns the global tick loop.
// It panics if InitGlobalTickLoop has not been called.
func GetGlobalTickLoop() *TickLoop {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalTickLoop == nil {
		panic("GlobalTickLoop not initialized. Call InitGlobalTickLoop() first.")
	}
	return globalTickLoop
}

// ShutdownGlobalTickLoop stops the global tick loop.
func ShutdownGlobalTickLoop() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalTickLoop != nil {
		globalTickLoop.Stop()
		globalTickLoop = nil
	}
}
