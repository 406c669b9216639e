package trace

import (
	"sync"
	"time"

	"github.com/desertthunder/ezpbars/internal/shared"
)

// FailureWindow is how long a connection failure counts toward the retry delay.
const FailureWindow = time.Minute

// PollThreshold is the failure count from which the caller's poll fallback is consulted.
const PollThreshold = 5

// RetryDelay picks the reconnect delay for the current failure count, and whether the poll fallback should be asked
// first.
func RetryDelay(failures int) (time.Duration, bool) {
	switch {
	case failures >= PollThreshold:
		return 15 * time.Second, true
	case failures == 4:
		return 4 * time.Second, false
	case failures == 3:
		return time.Second, false
	default:
		return 0, false
	}
}

// failureWindow counts failures in the trailing [FailureWindow]. Each increment schedules its own decrement; pending
// decrements are tracked so stop can cancel them.
type failureWindow struct {
	mu     sync.Mutex
	clock  shared.Clock
	window time.Duration
	count  int
	nextID int
	timers map[int]shared.Timer
}

func newFailureWindow(clock shared.Clock, window time.Duration) *failureWindow {
	return &failureWindow{
		clock:  clock,
		window: window,
		timers: make(map[int]shared.Timer),
	}
}

// add records a failure and returns the new count.
func (w *failureWindow) add() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.count++
	id := w.nextID
	w.nextID++
	w.timers[id] = w.clock.AfterFunc(w.window, func() { w.expire(id) })
	return w.count
}

func (w *failureWindow) expire(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.timers[id]; !ok {
		return
	}
	delete(w.timers, id)
	w.count--
}

func (w *failureWindow) current() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// pending returns the number of decrements still scheduled.
func (w *failureWindow) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

// stop cancels every pending decrement.
func (w *failureWindow) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
}
