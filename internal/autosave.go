package internal

import (
	"sync"
	"time"
)

// SaveState is the autosave state machine state.
type SaveState int

const (
	SaveIdle SaveState = iota
	SavePending
	SaveDone
)

// DebounceDelay is the quiet period after the last transcript mutation
// before the conversation is written to the history store.
const DebounceDelay = 500 * time.Millisecond

// Autosaver coalesces bursts of transcript mutations into a single
// durable write. It is armed one-shot by a user-initiated send and
// disarms itself after the write, so partial updates between sends are
// never persisted. The timer callback runs on its own goroutine, hence
// the mutex even though the product model is single-in-flight.
type Autosaver struct {
	mu       sync.Mutex
	state    SaveState
	armed    bool
	inFlight bool
	timer    *time.Timer
	delay    time.Duration
	save     func()
}

// NewAutosaver creates an autosaver invoking save after the debounce
// window closes.
func NewAutosaver(save func()) *Autosaver {
	return &Autosaver{delay: DebounceDelay, save: save}
}

// Arm enables the next debounced save. Called on every user send.
func (a *Autosaver) Arm() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.armed = true
}

// Notify records a transcript mutation. While a response is
// outstanding any scheduled write is cancelled and nothing new is
// scheduled: the transcript holds an unresolved placeholder that must
// never reach durable storage. Otherwise the debounce timer starts, or
// restarts so that only the last mutation within the window triggers
// the write.
func (a *Autosaver) Notify(responsePending bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.inFlight = responsePending
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if !a.armed || responsePending {
		return
	}
	a.state = SavePending
	a.timer = time.AfterFunc(a.delay, a.fire)
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	// A send may have started after this timer was scheduled; the stop
	// in Notify can lose the race with an already-expired timer, so the
	// in-flight check is repeated here.
	if !a.armed || a.inFlight {
		a.mu.Unlock()
		return
	}
	a.armed = false
	a.timer = nil
	a.state = SaveDone
	save := a.save
	a.mu.Unlock()

	save()
}

// Flush persists immediately, bypassing the debounce. Used by session
// reset and history load, which must capture the previous transcript
// before in-memory state is cleared.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.armed = false
	a.state = SaveDone
	save := a.save
	a.mu.Unlock()

	save()
}

// Stop drops any pending save without persisting. Used on teardown; at
// most the last debounce window of mutations is lost.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.armed = false
	a.state = SaveIdle
}

// State returns the current state machine state.
func (a *Autosaver) State() SaveState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SetDelay overrides the debounce window. Intended for tests.
func (a *Autosaver) SetDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delay = d
}
