// Package admission implements the single-flight gate shared by the device
// engines.
//
// A Gate admits at most one outstanding job. There is no queue: a caller
// that finds the gate Busy gets ErrBusy and retries later, typically by
// polling State until it reports Idle.
//
// Every transition and every access to data guarded by the gate happens
// under one mutex, so a job's completion (Release) and the next
// configuration of the device (IfIdle) can never interleave.
package admission

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

var (
	// ErrBusy is returned when an operation is rejected because a job is
	// outstanding. It is always recoverable by retrying later.
	ErrBusy = errors.New("device busy")

	// ErrResourceUnavailable is returned when the hardware backing a job
	// could not be acquired. The gate is left Idle.
	ErrResourceUnavailable = errors.New("resource unavailable")
)

// State is the admission state of a Gate.
type State int32

const (
	// Idle means a new job may be admitted.
	Idle State = iota
	// Busy means a job is outstanding.
	Busy
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// Gate is a single-flight admission gate. The zero value is Idle and ready
// to use. A Gate must not be copied after first use.
type Gate struct {
	mu    sync.Mutex
	state atomic.Int32
}

// State returns the current state without taking the lock.
func (g *Gate) State() State {
	return State(g.state.Load())
}

// Acquire moves the gate from Idle to Busy.
//
// prepare, if not nil, runs under the lock before the transition. If it
// fails the gate stays Idle and its error is returned unchanged. Acquire
// fails with ErrBusy, without calling prepare, when a job is outstanding.
func (g *Gate) Acquire(prepare func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if State(g.state.Load()) == Busy {
		return ErrBusy
	}
	if prepare != nil {
		if err := prepare(); err != nil {
			return err
		}
	}
	g.state.Store(int32(Busy))
	return nil
}

// Release moves the gate back to Idle. finish, if not nil, runs under the
// lock before the transition, which makes anything it publishes visible to
// the next caller that observes Idle. Releasing an Idle gate only runs
// finish.
func (g *Gate) Release(finish func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if finish != nil {
		finish()
	}
	g.state.Store(int32(Idle))
}

// IfIdle runs fn under the lock if the gate is Idle, and returns its error.
// It returns ErrBusy without calling fn otherwise.
func (g *Gate) IfIdle(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if State(g.state.Load()) == Busy {
		return ErrBusy
	}
	return fn()
}

// Poll returns nil when the gate is Idle and ErrBusy otherwise.
func (g *Gate) Poll() error {
	if g.State() == Busy {
		return ErrBusy
	}
	return nil
}
