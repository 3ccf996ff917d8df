// Package scheduler implements the Deferred Commit Scheduler: the small
// piece of state that lets many back-to-back host sector writes coalesce
// into one flash commit, instead of blocking USB enumeration on a slow
// erase/program cycle after every sector.
package scheduler

import "time"

// Clock returns the current time; tests substitute a fake one so they don't
// depend on real elapsed wall time.
type Clock func() time.Time

// Scheduler tracks whether a commit is owed and whether enough time has
// passed since the last write to perform it.
type Scheduler struct {
	delay     time.Duration
	pending   bool
	lastWrite time.Time
	now       Clock
}

// New creates a Scheduler that waits delay after the most recent write
// before considering a commit due. now is the clock to use; nil defaults to
// time.Now.
func New(delay time.Duration, now Clock) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{delay: delay, now: now}
}

// NotifyWrite records that a write was just accepted into the Image
// Buffer. It marks a commit as pending and resets the deferral window, so
// a burst of sectors arriving faster than delay apart produces one
// commit, not one per sector.
func (s *Scheduler) NotifyWrite() {
	s.pending = true
	s.lastWrite = s.now()
}

// Due reports whether a commit is pending and delay has elapsed since the
// last write.
func (s *Scheduler) Due() bool {
	return s.pending && s.now().Sub(s.lastWrite) >= s.delay
}

// Pending reports whether a commit is owed, regardless of timing.
func (s *Scheduler) Pending() bool {
	return s.pending
}

// Clear marks the pending commit as flushed. Callers should only call this
// after a successful commit; leaving it pending on failure lets the next
// tick retry.
func (s *Scheduler) Clear() {
	s.pending = false
}
