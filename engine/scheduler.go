package engine

import "time"

// Task is a deferred callback owned by a Scheduler.
type Task struct {
	due       time.Time
	fn        func()
	cancelled bool
	done      bool
}

// Cancel prevents the task from running. Cancelling a finished task is a
// no-op.
func (t *Task) Cancel() {
	if t != nil {
		t.cancelled = true
	}
}

// Pending reports whether the task will still run.
func (t *Task) Pending() bool {
	return t != nil && !t.cancelled && !t.done
}

// Scheduler runs deferred tasks on the engine's own goroutine. Tasks fire
// from RunDue, which the engine calls at the top of every tick and command,
// so callbacks never race with the simulation.
type Scheduler struct {
	now   func() time.Time
	tasks []*Task
}

// NewScheduler returns a scheduler reading time from now.
func NewScheduler(now func() time.Time) *Scheduler {
	return &Scheduler{now: now}
}

// After schedules fn to run once d has elapsed.
func (s *Scheduler) After(d time.Duration, fn func()) *Task {
	t := &Task{due: s.now().Add(d), fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// RunDue fires every task whose deadline has passed and returns how many ran.
func (s *Scheduler) RunDue() int {
	if len(s.tasks) == 0 {
		return 0
	}
	now := s.now()
	var due []*Task
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		switch {
		case t.cancelled:
		case !now.Before(t.due):
			due = append(due, t)
		default:
			kept = append(kept, t)
		}
	}
	clear(s.tasks[len(kept):])
	s.tasks = kept

	ran := 0
	for _, t := range due {
		// An earlier task in this batch may have cancelled a later one.
		if t.cancelled {
			continue
		}
		t.done = true
		t.fn()
		ran++
	}
	return ran
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	n := 0
	for _, t := range s.tasks {
		if t.Pending() {
			n++
		}
	}
	return n
}

// CancelAll drops every pending task.
func (s *Scheduler) CancelAll() {
	for _, t := range s.tasks {
		t.cancelled = true
	}
	s.tasks = nil
}
