package sim

import "errors"

// TaskFunc is a scheduled callback. run is the zero-based run index.
type TaskFunc func(run int) error

// IntervalFunc returns the number of frames to wait after the given run
// count before running again. Values below 1 are treated as 1.
type IntervalFunc func(runs int) int

// Every returns an IntervalFunc with a fixed interval.
func Every(frames int) IntervalFunc {
	return func(int) int { return frames }
}

// Task is a callback run on a frame schedule.
type Task struct {
	fn       TaskFunc
	interval IntervalFunc
	times    int // 0 runs forever
	wait     int
	runs     int
	err      error
}

// NewTask creates a task that first runs after waitTime frames, then every
// interval(runs) frames, executeTimes times in total (0 means no limit).
func NewTask(fn TaskFunc, interval IntervalFunc, executeTimes, waitTime int) *Task {
	if interval == nil {
		interval = Every(1)
	}
	return &Task{
		fn:       fn,
		interval: interval,
		times:    executeTimes,
		wait:     max(waitTime, 0),
	}
}

// Runs returns how many times the task has run.
func (t *Task) Runs() int {
	return t.runs
}

// Err returns the error that stopped the task, if any.
func (t *Task) Err() error {
	return t.err
}

// Done reports whether the task has used up its runs or has failed.
func (t *Task) Done() bool {
	return t.err != nil || (t.times > 0 && t.runs >= t.times)
}

func (t *Task) tick() error {
	if t.Done() {
		return nil
	}
	if t.wait > 0 {
		t.wait--
		return nil
	}
	run := t.runs
	t.runs++
	t.wait = max(t.interval(t.runs), 1) - 1
	t.err = t.fn(run)
	return t.err
}

// taskList runs tasks in insertion order. Tasks added while the list is
// running start on the next frame. A failing task is dropped; the others
// keep running.
type taskList struct {
	tasks   []*Task
	pending []*Task
	running bool
}

func (l *taskList) add(t *Task) {
	if l.running {
		l.pending = append(l.pending, t)
		return
	}
	l.tasks = append(l.tasks, t)
}

func (l *taskList) run() error {
	l.running = true
	defer func() {
		l.running = false
		l.tasks = append(l.tasks, l.pending...)
		l.pending = nil
	}()

	kept := l.tasks[:0]
	var errs []error
	for _, t := range l.tasks {
		if err := t.tick(); err != nil {
			errs = append(errs, err)
		}
		if !t.Done() {
			kept = append(kept, t)
		}
	}
	clear(l.tasks[len(kept):])
	l.tasks = kept
	return errors.Join(errs...)
}

func (l *taskList) len() int {
	return len(l.tasks) + len(l.pending)
}
