package scanner

import (
	"time"

	"github.com/LanXuage/astrascan/progress"
	"github.com/LanXuage/astrascan/store"
)

// Report is the outcome of a finished run.
type Report struct {
	Summary  store.Summary
	Progress progress.Snapshot
	Stopped  bool // dispatch ended early on cancellation
}

// Task is the handle of a started run.
type Task struct {
	done    chan struct{}
	tracker *progress.Tracker
	report  *Report
	err     error
}

func newTask(tracker *progress.Tracker) *Task {
	return &Task{
		done:    make(chan struct{}),
		tracker: tracker,
	}
}

func (t *Task) finish(report *Report, err error) {
	t.report = report
	t.err = err
	close(t.done)
}

// Done is closed once the run is Finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) Progress() progress.Snapshot {
	return t.tracker.Snapshot()
}

func (t *Task) Wait() (*Report, error) {
	<-t.done
	return t.report, t.err
}

// Watch calls fn with a fresh snapshot every interval until the run ends,
// then once more with the final counters.
func (t *Task) Watch(interval time.Duration, fn func(progress.Snapshot)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			fn(t.tracker.Snapshot())
			return
		case <-ticker.C:
			fn(t.tracker.Snapshot())
		}
	}
}
