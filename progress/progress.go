package progress

import (
	"sync"
	"time"

	"github.com/LanXuage/astrascan/common"
)

// Tracker holds the counters of one run. Every update is a single locked
// read-modify-write, and Snapshot reads all counters under the same lock.
type Tracker struct {
	mu       sync.RWMutex
	total    int64
	checked  int64
	servers  int64
	channels int64
	started  time.Time
	finished time.Time
}

type Snapshot struct {
	Total    int64     `json:"total_targets"`
	Checked  int64     `json:"total_checked"`
	Servers  int64     `json:"servers_found"`
	Channels int64     `json:"channels_found"`
	Started  time.Time `json:"-"`
	Finished time.Time `json:"-"`
	Now      time.Time `json:"-"`
}

func New(total int) *Tracker {
	return &Tracker{
		total:   int64(total),
		started: time.Now(),
	}
}

func (t *Tracker) AddChecked(n int) {
	t.mu.Lock()
	t.checked += int64(n)
	t.mu.Unlock()
}

func (t *Tracker) AddServers(n int) {
	t.mu.Lock()
	t.servers += int64(n)
	t.mu.Unlock()
}

func (t *Tracker) AddChannels(n int) {
	t.mu.Lock()
	t.channels += int64(n)
	t.mu.Unlock()
}

// Finish stamps the end of the run; later snapshots stop their clock there.
func (t *Tracker) Finish() {
	t.mu.Lock()
	if t.finished.IsZero() {
		t.finished = time.Now()
	}
	t.mu.Unlock()
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	now := time.Now()
	if !t.finished.IsZero() {
		now = t.finished
	}
	return Snapshot{
		Total:    t.total,
		Checked:  t.checked,
		Servers:  t.servers,
		Channels: t.channels,
		Started:  t.started,
		Finished: t.finished,
		Now:      now,
	}
}

func (s Snapshot) Elapsed() time.Duration {
	return s.Now.Sub(s.Started)
}

func (s Snapshot) Done() bool {
	return !s.Finished.IsZero()
}

func (s Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Checked) / float64(s.Total) * 100
}

// Rate is checked targets per second.
func (s Snapshot) Rate() float64 {
	elapsed := s.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Checked) / elapsed
}

// ETA formats the expected remaining time, "N/A" until there is a rate.
func (s Snapshot) ETA() string {
	rate := s.Rate()
	if s.Checked == 0 || rate <= 0 {
		return "N/A"
	}
	remaining := s.Total - s.Checked
	if remaining < 0 {
		remaining = 0
	}
	return common.FormatDuration(time.Duration(float64(remaining) / rate * float64(time.Second)))
}
