package progress_test

import (
	"sync"
	"testing"
	"time"

	"github.com/LanXuage/astrascan/progress"
	"github.com/stretchr/testify/assert"
)

func TestConcurrentUpdates(t *testing.T) {
	tracker := progress.New(1000)
	wg := sync.WaitGroup{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				tracker.AddChecked(1)
				tracker.Snapshot()
			}
			tracker.AddServers(1)
			tracker.AddChannels(2)
		}()
	}
	wg.Wait()
	snap := tracker.Snapshot()
	assert.Equal(t, int64(1000), snap.Total)
	assert.Equal(t, int64(1000), snap.Checked)
	assert.Equal(t, int64(100), snap.Servers)
	assert.Equal(t, int64(200), snap.Channels)
	assert.InDelta(t, 100.0, snap.Percent(), 0.001)
}

func TestETA(t *testing.T) {
	tracker := progress.New(10)
	assert.Equal(t, "N/A", tracker.Snapshot().ETA())

	snap := progress.Snapshot{Total: 100, Checked: 50, Started: time.Unix(0, 0), Now: time.Unix(10, 0)}
	assert.InDelta(t, 5.0, snap.Rate(), 0.001)
	assert.Equal(t, "10s", snap.ETA())
	assert.Equal(t, 10*time.Second, snap.Elapsed())
}

func TestFinish(t *testing.T) {
	tracker := progress.New(1)
	assert.False(t, tracker.Snapshot().Done())
	tracker.Finish()
	first := tracker.Snapshot()
	time.Sleep(10 * time.Millisecond)
	second := tracker.Snapshot()
	assert.True(t, second.Done())
	assert.Equal(t, first.Elapsed(), second.Elapsed())
	assert.Zero(t, progress.Snapshot{}.Percent())
}
