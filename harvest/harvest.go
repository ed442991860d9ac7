package harvest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/LanXuage/astrascan/channel"
	"github.com/LanXuage/astrascan/common"
	"github.com/LanXuage/astrascan/common/constant"
	"github.com/LanXuage/astrascan/metrics"
	"github.com/LanXuage/astrascan/probe"
	"github.com/LanXuage/astrascan/target"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const DEFAULT_WORKERS = 200

var logger = common.GetLogger()

var ErrInvalidPlaylist = errors.New("playlist marker missing")

// Sink persists verified channels and reports how many were new.
type Sink interface {
	AppendChannels(entries []channel.Entry) (int, error)
}

// Counter is told how many channels each harvest added.
type Counter interface {
	AddChannels(n int)
}

type Options struct {
	Workers         int
	PlaylistTimeout time.Duration
	Metrics         metrics.Recorder
}

// Harvester runs playlist harvests on its own bounded pool. Submit never
// blocks the caller, and every submitted harvest is tracked until done.
type Harvester struct {
	client   probe.Client
	verifier *channel.Verifier
	sink     Sink
	counter  Counter
	timeout  time.Duration
	metrics  metrics.Recorder
	Workers  *ants.PoolWithFunc
	wg       sync.WaitGroup
}

type harvestJob struct {
	ctx    context.Context
	target target.Target
}

func New(client probe.Client, verifier *channel.Verifier, sink Sink, counter Counter, opts Options) (*Harvester, error) {
	if opts.Workers <= 0 {
		opts.Workers = DEFAULT_WORKERS
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	h := &Harvester{
		client:   client,
		verifier: verifier,
		sink:     sink,
		counter:  counter,
		timeout:  opts.PlaylistTimeout,
		metrics:  opts.Metrics,
	}
	p, err := ants.NewPoolWithFunc(opts.Workers, h.run)
	if err != nil {
		logger.Error("Create func pool failed", zap.Error(err))
		return nil, err
	}
	h.Workers = p
	return h, nil
}

func (h *Harvester) run(data interface{}) {
	job := data.(*harvestJob)
	defer h.wg.Done()
	if _, err := h.Harvest(job.ctx, job.target); err != nil {
		logger.Debug("Harvest abandoned", zap.Stringer("target", job.target), zap.Error(err))
	}
}

// Submit schedules a harvest of t. The pool is entered from a separate
// goroutine, so a saturated pool delays the harvest but not the caller.
func (h *Harvester) Submit(ctx context.Context, t target.Target) {
	h.wg.Add(1)
	go func() {
		if err := h.Workers.Invoke(&harvestJob{ctx: ctx, target: t}); err != nil {
			logger.Error("Submit harvest failed", zap.Stringer("target", t), zap.Error(err))
			h.wg.Done()
		}
	}()
}

// Harvest fetches the playlist of t, verifies its channels and persists the
// reachable ones. It returns how many channels were newly written.
func (h *Harvester) Harvest(ctx context.Context, t target.Target) (int, error) {
	body, err := h.client.GetText(ctx, t.URL()+constant.PLAYLIST_PATH, h.timeout)
	if err != nil {
		h.metrics.HarvestAbandoned("fetch")
		return 0, err
	}
	if !channel.IsPlaylist(body) {
		h.metrics.HarvestAbandoned("invalid")
		return 0, ErrInvalidPlaylist
	}
	entries := channel.Parse(body)
	if len(entries) == 0 {
		h.metrics.HarvestAbandoned("empty")
		return 0, nil
	}
	working := h.verifier.Verify(ctx, entries)
	added := 0
	if len(working) > 0 {
		added, err = h.sink.AppendChannels(working)
		if err != nil {
			logger.Error("Persist channels failed", zap.Stringer("target", t), zap.Error(err))
			h.metrics.HarvestAbandoned("persist")
			return 0, err
		}
	}
	if h.counter != nil && added > 0 {
		h.counter.AddChannels(added)
	}
	h.metrics.HarvestFinished(added)
	logger.Info(common.MsgServerVerified(t.Key(), len(entries), len(working)), zap.Int("new", added))
	return added, nil
}

// Wait blocks until every submitted harvest is done or ctx ends.
func (h *Harvester) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Harvester) Close() {
	h.Workers.Release()
}
