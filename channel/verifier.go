package channel

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/LanXuage/astrascan/common/constant"
	"github.com/LanXuage/astrascan/probe"
	mapset "github.com/deckarep/golang-set"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

const DEFAULT_WORKERS = 20

type verifyJob struct {
	ctx     context.Context
	entry   Entry
	results chan<- Entry
	wg      *sync.WaitGroup
}

// Verifier checks channel reachability on one worker pool shared by every
// caller, so the number of concurrent channel probes is bounded globally.
type Verifier struct {
	client  probe.Client
	timeout time.Duration
	Workers *ants.PoolWithFunc
}

func NewVerifier(client probe.Client, workers int, timeout time.Duration) (*Verifier, error) {
	if workers <= 0 {
		workers = DEFAULT_WORKERS
	}
	v := &Verifier{
		client:  client,
		timeout: timeout,
	}
	p, err := ants.NewPoolWithFunc(workers, v.check)
	if err != nil {
		logger.Error("Create func pool failed", zap.Error(err))
		return nil, err
	}
	v.Workers = p
	return v, nil
}

func (v *Verifier) check(data interface{}) {
	job := data.(*verifyJob)
	defer job.wg.Done()
	if v.Reachable(job.ctx, job.entry.URL) {
		job.results <- job.entry
	}
}

// Reachable tries HEAD first. A failed HEAD on a stream URL falls back to a
// ranged GET that must deliver at least one byte; manifests get no fallback.
func (v *Verifier) Reachable(ctx context.Context, rawURL string) bool {
	resp, err := v.client.Head(ctx, rawURL, v.timeout)
	if err == nil && resp != nil && resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return true
	}
	if IsManifest(rawURL) {
		return false
	}
	n, err := v.client.Peek(ctx, rawURL, v.timeout, constant.PEEK_SIZE)
	if err != nil {
		logger.Debug("Channel unreachable", zap.String("url", rawURL), zap.Error(err))
	}
	return n > 0
}

// Verify returns the reachable subset of entries in completion order.
// Entries repeating an earlier URL are checked once.
func (v *Verifier) Verify(ctx context.Context, entries []Entry) []Entry {
	seen := mapset.NewSet()
	unique := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if seen.Add(e.URL) {
			unique = append(unique, e)
		}
	}
	if len(unique) == 0 {
		return []Entry{}
	}
	results := make(chan Entry, len(unique))
	wg := &sync.WaitGroup{}
	for _, e := range unique {
		wg.Add(1)
		job := &verifyJob{ctx: ctx, entry: e, results: results, wg: wg}
		if err := v.Workers.Invoke(job); err != nil {
			logger.Error("Submit channel check failed", zap.String("url", e.URL), zap.Error(err))
			wg.Done()
		}
	}
	wg.Wait()
	close(results)
	ret := make([]Entry, 0, len(results))
	for e := range results {
		ret = append(ret, e)
	}
	return ret
}

func (v *Verifier) Close() {
	v.Workers.Release()
}
