package probe

import (
	"context"
	"strings"
	"time"

	"github.com/LanXuage/astrascan/common/constant"
	"github.com/LanXuage/astrascan/metrics"
	"github.com/LanXuage/astrascan/target"
	"go.uber.org/zap"
)

type Verdict uint8

const (
	Miss Verdict = iota
	Hit
)

func (v Verdict) String() string {
	if v == Hit {
		return "hit"
	}
	return "miss"
}

type Result struct {
	Verdict Verdict
	Service string // Server header value on a hit
}

// Registry tells whether a target key ("address:port") is already known.
type Registry interface {
	Has(key string) bool
}

// Fingerprint classifies a target by a case-sensitive substring of its
// Server header.
type Fingerprint struct {
	client    Client
	seen      Registry
	timeout   time.Duration
	signature string
	recorder  metrics.Recorder
}

func NewFingerprint(client Client, seen Registry, timeout time.Duration, signature string) *Fingerprint {
	if signature == "" {
		signature = constant.DEFAULT_SIGNATURE
	}
	return &Fingerprint{
		client:    client,
		seen:      seen,
		timeout:   timeout,
		signature: signature,
		recorder:  metrics.Nop{},
	}
}

// SetRecorder reports every request actually sent to r.
func (f *Fingerprint) SetRecorder(r metrics.Recorder) {
	if r == nil {
		r = metrics.Nop{}
	}
	f.recorder = r
}

// Probe never fails: transport errors, timeouts and foreign servers are all
// a Miss. Known targets are a Miss without touching the network.
func (f *Fingerprint) Probe(ctx context.Context, t target.Target) Result {
	if f.seen != nil && f.seen.Has(t.Key()) {
		return Result{Verdict: Miss}
	}
	f.recorder.ProbeStarted()
	began := time.Now()
	result := f.classify(ctx, t)
	f.recorder.ProbeFinished(result.Verdict == Hit, time.Since(began))
	return result
}

func (f *Fingerprint) classify(ctx context.Context, t target.Target) Result {
	resp, err := f.client.Head(ctx, t.URL(), f.timeout)
	if err != nil {
		logger.Debug("Probe failed", zap.Stringer("target", t), zap.Error(err))
		return Result{Verdict: Miss}
	}
	if resp == nil {
		return Result{Verdict: Miss}
	}
	server := resp.Header.Get(constant.SERVER_HEADER)
	if server == "" || !strings.Contains(server, f.signature) {
		return Result{Verdict: Miss}
	}
	return Result{Verdict: Hit, Service: server}
}

func (f *Fingerprint) Signature() string {
	return f.signature
}
