package scanner

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LanXuage/astrascan/channel"
	"github.com/LanXuage/astrascan/common"
	"github.com/LanXuage/astrascan/common/constant"
	"github.com/LanXuage/astrascan/config"
	"github.com/LanXuage/astrascan/harvest"
	"github.com/LanXuage/astrascan/metrics"
	"github.com/LanXuage/astrascan/probe"
	"github.com/LanXuage/astrascan/progress"
	"github.com/LanXuage/astrascan/store"
	"github.com/LanXuage/astrascan/target"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var logger = common.GetLogger()

var ErrAlreadyRunning = errors.New("scanner already started")

type State uint32

const (
	Idle State = iota
	Loading
	Running
	Draining
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// ResultStore is where a run persists what it finds.
type ResultStore interface {
	AppendServer(server target.Server) error
	AppendChannels(entries []channel.Entry) (int, error)
	WriteSummary(summary store.Summary) error
}

// Locator annotates a discovered address with its country code.
type Locator interface {
	Country(addr string) string
}

type Option func(*Scanner)

func WithSource(source target.Source) Option {
	return func(s *Scanner) { s.source = source }
}

func WithClient(client probe.Client) Option {
	return func(s *Scanner) { s.client = client }
}

func WithStore(rs ResultStore) Option {
	return func(s *Scanner) { s.store = rs }
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(s *Scanner) { s.metrics = recorder }
}

func WithLocator(locator Locator) Option {
	return func(s *Scanner) { s.locator = locator }
}

// WithOnHit registers a callback run once per newly discovered server.
func WithOnHit(fn func(target.Server)) Option {
	return func(s *Scanner) { s.onHit = fn }
}

// Scanner drives one run over the address space. A Scanner is single use.
type Scanner struct {
	cfg     config.ScanConfig
	source  target.Source
	client  probe.Client
	store   ResultStore
	metrics metrics.Recorder
	locator Locator
	onHit   func(target.Server)

	runID      string
	state      atomic.Uint32
	tracker    atomic.Pointer[progress.Tracker]
	discovered cmap.ConcurrentMap[string, target.Server]
}

func New(cfg config.ScanConfig, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:        cfg,
		runID:      uuid.NewString(),
		discovered: cmap.New[target.Server](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.source == nil {
		s.source = target.FileSource{AddressPath: constant.DEFAULT_ADDRESS_FILE, PortPath: constant.DEFAULT_PORT_FILE}
	}
	if s.client == nil {
		s.client = probe.NewHTTPClient(probe.ClientOptions{Timeout: cfg.ConnectionTimeout, PoolSize: cfg.PoolSize})
	}
	if s.store == nil {
		s.store = store.New(store.DefaultPaths("."))
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	return s
}

func (s *Scanner) RunID() string {
	return s.runID
}

func (s *Scanner) State() State {
	return State(s.state.Load())
}

func (s *Scanner) setState(state State) {
	logger.Debug("Scanner state", zap.String("run", s.runID), zap.Stringer("state", state))
	s.state.Store(uint32(state))
}

// Has reports whether key ("address:port") was already discovered.
func (s *Scanner) Has(key string) bool {
	return s.discovered.Has(key)
}

// Progress returns the current counters; zero before the run starts.
func (s *Scanner) Progress() progress.Snapshot {
	if t := s.tracker.Load(); t != nil {
		return t.Snapshot()
	}
	return progress.Snapshot{}
}

// Servers lists discovered servers in discovery order.
func (s *Scanner) Servers() []target.Server {
	ret := make([]target.Server, 0, s.discovered.Count())
	for _, server := range s.discovered.Items() {
		ret = append(ret, server)
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].DiscoveredAt.Equal(ret[j].DiscoveredAt) {
			return ret[i].Key() < ret[j].Key()
		}
		return ret[i].DiscoveredAt.Before(ret[j].DiscoveredAt)
	})
	return ret
}

func (s *Scanner) load() (*target.Space, error) {
	addrs, err := s.source.Addresses()
	if err != nil {
		return nil, err
	}
	ports, err := s.source.Ports()
	if err != nil {
		return nil, err
	}
	return target.NewSpace(addrs, ports)
}

// Start loads the inputs and launches the run in the background. Input
// errors are returned here, before any request is sent. Cancelling ctx
// stops dispatch; probes already sent run to completion.
func (s *Scanner) Start(ctx context.Context) (*Task, error) {
	if !s.state.CompareAndSwap(uint32(Idle), uint32(Loading)) {
		return nil, ErrAlreadyRunning
	}
	if err := s.cfg.Validate(); err != nil {
		s.setState(Finished)
		return nil, err
	}
	space, err := s.load()
	if err != nil {
		s.setState(Finished)
		return nil, err
	}
	tracker := progress.New(space.Len())
	s.tracker.Store(tracker)
	logger.Info(common.MsgScanStarting(space.Addresses(), space.Ports()), zap.String("run", s.runID))
	task := newTask(tracker)
	go func() {
		report, err := s.run(ctx, space, tracker)
		task.finish(report, err)
	}()
	return task, nil
}

// Run is Start followed by Wait.
func (s *Scanner) Run(ctx context.Context) (*Report, error) {
	task, err := s.Start(ctx)
	if err != nil {
		return nil, err
	}
	return task.Wait()
}

func (s *Scanner) run(ctx context.Context, space *target.Space, tracker *progress.Tracker) (*Report, error) {
	verifier, err := channel.NewVerifier(s.client, s.cfg.ChannelWorkers, s.cfg.ChannelTimeout)
	if err != nil {
		s.setState(Finished)
		return nil, err
	}
	harvester, err := harvest.New(s.client, verifier, s.store, tracker, harvest.Options{
		Workers:         s.cfg.Workers,
		PlaylistTimeout: s.cfg.PlaylistTimeout,
		Metrics:         s.metrics,
	})
	if err != nil {
		verifier.Close()
		s.setState(Finished)
		return nil, err
	}
	fp := probe.NewFingerprint(s.client, s, s.cfg.ConnectionTimeout, s.cfg.Signature)
	fp.SetRecorder(s.metrics)
	logger.Info("Fingerprint ready", zap.String("run", s.runID), zap.String("signature", fp.Signature()))
	sem := semaphore.NewWeighted(int64(s.cfg.MaxConcurrency))
	var limiter *rate.Limiter
	if s.cfg.DispatchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.cfg.DispatchDelay), 1)
	}
	// requests outlive a stop request, only dispatch observes ctx
	probeCtx := context.WithoutCancel(ctx)
	wg := &sync.WaitGroup{}
	stopped := false

	s.setState(Running)
dispatch:
	for i, batch := range space.Batches(s.cfg.BatchSize) {
		if i > 0 && s.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
				stopped = true
				break dispatch
			case <-time.After(s.cfg.BatchPause):
			}
		}
		logger.Debug("Dispatching batch", zap.Int("start", batch.Start), zap.Int("end", batch.End))
		for idx := batch.Start; idx < batch.End; idx++ {
			if ctx.Err() != nil {
				stopped = true
				break dispatch
			}
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					stopped = true
					break dispatch
				}
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				stopped = true
				break dispatch
			}
			t := space.At(idx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				s.check(probeCtx, fp, harvester, tracker, t)
			}()
		}
	}
	if stopped {
		logger.Info(common.MsgScanStopping(), zap.String("run", s.runID))
	}

	s.setState(Draining)
	wg.Wait()
	if s.cfg.WaitHarvests {
		harvester.Wait(context.Background())
		harvester.Close()
		verifier.Close()
	} else {
		go func() {
			harvester.Wait(context.Background())
			harvester.Close()
			verifier.Close()
		}()
	}
	tracker.Finish()

	snapshot := tracker.Snapshot()
	summary := store.Summary{
		RunID:         s.runID,
		ScanDate:      snapshot.Started.Format(store.SUMMARY_TIME_LAYOUT),
		Elapsed:       common.FormatDuration(snapshot.Elapsed()),
		TotalTargets:  snapshot.Total,
		TotalChecked:  snapshot.Checked,
		ServersFound:  snapshot.Servers,
		ChannelsFound: snapshot.Channels,
		FoundServers:  s.Servers(),
	}
	if err := s.store.WriteSummary(summary); err != nil {
		logger.Error("Write summary failed", zap.String("run", s.runID), zap.Error(err))
	}
	logger.Info(common.MsgScanCompleted(snapshot.Elapsed()),
		zap.String("run", s.runID),
		zap.Int64("checked", snapshot.Checked),
		zap.Int64("servers", snapshot.Servers),
		zap.Int64("channels", snapshot.Channels))
	s.setState(Finished)
	return &Report{Summary: summary, Progress: snapshot, Stopped: stopped}, nil
}

// check probes one target and, on a first hit, records the server and
// hands it to the harvester.
func (s *Scanner) check(ctx context.Context, fp *probe.Fingerprint, h *harvest.Harvester, tracker *progress.Tracker, t target.Target) {
	defer tracker.AddChecked(1)
	result := fp.Probe(ctx, t)
	if result.Verdict != probe.Hit {
		return
	}
	server := target.Server{
		Addr:         t.Addr,
		Port:         t.Port,
		Service:      result.Service,
		DiscoveredAt: time.Now(),
	}
	if s.locator != nil {
		server.Country = s.locator.Country(t.Addr)
	}
	if !s.discovered.SetIfAbsent(t.Key(), server) {
		return
	}
	tracker.AddServers(1)
	logger.Info("Found server", zap.String("server", t.Key()), zap.String("service", server.Service), zap.String("country", server.Country))
	if err := s.store.AppendServer(server); err != nil {
		logger.Error("Persist server failed", zap.String("server", t.Key()), zap.Error(err))
	}
	if s.onHit != nil {
		s.onHit(server)
	}
	h.Submit(ctx, t)
}
