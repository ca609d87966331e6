package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tOgg1/anyrun/internal/logging"
	"github.com/tOgg1/anyrun/internal/metrics"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/reconcile"
)

// Poller errors.
var (
	ErrPollerAlreadyRunning = errors.New("poller already running")
	ErrPollerNotRunning     = errors.New("poller not running")

	// ErrStalePoll is returned for a poll whose result was discarded
	// because the poller was stopped while it was in flight.
	ErrStalePoll = errors.New("poll result discarded")
)

// Fetcher reads the two halves of the application picture.
type Fetcher interface {
	GetConfig(ctx context.Context) (*models.ConfigDocument, error)
	ListStatuses(ctx context.Context) ([]models.RuntimeStatus, error)
}

// PollerConfig contains configuration for the poller.
type PollerConfig struct {
	// Interval is the time between scheduled polls.
	// Default: 2s
	Interval time.Duration
}

// DefaultPollerConfig returns sensible defaults.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: 2 * time.Second,
	}
}

// Poller periodically fetches config and statuses, reconciles them, and
// publishes the result to a Store. Ticks never overlap; a failed tick
// keeps the previous snapshot.
type Poller struct {
	config  PollerConfig
	fetcher Fetcher
	store   *Store
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu      sync.RWMutex
	running bool
	// stopped is set by Stop and cleared by Start. A poller that was
	// never started still serves PollAfter; a stopped one does not.
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	timers  map[*time.Timer]struct{}

	// tickMu serializes ticks.
	tickMu sync.Mutex

	// generation changes on Stop; results from an older generation are dropped.
	generation atomic.Uint64

	statusMu    sync.RWMutex
	lastErr     error
	lastSuccess time.Time
}

// NewPoller creates a new Poller.
func NewPoller(config PollerConfig, fetcher Fetcher, store *Store, m *metrics.Metrics) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultPollerConfig().Interval
	}

	return &Poller{
		config:  config,
		fetcher: fetcher,
		store:   store,
		metrics: m,
		logger:  logging.Component("poller"),
		timers:  make(map[*time.Timer]struct{}),
	}
}

// Store returns the store the poller publishes to.
func (p *Poller) Store() *Store {
	return p.store
}

// Start begins the polling loop. The first poll runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPollerAlreadyRunning
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	p.stopped = false

	p.logger.Info().
		Dur("interval", p.config.Interval).
		Msg("poller starting")

	p.wg.Add(1)
	go p.runLoop(p.ctx, p.generation.Load())

	return nil
}

// Stop halts the polling loop, cancels scheduled polls and discards the
// result of any poll still in flight. Until the next Start, PollAfter does
// nothing. It returns ErrPollerNotRunning if the loop was not running, but
// still cancels anything scheduled.
func (p *Poller) Stop() error {
	p.mu.Lock()
	wasRunning := p.running
	p.stopped = true
	p.generation.Add(1)
	if wasRunning {
		p.logger.Info().Msg("poller stopping")
		p.cancel()
		p.running = false
	}
	for t := range p.timers {
		if t.Stop() {
			p.wg.Done()
		}
	}
	p.timers = make(map[*time.Timer]struct{})
	p.mu.Unlock()

	p.wg.Wait()
	if !wasRunning {
		return ErrPollerNotRunning
	}
	p.logger.Info().Msg("poller stopped")
	return nil
}

// IsRunning returns true if the poller is running.
func (p *Poller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *Poller) runLoop(ctx context.Context, gen uint64) {
	defer p.wg.Done()

	_ = p.tick(ctx, gen)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.tick(ctx, gen)
		}
	}
}

// PollNow runs one poll synchronously, waiting for any tick in progress.
// It works whether or not the loop is running.
func (p *Poller) PollNow(ctx context.Context) error {
	return p.tick(ctx, p.generation.Load())
}

// PollAfter schedules an out-of-band poll after delay. While the loop is
// running the poll is bound to the loop's lifetime. After Stop it does
// nothing.
func (p *Poller) PollAfter(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		p.logger.Debug().Dur("delay", delay).Msg("ignoring poll request after stop")
		return
	}

	ctx := context.Background()
	if p.running {
		ctx = p.ctx
	}
	gen := p.generation.Load()

	var timer *time.Timer
	p.wg.Add(1)
	timer = time.AfterFunc(delay, func() {
		defer p.wg.Done()
		p.mu.Lock()
		delete(p.timers, timer)
		p.mu.Unlock()
		_ = p.tick(ctx, gen)
	})
	p.timers[timer] = struct{}{}
}

// tick performs one fetch-reconcile-publish cycle.
func (p *Poller) tick(ctx context.Context, gen uint64) error {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()

	if p.generation.Load() != gen {
		return ErrStalePoll
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	startedAt := time.Now()
	var (
		doc      *models.ConfigDocument
		statuses []models.RuntimeStatus
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		doc, err = p.fetcher.GetConfig(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		statuses, err = p.fetcher.ListStatuses(gctx)
		return err
	})
	err := g.Wait()

	if p.generation.Load() != gen {
		p.logger.Debug().Msg("discarding poll result after stop")
		return ErrStalePoll
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.recordFailure(err)
		return err
	}

	views := reconcile.Reconcile(doc.Apps, statuses)
	snap := p.store.Publish(views, startedAt)
	p.recordSuccess(snap)
	return nil
}

func (p *Poller) recordFailure(err error) {
	p.statusMu.Lock()
	p.lastErr = err
	p.statusMu.Unlock()

	p.metrics.ObservePoll(err, 0, nil)
	p.logger.Warn().Err(err).Msg("poll failed, keeping previous snapshot")
}

func (p *Poller) recordSuccess(snap Snapshot) {
	p.statusMu.Lock()
	p.lastErr = nil
	p.lastSuccess = snap.PublishedAt
	p.statusMu.Unlock()

	p.metrics.ObservePoll(nil, snap.Revision, snap.Views)
	p.logger.Debug().
		Int64("revision", snap.Revision).
		Int("apps", len(snap.Views)).
		Msg("snapshot published")
}

// LastError returns the error of the most recent poll, or nil after a success.
func (p *Poller) LastError() error {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.lastErr
}

// LastSuccess returns when a poll last published a snapshot.
func (p *Poller) LastSuccess() time.Time {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.lastSuccess
}
