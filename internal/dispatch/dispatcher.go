// Package dispatch issues lifecycle commands with optimistic status
// transitions and tracks them until a poll confirms the outcome.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tOgg1/anyrun/internal/logging"
	"github.com/tOgg1/anyrun/internal/metrics"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/state"
)

// Remote sends lifecycle commands to the supervisor.
type Remote interface {
	Run(ctx context.Context, kind models.ActionKind, name string) error
	RunAll(ctx context.Context, kind models.ActionKind) error
}

// Scheduler arranges an out-of-band poll.
type Scheduler interface {
	PollAfter(delay time.Duration)
}

// Notifier reports outcomes to the operator.
type Notifier interface {
	Success(op, app, message string) models.Notification
	Error(op, app string, err error) models.Notification
}

// Remover deletes an application from the configuration.
type Remover interface {
	RemoveApp(ctx context.Context, name string, stopFirst bool) error
}

// Config contains configuration for the dispatcher.
type Config struct {
	// ConfirmDelay is how long after a command the confirming poll runs.
	// Default: 500ms
	ConfirmDelay time.Duration

	// PendingTimeout bounds how long an unconfirmed action is tracked.
	// Default: 10s
	PendingTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfirmDelay:   500 * time.Millisecond,
		PendingTimeout: 10 * time.Second,
	}
}

// Dispatcher applies commands optimistically to a Store and reconciles
// them through the poller.
type Dispatcher struct {
	config    Config
	remote    Remote
	store     *state.Store
	scheduler Scheduler
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	removerMu sync.RWMutex
	remover   Remover

	mu      sync.Mutex
	pending map[string]*models.PendingAction

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()

	now func() time.Time
}

// New creates a Dispatcher. scheduler, notifier and m may be nil.
func New(config Config, remote Remote, store *state.Store, scheduler Scheduler, notifier Notifier, m *metrics.Metrics) *Dispatcher {
	defaults := DefaultConfig()
	if config.ConfirmDelay <= 0 {
		config.ConfirmDelay = defaults.ConfirmDelay
	}
	if config.PendingTimeout <= 0 {
		config.PendingTimeout = defaults.PendingTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		config:    config,
		remote:    remote,
		store:     store,
		scheduler: scheduler,
		notifier:  notifier,
		metrics:   m,
		logger:    logging.Component("dispatch"),
		pending:   make(map[string]*models.PendingAction),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
	d.unsubscribe = store.Subscribe(d.observe)
	return d
}

// SetRemover wires the editor used by DeleteSelected.
func (d *Dispatcher) SetRemover(r Remover) {
	d.removerMu.Lock()
	d.remover = r
	d.removerMu.Unlock()
}

// Close waits for fire-and-forget commands and detaches from the store.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
	d.unsubscribe()
}

// Dispatch issues a command without waiting for it. Failures are
// reported through the notifier.
func (d *Dispatcher) Dispatch(name string, kind models.ActionKind) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.Do(d.ctx, name, kind)
	}()
}

// Do issues a command and waits for the supervisor's answer. The view
// flips to the optimistic status first and is reverted if the call fails.
func (d *Dispatcher) Do(ctx context.Context, name string, kind models.ActionKind) error {
	if err := checkKind(name, kind); err != nil {
		return err
	}
	return d.execute(ctx, d.begin(name, kind))
}

// execute sends an action already applied by begin and settles it.
func (d *Dispatcher) execute(ctx context.Context, action *models.PendingAction) error {
	name, kind := action.Name, action.Kind
	logger := logging.WithApp(d.logger, name)
	logger.Debug().Str("kind", string(kind)).Str("optimistic", string(action.OptimisticStatus)).Msg("dispatching")

	err := d.remote.Run(ctx, kind, name)
	d.settle(action, err)

	if err != nil {
		d.revert(action)
		logger.Warn().Err(err).Str("kind", string(kind)).Msg("command failed")
		if d.notifier != nil {
			d.notifier.Error(string(kind), name, err)
		}
	} else if d.notifier != nil {
		d.notifier.Success(string(kind), name, fmt.Sprintf("%s %s", kind.PastTense(), name))
	}

	d.metrics.ObserveDispatch(kind, err)
	d.confirmSoon()
	return err
}

// ServerSideAll asks the supervisor to apply kind to every app in one
// call. Every app flips optimistically; a failure reverts all of them
// since it cannot be attributed to a member.
func (d *Dispatcher) ServerSideAll(ctx context.Context, kind models.ActionKind) error {
	if err := checkKind("", kind); err != nil {
		return err
	}

	names := d.store.Snapshot().Names()
	actions := make([]*models.PendingAction, 0, len(names))
	for _, name := range names {
		actions = append(actions, d.begin(name, kind))
	}

	err := d.remote.RunAll(ctx, kind)
	for _, action := range actions {
		d.settle(action, err)
		if err != nil {
			d.revert(action)
		}
	}

	op := string(kind) + "all"
	if err != nil {
		d.logger.Warn().Err(err).Str("kind", string(kind)).Msg("bulk command failed")
		if d.notifier != nil {
			d.notifier.Error(op, "", err)
		}
	} else if d.notifier != nil {
		d.notifier.Success(op, "", fmt.Sprintf("%s %d apps", kind.PastTense(), len(names)))
	}

	d.metrics.ObserveDispatch(kind, err)
	d.confirmSoon()
	return err
}

// begin applies the optimistic transition and records a pending action.
func (d *Dispatcher) begin(name string, kind models.ActionKind) *models.PendingAction {
	optimistic := kind.OptimisticStatus()
	// previous stays zero for apps missing from the snapshot.
	previous, _ := d.store.SetStatus(name, optimistic)

	action := &models.PendingAction{
		ID:               uuid.NewString(),
		Name:             name,
		Kind:             kind,
		IssuedAt:         d.now(),
		PreviousStatus:   previous.Status,
		OptimisticStatus: optimistic,
		Previous:         previous,
	}

	d.mu.Lock()
	d.pending[action.ID] = action
	n := len(d.pending)
	d.mu.Unlock()

	d.metrics.SetPending(n)
	return action
}

func (d *Dispatcher) settle(action *models.PendingAction, err error) {
	d.mu.Lock()
	action.SettledAt = d.now()
	action.Err = err
	if err != nil {
		delete(d.pending, action.ID)
	}
	n := len(d.pending)
	d.mu.Unlock()

	d.metrics.SetPending(n)
}

// revert restores the pre-dispatch runtime fields of one app, unless
// something newer already replaced the optimistic value. The config is
// left alone since an edit may have landed in the meantime.
func (d *Dispatcher) revert(action *models.PendingAction) {
	if action.PreviousStatus == "" || action.PreviousStatus == action.OptimisticStatus {
		return
	}
	if d.hasNewerPending(action) {
		return
	}
	d.store.Update(func(views []models.AppView) bool {
		for i := range views {
			if views[i].Name() != action.Name {
				continue
			}
			if views[i].Status != action.OptimisticStatus {
				return false
			}
			prev := action.Previous
			views[i].Status = prev.Status
			views[i].PID = prev.PID
			views[i].Port = prev.Port
			views[i].StartedAt = prev.StartedAt
			return true
		}
		return false
	})
}

func (d *Dispatcher) hasNewerPending(action *models.PendingAction) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, other := range d.pending {
		if other.Name == action.Name && other.ID != action.ID && other.IssuedAt.After(action.IssuedAt) {
			return true
		}
	}
	return false
}

func (d *Dispatcher) confirmSoon() {
	if d.scheduler != nil {
		d.scheduler.PollAfter(d.config.ConfirmDelay)
	}
}

// observe clears pending actions confirmed by a poll whose fetch began
// after the command settled, and those that outlived PendingTimeout.
func (d *Dispatcher) observe(snap state.Snapshot) {
	now := d.now()

	d.mu.Lock()
	for id, action := range d.pending {
		confirmed := snap.Source == state.SourcePoll && action.Settled() && snap.StartedAt.After(action.SettledAt)
		if confirmed || action.Expired(now, d.config.PendingTimeout) {
			delete(d.pending, id)
		}
	}
	n := len(d.pending)
	d.mu.Unlock()

	d.metrics.SetPending(n)
}

// Pending lists unconfirmed actions, oldest first.
func (d *Dispatcher) Pending() []models.PendingAction {
	now := d.now()

	d.mu.Lock()
	out := make([]models.PendingAction, 0, len(d.pending))
	for id, action := range d.pending {
		if action.Expired(now, d.config.PendingTimeout) {
			delete(d.pending, id)
			continue
		}
		out = append(out, *action)
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out
}

// IsPending reports whether name has an unconfirmed action.
func (d *Dispatcher) IsPending(name string) bool {
	for _, action := range d.Pending() {
		if action.Name == name {
			return true
		}
	}
	return false
}

func checkKind(name string, kind models.ActionKind) error {
	if _, err := models.ParseActionKind(string(kind)); err != nil {
		return &models.Error{Kind: models.KindValidationFailure, Op: "dispatch", App: name, Err: err}
	}
	return nil
}
