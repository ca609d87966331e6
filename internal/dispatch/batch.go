package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tOgg1/anyrun/internal/models"
)

// ErrNoRemover is returned by DeleteSelected before SetRemover is called.
var ErrNoRemover = errors.New("dispatcher has no remover")

// BatchResult collects the outcome of a fan-out.
type BatchResult struct {
	// Succeeded lists members in request order.
	Succeeded []string

	// Failed maps each failed member to its error.
	Failed map[string]error
}

// Err summarizes the failures, or returns nil when every member succeeded.
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Failed))
	for name := range r.Failed {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %w", name, r.Failed[name]))
	}
	return fmt.Errorf("%d of %d failed (%s): %w",
		len(r.Failed), len(r.Failed)+len(r.Succeeded), strings.Join(names, ", "), errors.Join(errs...))
}

// StartAll starts every app in the current snapshot.
func (d *Dispatcher) StartAll(ctx context.Context) BatchResult {
	return d.Batch(ctx, models.ActionStart, d.store.Snapshot().Names())
}

// StopAll stops every app in the current snapshot.
func (d *Dispatcher) StopAll(ctx context.Context) BatchResult {
	return d.Batch(ctx, models.ActionStop, d.store.Snapshot().Names())
}

// RestartAll restarts every app in the current snapshot.
func (d *Dispatcher) RestartAll(ctx context.Context) BatchResult {
	return d.Batch(ctx, models.ActionRestart, d.store.Snapshot().Names())
}

// StartSelected starts the named apps.
func (d *Dispatcher) StartSelected(ctx context.Context, names []string) BatchResult {
	return d.Batch(ctx, models.ActionStart, names)
}

// StopSelected stops the named apps.
func (d *Dispatcher) StopSelected(ctx context.Context, names []string) BatchResult {
	return d.Batch(ctx, models.ActionStop, names)
}

// RestartSelected restarts the named apps.
func (d *Dispatcher) RestartSelected(ctx context.Context, names []string) BatchResult {
	return d.Batch(ctx, models.ActionRestart, names)
}

// Batch runs kind against every name as independent dispatches. Every
// member flips to its optimistic status before any command is sent, and
// one member failing or hanging never holds back the others.
func (d *Dispatcher) Batch(ctx context.Context, kind models.ActionKind, names []string) BatchResult {
	if err := checkKind("", kind); err != nil {
		result := BatchResult{Failed: make(map[string]error, len(names))}
		for _, name := range names {
			result.Failed[name] = err
		}
		return result
	}

	d.logger.Info().Str("kind", string(kind)).Int("apps", len(names)).Msg("batch dispatch")
	actions := make([]*models.PendingAction, len(names))
	for i, name := range names {
		actions[i] = d.begin(name, kind)
	}
	return d.fanOut(ctx, names, func(ctx context.Context, i int, _ string) error {
		return d.execute(ctx, actions[i])
	})
}

// DeleteSelected removes the named apps from the configuration, stopping
// each first when stopFirst is set. Apps already gone count as removed.
func (d *Dispatcher) DeleteSelected(ctx context.Context, names []string, stopFirst bool) BatchResult {
	d.removerMu.RLock()
	remover := d.remover
	d.removerMu.RUnlock()

	d.logger.Info().Int("apps", len(names)).Bool("stop_first", stopFirst).Msg("batch delete")
	return d.fanOut(ctx, names, func(ctx context.Context, _ int, name string) error {
		if remover == nil {
			return ErrNoRemover
		}
		err := remover.RemoveApp(ctx, name, stopFirst)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	})
}

// fanOut runs fn for every member at once. Request pacing is left to the
// supervisor client's rate limiter.
func (d *Dispatcher) fanOut(ctx context.Context, names []string, fn func(ctx context.Context, i int, name string) error) BatchResult {
	errs := make([]error, len(names))

	g := new(errgroup.Group)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			errs[i] = fn(ctx, i, name)
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Failed: make(map[string]error)}
	for i, name := range names {
		if errs[i] != nil {
			result.Failed[name] = errs[i]
			continue
		}
		result.Succeeded = append(result.Succeeded, name)
	}
	return result
}
