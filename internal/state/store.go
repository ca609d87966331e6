// Package state holds the reconciled application snapshot and the poller
// that keeps it fresh.
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tOgg1/anyrun/internal/models"
)

// Source records what produced a snapshot.
type Source string

const (
	SourceInitial    Source = "initial"
	SourceCache      Source = "cache"
	SourcePoll       Source = "poll"
	SourceOptimistic Source = "optimistic"
)

// Snapshot is an immutable view of the application collection.
// Callers must not modify Views.
type Snapshot struct {
	// Revision increases with every published change.
	Revision int64

	Views []models.AppView

	// StartedAt is when the fetch behind a poll snapshot began.
	StartedAt time.Time

	// PublishedAt is when the snapshot replaced its predecessor.
	PublishedAt time.Time

	Source Source
}

// Find returns the named view.
func (s Snapshot) Find(name string) (models.AppView, bool) {
	for _, v := range s.Views {
		if v.Name() == name {
			return v, true
		}
	}
	return models.AppView{}, false
}

// Names lists view names in order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.Views))
	for i, v := range s.Views {
		names[i] = v.Name()
	}
	return names
}

// Store publishes snapshots. Readers never block and never observe a
// partially applied update: every change swaps the whole collection.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]

	subMu sync.RWMutex
	subs  map[string]func(Snapshot)
}

// NewStore creates an empty store at revision 0.
func NewStore() *Store {
	s := &Store{subs: make(map[string]func(Snapshot))}
	s.current.Store(&Snapshot{Views: []models.AppView{}, Source: SourceInitial})
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Publish replaces the collection with freshly reconciled views.
func (s *Store) Publish(views []models.AppView, startedAt time.Time) Snapshot {
	snap, _ := s.swap(func(prev *Snapshot) (*Snapshot, bool) {
		return &Snapshot{
			Revision:  prev.Revision + 1,
			Views:     models.CloneViews(views),
			StartedAt: startedAt,
			Source:    SourcePoll,
		}, true
	})
	return snap
}

// Seed installs cached views before the first poll. It does nothing once
// any snapshot has been published.
func (s *Store) Seed(views []models.AppView) bool {
	_, ok := s.swap(func(prev *Snapshot) (*Snapshot, bool) {
		if prev.Revision != 0 {
			return nil, false
		}
		return &Snapshot{Views: models.CloneViews(views), Source: SourceCache}, true
	})
	return ok
}

// Update applies fn to a copy of the current views. fn reports whether it
// changed anything; unchanged updates publish nothing.
func (s *Store) Update(fn func(views []models.AppView) bool) (Snapshot, bool) {
	return s.swap(func(prev *Snapshot) (*Snapshot, bool) {
		views := models.CloneViews(prev.Views)
		if !fn(views) {
			return nil, false
		}
		return &Snapshot{
			Revision:  prev.Revision + 1,
			Views:     views,
			StartedAt: prev.StartedAt,
			Source:    SourceOptimistic,
		}, true
	})
}

// SetStatus sets the status of one app. It returns the view it replaced,
// and false if the app is not in the collection.
func (s *Store) SetStatus(name string, status models.Status) (models.AppView, bool) {
	var previous models.AppView
	found := false
	s.Update(func(views []models.AppView) bool {
		for i := range views {
			if views[i].Name() != name {
				continue
			}
			found = true
			previous = views[i]
			if previous.Status == status {
				return false
			}
			views[i] = views[i].WithStatus(status)
			return true
		}
		return false
	})
	return previous, found
}

// Subscribe registers fn to receive every published snapshot. fn runs on
// the publishing goroutine and must not block.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	id := uuid.NewString()
	s.subMu.Lock()
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) swap(next func(prev *Snapshot) (*Snapshot, bool)) (Snapshot, bool) {
	s.mu.Lock()
	prev := s.current.Load()
	snap, ok := next(prev)
	if !ok {
		s.mu.Unlock()
		return *prev, false
	}
	snap.PublishedAt = time.Now()
	s.current.Store(snap)
	s.mu.Unlock()

	s.subMu.RLock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(*snap)
	}
	return *snap, true
}
