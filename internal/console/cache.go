package console

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/anyrun/internal/logging"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/state"
)

const cacheWriteTimeout = 5 * time.Second

// snapshotWriter persists the last polled collection.
type snapshotWriter interface {
	Save(ctx context.Context, server string, revision int64, views []models.AppView) error
}

// snapshotSink writes poll snapshots to the cache off the publishing
// goroutine. Only the newest pending snapshot is kept, and a snapshot
// older than one already offered is dropped.
type snapshotSink struct {
	writer snapshotWriter
	server string
	logger zerolog.Logger

	mu      sync.Mutex
	pending *state.Snapshot
	latest  int64
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func newSnapshotSink(writer snapshotWriter, server string) *snapshotSink {
	s := &snapshotSink{
		writer: writer,
		server: server,
		logger: logging.Component("cache"),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// offer queues snap for writing. Optimistic snapshots are not cached.
func (s *snapshotSink) offer(snap state.Snapshot) {
	if snap.Source != state.SourcePoll {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	// Subscribers run outside the store lock, so offers can arrive out of order.
	if latest := s.latest; snap.Revision <= latest {
		s.mu.Unlock()
		s.logger.Debug().Int64("revision", snap.Revision).Int64("latest", latest).Msg("dropping stale snapshot")
		return
	}
	s.latest = snap.Revision
	s.pending = &snap
	select {
	case s.wake <- struct{}{}:
	default:
	}
	s.mu.Unlock()
}

func (s *snapshotSink) run() {
	defer close(s.done)
	for range s.wake {
		s.flush()
	}
}

func (s *snapshotSink) flush() {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()
	if snap == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()
	if err := s.writer.Save(ctx, s.server, snap.Revision, snap.Views); err != nil {
		s.logger.Warn().Err(err).Int64("revision", snap.Revision).Msg("failed to cache snapshot")
		return
	}
	s.logger.Debug().Int64("revision", snap.Revision).Msg("snapshot cached")
}

// close writes anything still pending and stops the writer.
func (s *snapshotSink) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.wake)
	s.mu.Unlock()

	<-s.done
	s.flush()
}
