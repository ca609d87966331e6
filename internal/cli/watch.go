// Package cli provides the watch/streaming functionality for CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/anyrun/internal/console"
	"github.com/tOgg1/anyrun/internal/events"
	"github.com/tOgg1/anyrun/internal/logging"
	"github.com/tOgg1/anyrun/internal/metrics"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/reconcile"
	"github.com/tOgg1/anyrun/internal/state"
)

// Watch event types.
const (
	WatchPresent      = "present"
	WatchAdded        = "added"
	WatchRemoved      = "removed"
	WatchStatus       = "status"
	WatchNotification = "notification"
)

// WatchEvent is one line of watch output.
type WatchEvent struct {
	Time     time.Time                `json:"time"`
	Type     string                   `json:"type"`
	App      string                   `json:"app,omitempty"`
	Status   models.Status            `json:"status,omitempty"`
	Previous models.Status            `json:"previous,omitempty"`
	Revision int64                    `json:"revision,omitempty"`
	Level    models.NotificationLevel `json:"level,omitempty"`
	Kind     models.ErrorKind         `json:"kind,omitempty"`
	Message  string                   `json:"message,omitempty"`
}

// StreamConfig configures snapshot streaming behavior.
type StreamConfig struct {
	// JSONL writes one JSON object per event instead of text lines.
	JSONL bool

	// IncludeExisting reports every app in the first snapshot.
	IncludeExisting bool

	// IncludeOptimistic also reports statuses assumed before the
	// supervisor confirms them.
	IncludeOptimistic bool

	// Notifications streams console notifications alongside status changes.
	Notifications bool
}

// SnapshotStreamer turns successive snapshots into change events.
type SnapshotStreamer struct {
	out    io.Writer
	config StreamConfig
	now    func() time.Time

	mu     sync.Mutex
	prev   []models.AppView
	primed bool
}

// NewSnapshotStreamer creates a streamer writing to out.
func NewSnapshotStreamer(out io.Writer, config StreamConfig) *SnapshotStreamer {
	return &SnapshotStreamer{out: out, config: config, now: time.Now}
}

// Observe reports what changed since the previously observed snapshot.
// The first call only records a baseline unless IncludeExisting is set.
func (s *SnapshotStreamer) Observe(snap state.Snapshot) error {
	if snap.Source == state.SourceOptimistic && !s.config.IncludeOptimistic {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if !s.primed {
		if snap.Source == state.SourceInitial {
			return nil
		}
		s.primed = true
		s.prev = snap.Views
		if !s.config.IncludeExisting {
			return nil
		}
		for _, v := range snap.Views {
			if err := s.write(WatchEvent{Time: now, Type: WatchPresent, App: v.Name(), Status: v.Status, Revision: snap.Revision}); err != nil {
				return err
			}
		}
		return nil
	}

	before := make(map[string]models.Status, len(s.prev))
	for _, v := range s.prev {
		before[v.Name()] = v.Status
	}
	diff := reconcile.Compare(s.prev, snap.Views)
	s.prev = snap.Views

	var batch []WatchEvent
	for _, name := range diff.Added {
		v, _ := snap.Find(name)
		batch = append(batch, WatchEvent{Type: WatchAdded, App: name, Status: v.Status})
	}
	for _, name := range diff.Changed {
		v, _ := snap.Find(name)
		batch = append(batch, WatchEvent{Type: WatchStatus, App: name, Status: v.Status, Previous: before[name]})
	}
	for _, name := range diff.Removed {
		batch = append(batch, WatchEvent{Type: WatchRemoved, App: name, Previous: before[name]})
	}
	for _, ev := range batch {
		ev.Time = now
		ev.Revision = snap.Revision
		if err := s.write(ev); err != nil {
			return err
		}
	}
	return nil
}

// Notify reports a console notification.
func (s *SnapshotStreamer) Notify(n models.Notification) error {
	if !s.config.Notifications {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(WatchEvent{
		Time:    n.Time.UTC(),
		Type:    WatchNotification,
		App:     n.App,
		Level:   n.Level,
		Kind:    n.Kind,
		Message: n.Message,
	})
}

func (s *SnapshotStreamer) write(ev WatchEvent) error {
	if s.config.JSONL {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.out, string(data))
		return err
	}

	stamp := ev.Time.Local().Format("15:04:05")
	var line string
	switch ev.Type {
	case WatchPresent:
		line = fmt.Sprintf("%s  %s  %s", stamp, ev.App, statusLabel(ev.Status))
	case WatchAdded:
		line = fmt.Sprintf("%s  %s  added (%s)", stamp, ev.App, statusLabel(ev.Status))
	case WatchRemoved:
		line = fmt.Sprintf("%s  %s  removed", stamp, ev.App)
	case WatchStatus:
		line = fmt.Sprintf("%s  %s  %s -> %s", stamp, ev.App, ev.Previous, statusLabel(ev.Status))
	case WatchNotification:
		line = fmt.Sprintf("%s  [%s] %s", stamp, ev.Level, ev.Message)
	default:
		line = fmt.Sprintf("%s  %s %s", stamp, ev.Type, ev.App)
	}
	_, err := fmt.Fprintln(s.out, line)
	return err
}

// Stream starts the console's poller and writes events until ctx is
// cancelled, a write fails, or the session ends.
// Returns nil on graceful shutdown.
func (s *SnapshotStreamer) Stream(ctx context.Context, c *console.Console) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	fail := func(err error) {
		if err == nil {
			return
		}
		select {
		case errCh <- err:
		default:
		}
		cancel()
	}

	fail(s.Observe(c.Snapshot()))
	unsubscribe := c.Store.Subscribe(func(snap state.Snapshot) { fail(s.Observe(snap)) })
	defer unsubscribe()

	id, err := c.Events.Subscribe(events.Filter{}, func(n models.Notification) { fail(s.Notify(n)) })
	if err != nil {
		return err
	}
	defer func() { _ = c.Events.Unsubscribe(id) }()

	c.Guard.OnInvalidate(func(reason string) {
		fail(&models.Error{Kind: models.KindAuthFailure, Op: "watch", Message: reason})
	})

	if err := c.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

var (
	watchExisting      bool
	watchOptimistic    bool
	watchNotifications bool
	watchInterval      time.Duration
	watchMetricsAddr   string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchExisting, "existing", true, "print every application once before streaming changes")
	watchCmd.Flags().BoolVar(&watchOptimistic, "optimistic", false, "also report statuses assumed before confirmation")
	watchCmd.Flags().BoolVar(&watchNotifications, "notifications", true, "stream console notifications")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default from poller.interval)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (e.g. :9464)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream application status changes",
	Long: `Poll the supervisor and print status changes as they happen.

Use -o jsonl for machine-readable output. Stops on Ctrl+C or when the
session expires.`,
	Example: `  anyctl watch
  anyctl watch -o jsonl --existing=false
  anyctl watch --interval 2s --metrics-addr :9464`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if IsJSONOutput() || IsYAMLOutput() {
			return &PreflightError{Message: "watch streams events; use -o jsonl or table", Code: ExitUsage}
		}
		cfg := GetConfig()
		if cfg != nil && watchInterval > 0 {
			cfg.Poller.Interval = watchInterval
		}

		addr := watchMetricsAddr
		if addr == "" && cfg != nil {
			addr = cfg.Metrics.ListenAddr
		}
		var m *metrics.Metrics
		if addr != "" {
			m = metrics.New()
			go func() {
				if err := m.Serve(cmd.Context(), addr); err != nil {
					logger := logging.Component("cli")
					logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
				}
			}()
		}

		c, err := openSession(cmd, console.Options{Metrics: m})
		if err != nil {
			return err
		}
		defer c.Close()

		if !IsJSONLOutput() {
			fmt.Fprintf(os.Stderr, "Watching %s every %s (Ctrl+C to stop)\n", c.Config.Supervisor.URL, c.Config.Poller.Interval)
		}
		streamer := NewSnapshotStreamer(cmd.OutOrStdout(), StreamConfig{
			JSONL:             IsJSONLOutput(),
			IncludeExisting:   watchExisting,
			IncludeOptimistic: watchOptimistic,
			Notifications:     watchNotifications,
		})
		return streamer.Stream(cmd.Context(), c)
	},
}
