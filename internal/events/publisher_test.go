package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/anyrun/internal/metrics"
	"github.com/tOgg1/anyrun/internal/models"
)

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		n      models.Notification
		want   bool
	}{
		{
			name:   "empty filter matches any notification",
			filter: Filter{},
			n:      models.Notification{Level: models.LevelInfo, App: "api"},
			want:   true,
		},
		{
			name:   "level filter matches",
			filter: Filter{Levels: []models.NotificationLevel{models.LevelError}},
			n:      models.Notification{Level: models.LevelError},
			want:   true,
		},
		{
			name:   "level filter rejects non-matching",
			filter: Filter{Levels: []models.NotificationLevel{models.LevelError}},
			n:      models.Notification{Level: models.LevelSuccess},
			want:   false,
		},
		{
			name:   "multiple levels match any",
			filter: Filter{Levels: []models.NotificationLevel{models.LevelError, models.LevelSuccess}},
			n:      models.Notification{Level: models.LevelSuccess},
			want:   true,
		},
		{
			name:   "app filter rejects other apps",
			filter: Filter{App: "api"},
			n:      models.Notification{Level: models.LevelInfo, App: "worker"},
			want:   false,
		},
		{
			name:   "combined filters all must match",
			filter: Filter{Levels: []models.NotificationLevel{models.LevelError}, App: "api"},
			n:      models.Notification{Level: models.LevelInfo, App: "api"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.filter.Matches(tt.n))
		})
	}
}

func TestPublisher_NotifyStampsAndDelivers(t *testing.T) {
	pub := NewPublisher()
	var got []models.Notification
	_, err := pub.Subscribe(Filter{}, func(n models.Notification) { got = append(got, n) })
	require.NoError(t, err)

	sent := pub.Info("save", "api", "saved")
	require.NotEmpty(t, sent.ID)
	require.False(t, sent.Time.IsZero())
	require.Equal(t, models.LevelInfo, sent.Level)
	require.Equal(t, []models.Notification{sent}, got)
}

func TestPublisher_ErrorCarriesKind(t *testing.T) {
	pub := NewPublisher()
	err := &models.Error{Kind: models.KindNotFound, Op: "stop", App: "api", Message: "no such app"}
	n := pub.Error("stop", "api", err)
	require.Equal(t, models.LevelError, n.Level)
	require.Equal(t, models.KindNotFound, n.Kind)
	require.Equal(t, "api", n.App)
	require.Contains(t, n.Message, "no such app")

	plain := pub.Error("stop", "api", errors.New("boom"))
	require.Empty(t, plain.Kind)
}

func TestPublisher_FilteredSubscription(t *testing.T) {
	pub := NewPublisher()
	var errorsSeen int
	_, err := pub.Subscribe(Filter{Levels: []models.NotificationLevel{models.LevelError}}, func(models.Notification) {
		errorsSeen++
	})
	require.NoError(t, err)

	pub.Success("start", "api", "started")
	pub.Error("start", "api", errors.New("refused"))
	require.Equal(t, 1, errorsSeen)
}

func TestPublisher_SubscribeUnsubscribe(t *testing.T) {
	pub := NewPublisher()

	_, err := pub.Subscribe(Filter{}, nil)
	require.ErrorIs(t, err, ErrNilHandler)

	id, err := pub.Subscribe(Filter{}, func(models.Notification) {})
	require.NoError(t, err)
	require.Equal(t, 1, pub.SubscriberCount())

	require.NoError(t, pub.Unsubscribe(id))
	require.Equal(t, 0, pub.SubscriberCount())
	require.ErrorIs(t, pub.Unsubscribe(id), ErrSubscriptionNotFound)

	_, _ = pub.Subscribe(Filter{}, func(models.Notification) {})
	pub.Close()
	require.Equal(t, 0, pub.SubscriberCount())
}

func TestPublisher_HandlerMayPublish(t *testing.T) {
	pub := NewPublisher()
	_, err := pub.Subscribe(Filter{Levels: []models.NotificationLevel{models.LevelError}}, func(n models.Notification) {
		pub.Info("retry", n.App, "will retry")
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		pub.Error("start", "api", errors.New("boom"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publishing from a handler deadlocked")
	}
	require.Len(t, pub.Recent(0), 2)
}

func TestPublisher_RecentIsBounded(t *testing.T) {
	pub := NewPublisher(WithHistorySize(3))
	for _, msg := range []string{"one", "two", "three", "four", "five"} {
		pub.Info("op", "", msg)
	}

	recent := pub.Recent(0)
	require.Len(t, recent, 3)
	require.Equal(t, "three", recent[0].Message)
	require.Equal(t, "five", recent[2].Message)

	last := pub.Recent(1)
	require.Len(t, last, 1)
	require.Equal(t, "five", last[0].Message)

	require.Empty(t, NewPublisher(WithHistorySize(0)).Recent(0))
}

func TestPublisher_ConcurrentNotify(t *testing.T) {
	pub := NewPublisher()
	var mu sync.Mutex
	count := 0
	_, _ = pub.Subscribe(Filter{}, func(models.Notification) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pub.Success("start", "api", "ok")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 20, count)
}

func TestPublisher_CountsByLevel(t *testing.T) {
	m := metrics.New()
	pub := NewPublisher(WithMetrics(m))
	pub.Error("stop", "api", errors.New("boom"))
	pub.Error("stop", "web", errors.New("boom"))
	pub.Success("start", "api", "ok")

	require.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("success")))
}
