package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/platform/metrics"
)

const (
	minReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay = 30 * time.Second
)

// ExternalObserver receives changes written by other clients
type ExternalObserver interface {
	ObserveExternal(change domain.LikeChange) bool
}

type realtimeLikesWorker struct {
	feed     domain.ChangeFeed
	observer ExternalObserver
	metrics  *metrics.LikeMetrics

	minDelay, maxDelay time.Duration
}

var _ domain.ChangeListener = (*realtimeLikesWorker)(nil)

func NewRealtimeLikesWorker(feed domain.ChangeFeed, o ExternalObserver, m *metrics.LikeMetrics) *realtimeLikesWorker {
	return &realtimeLikesWorker{
		feed:     feed,
		observer: o,
		metrics:  m,
		minDelay: minReconnectDelay,
		maxDelay: maxReconnectDelay,
	}
}

// Start keeps the change feed connected until ctx is done.
// A dropped connection is retried with capped exponential backoff.
func (w *realtimeLikesWorker) Start(ctx context.Context) {
	delay := w.minDelay
	for {
		connected := time.Now()
		err := w.feed.Listen(ctx, func(c domain.LikeChange) {
			w.observer.ObserveExternal(c)
		})
		if ctx.Err() != nil {
			logrus.Info("realtime likes listener stopped")
			return
		}

		// a connection that stayed up for a while starts the backoff over
		if time.Since(connected) > w.maxDelay {
			delay = w.minDelay
		}
		logrus.Warnf("realtime likes feed disconnected, reconnecting in %s: %v", delay, err)
		if w.metrics != nil {
			w.metrics.RealtimeReconnects.Inc()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, w.maxDelay)
	}
}
