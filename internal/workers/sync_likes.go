package workers

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/artfeed/domain"
)

const (
	DefaultFlushInterval = 10 * time.Second
	finalFlushTimeout    = 15 * time.Second
)

// Flusher is the part of the like aggregator this worker drives
type Flusher interface {
	Flush(ctx context.Context) error
}

type syncLikesWorker struct {
	aggregator Flusher
	interval   time.Duration
	trigger    chan struct{}
}

var _ domain.LikeFlusher = (*syncLikesWorker)(nil)

func NewSyncLikesWorker(f Flusher, interval time.Duration) *syncLikesWorker {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &syncLikesWorker{
		aggregator: f,
		interval:   interval,
		trigger:    make(chan struct{}, 1),
	}
}

// Trigger requests an early flush. Requests made while one is queued are merged.
func (s *syncLikesWorker) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Start flushes on every tick and on Trigger until ctx is done, then flushes
// once more with a fresh context.
func (s *syncLikesWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush(ctx)
		case <-s.trigger:
			s.flush(ctx)
		case <-ctx.Done():
			logrus.Info("shutting down SyncLikesWorker, flushing remaining likes...")
			finalCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			s.flush(finalCtx)
			cancel()
			return
		}
	}
}

func (s *syncLikesWorker) flush(ctx context.Context) {
	err := s.aggregator.Flush(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrFlushDeferred):
		logrus.Debug("like flush deferred by backoff")
	default:
		logrus.Errorf("failed to flush likes: %v", err)
	}
}
