package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/realtime"
)

// DefaultChannel is the NOTIFY channel the likes trigger writes to
const DefaultChannel = "likes_changes"

const (
	minReconnectInterval = time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

type changeFeed struct {
	dsn     string
	channel string

	// Malformed is called for every payload that fails to decode
	Malformed func(err error)
}

var _ domain.ChangeFeed = (*changeFeed)(nil)

func NewChangeFeed(dsn, channel string) *changeFeed {
	if channel == "" {
		channel = DefaultChannel
	}
	return &changeFeed{dsn: dsn, channel: channel}
}

func (f *changeFeed) Listen(ctx context.Context, handle func(domain.LikeChange)) error {
	l := pq.NewListener(f.dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			logrus.Warnf("postgres listener on %s: %v", f.channel, err)
		case pq.ListenerEventReconnected:
			logrus.Infof("postgres listener on %s reconnected", f.channel)
		}
	})
	defer l.Close()

	if err := l.Listen(f.channel); err != nil {
		return err
	}
	logrus.Infof("listening for like changes on postgres channel %s", f.channel)

	return f.consume(ctx, l.Notify, l.Ping, handle)
}

func (f *changeFeed) consume(ctx context.Context, notify <-chan *pq.Notification, ping func() error, handle func(domain.LikeChange)) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notify:
			if !ok {
				return domain.ErrFeedClosed
			}
			// nil is sent after the listener re-established its connection
			if n == nil {
				continue
			}
			change, err := realtime.DecodeLikeChange([]byte(n.Extra))
			if err != nil {
				logrus.Debugf("dropping like change: %v", err)
				if f.Malformed != nil {
					f.Malformed(err)
				}
				continue
			}
			handle(change)
		case <-ticker.C:
			if err := ping(); err != nil {
				return err
			}
		}
	}
}
