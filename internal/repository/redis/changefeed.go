package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/realtime"
)

const DefaultChangeChannel = "likes:changes"

// changeFeed carries like changes between instances over redis pub/sub.
// It is both the feed the realtime worker listens on and the publisher
// the aggregator announces its flushed writes through.
type changeFeed struct {
	client  *redis.Client
	channel string

	// Malformed is called for every payload that fails to decode
	Malformed func(err error)
}

var (
	_ domain.ChangeFeed      = (*changeFeed)(nil)
	_ domain.ChangePublisher = (*changeFeed)(nil)
)

func NewChangeFeed(client *redis.Client, channel string) *changeFeed {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &changeFeed{client: client, channel: channel}
}

func (f *changeFeed) Listen(ctx context.Context, handle func(domain.LikeChange)) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed so connection errors surface here
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	logrus.Infof("listening for like changes on redis channel %s", f.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return domain.ErrFeedClosed
			}
			f.dispatch([]byte(msg.Payload), handle)
		}
	}
}

func (f *changeFeed) dispatch(payload []byte, handle func(domain.LikeChange)) {
	change, err := realtime.DecodeLikeChange(payload)
	if err != nil {
		logrus.Debugf("dropping like change: %v", err)
		if f.Malformed != nil {
			f.Malformed(err)
		}
		return
	}
	handle(change)
}

func (f *changeFeed) Publish(ctx context.Context, changes []domain.LikeChange) error {
	if len(changes) == 0 {
		return nil
	}
	pipe := f.client.Pipeline()
	for _, c := range changes {
		data, err := realtime.EncodeLikeChange(c)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, f.channel, string(data))
	}
	_, err := pipe.Exec(ctx)
	return err
}
