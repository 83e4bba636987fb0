package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/artfeed/domain"
)

const KeyPendingLikes = "likes:pending:%s"

type pendingLikeStore struct {
	client *redis.Client
	key    string
}

var _ domain.PendingLikeStore = (*pendingLikeStore)(nil)

// NewPendingLikeStore keeps the unflushed like queue of one install under a single key.
func NewPendingLikeStore(client *redis.Client, installID string) *pendingLikeStore {
	return &pendingLikeStore{
		client: client,
		key:    fmt.Sprintf(KeyPendingLikes, installID),
	}
}

func (s *pendingLikeStore) Load(ctx context.Context) ([]domain.PendingLikeAction, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var actions []domain.PendingLikeAction
	if err = json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("decode pending likes: %w", err)
	}
	return actions, nil
}

func (s *pendingLikeStore) Save(ctx context.Context, actions []domain.PendingLikeAction) error {
	if len(actions) == 0 {
		return s.Clear(ctx)
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, string(data), 0).Err()
}

func (s *pendingLikeStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
