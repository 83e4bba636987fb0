package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Guyuepp/artfeed/domain"
	"github.com/Guyuepp/artfeed/internal/repository/cache"
)

const (
	KeyPost = "post:%d"
	KeyFeed = "post:feed:%s"

	postTTL = 10 * time.Minute
	// a logically expired feed is still served while it is rebuilt
	feedPhysicalTTL = 24 * time.Hour
	allCategories   = "_all"
)

type postCache struct {
	client *redis.Client
}

var _ domain.PostCache = (*postCache)(nil)

func NewPostCache(client *redis.Client) *postCache {
	return &postCache{client}
}

func feedKey(category string) string {
	if category == "" {
		category = allCategories
	}
	return fmt.Sprintf(KeyFeed, category)
}

func (c *postCache) GetFeed(ctx context.Context, category string) ([]domain.Post, bool, error) {
	data, err := c.client.Get(ctx, feedKey(category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, domain.ErrCacheMiss
	} else if err != nil {
		return nil, false, err
	}

	var e cache.DataWithLogicalExpire[[]domain.Post]
	if err = json.Unmarshal(data, &e); err != nil {
		return nil, false, err
	}
	return e.Data, e.IsLogicalExpired(), nil
}

func (c *postCache) SetFeed(ctx context.Context, category string, posts []domain.Post, ttl time.Duration) error {
	data, err := json.Marshal(cache.NewDataWithLogicalExpire(posts, ttl))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, feedKey(category), string(data), feedPhysicalTTL).Err()
}

func (c *postCache) DeleteFeed(ctx context.Context, category string) error {
	return c.client.Del(ctx, feedKey(category)).Err()
}

func (c *postCache) GetPost(ctx context.Context, id int64) (res domain.Post, err error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(KeyPost, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Post{}, domain.ErrCacheMiss
	} else if err != nil {
		return domain.Post{}, err
	}
	if err = json.Unmarshal(data, &res); err != nil {
		return domain.Post{}, err
	}
	return
}

func (c *postCache) SetPost(ctx context.Context, p *domain.Post) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fmt.Sprintf(KeyPost, p.ID), string(data), postTTL).Err()
}
