package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/artfeed/domain"
)

const (
	feedCacheTTL = 30 * time.Second
	// the cached first page always holds this many posts so any num up to it can be served
	feedCacheSize = MaxPageSize
)

// postRepository coordinates the post cache and the relational store
type postRepository struct {
	db           domain.PostDBRepository
	cache        domain.PostCache
	userRepo     domain.UserRepository
	rebuildGroup singleflight.Group
}

var _ domain.PostRepository = (*postRepository)(nil)

func NewPostRepository(db domain.PostDBRepository, cache domain.PostCache, userRepo domain.UserRepository) *postRepository {
	return &postRepository{
		db:       db,
		cache:    cache,
		userRepo: userRepo,
	}
}

// Fetch serves the first page of a category from cache with logical expiry.
// Later pages always go to the database.
func (r *postRepository) Fetch(ctx context.Context, category string, cursor string, num int64) ([]domain.Post, error) {
	if cursor == "" {
		posts, expired, err := r.cache.GetFeed(ctx, category)
		if err == nil {
			if expired {
				go r.rebuildFeedCache(context.Background(), category)
			}
			return firstN(posts, num), nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			logrus.Warnf("failed to read feed cache for %q: %v", category, err)
		}

		res, err, _ := r.rebuildGroup.Do("feed:"+category, func() (any, error) {
			return r.loadFeed(ctx, category)
		})
		if err != nil {
			return nil, err
		}
		page := res.([]domain.Post)
		go func(data []domain.Post) {
			if err := r.cache.SetFeed(context.Background(), category, data, feedCacheTTL); err != nil {
				logrus.Warnf("failed to set feed cache for %q: %v", category, err)
			}
		}(page)
		return firstN(page, num), nil
	}

	posts, err := r.db.Fetch(ctx, category, cursor, num)
	if err != nil {
		return nil, err
	}
	return r.fillUserDetails(ctx, posts)
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (domain.Post, error) {
	post, err := r.cache.GetPost(ctx, id)
	if err == nil {
		return post, nil
	}

	res, err, _ := r.rebuildGroup.Do("post:"+strconv.FormatInt(id, 10), func() (any, error) {
		p, err := r.db.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		user, err := r.userRepo.GetByID(ctx, p.User.ID)
		if err != nil {
			return nil, err
		}
		p.User = user

		if err := r.cache.SetPost(context.Background(), &p); err != nil {
			logrus.Warnf("failed to set post cache, id: %d, err: %v", id, err)
		}
		return p, nil
	})
	if err != nil {
		return domain.Post{}, err
	}
	return res.(domain.Post), nil
}

func (r *postRepository) FetchIDs(ctx context.Context, cursor, limit int64) ([]int64, error) {
	return r.db.FetchIDs(ctx, cursor, limit)
}

func (r *postRepository) loadFeed(ctx context.Context, category string) ([]domain.Post, error) {
	posts, err := r.db.Fetch(ctx, category, "", feedCacheSize)
	if err != nil {
		return nil, err
	}
	return r.fillUserDetails(ctx, posts)
}

// fillUserDetails replaces every author stub with the full user record
func (r *postRepository) fillUserDetails(ctx context.Context, posts []domain.Post) ([]domain.Post, error) {
	if len(posts) == 0 {
		return posts, nil
	}

	userIDs := make([]string, 0, len(posts))
	seen := make(map[string]bool)
	for _, p := range posts {
		if !seen[p.User.ID] {
			userIDs = append(userIDs, p.User.ID)
			seen[p.User.ID] = true
		}
	}

	users, err := r.userRepo.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	userMap := make(map[string]domain.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}
	for i := range posts {
		if u, ok := userMap[posts[i].User.ID]; ok {
			posts[i].User = u
		}
	}
	return posts, nil
}

func (r *postRepository) rebuildFeedCache(ctx context.Context, category string) {
	_, err, _ := r.rebuildGroup.Do("rebuild:feed:"+category, func() (any, error) {
		posts, err := r.loadFeed(ctx, category)
		if err != nil {
			return nil, err
		}
		return nil, r.cache.SetFeed(ctx, category, posts, feedCacheTTL)
	})
	if err != nil {
		logrus.Errorf("rebuildFeedCache failed for %q: %v", category, err)
	}
}

func firstN(posts []domain.Post, n int64) []domain.Post {
	if n > 0 && int64(len(posts)) > n {
		return posts[:n]
	}
	return posts
}
