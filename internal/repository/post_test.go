package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/artfeed/domain"
)

type fakePostDB struct {
	mu      sync.Mutex
	posts   []domain.Post
	fetches []int64
	err     error
}

func (f *fakePostDB) Fetch(_ context.Context, _ string, _ string, num int64) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, num)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Post, 0, len(f.posts))
	for _, p := range firstN(f.posts, num) {
		p.User = domain.User{ID: p.User.ID}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePostDB) GetByID(_ context.Context, id int64) (domain.Post, error) {
	for _, p := range f.posts {
		if p.ID == id {
			p.User = domain.User{ID: p.User.ID}
			return p, nil
		}
	}
	return domain.Post{}, domain.ErrNotFound
}

func (f *fakePostDB) GetByIDs(context.Context, []int64) ([]domain.Post, error) { return nil, nil }

func (f *fakePostDB) FetchIDs(_ context.Context, cursor, limit int64) ([]int64, error) {
	return []int64{cursor + 1, cursor + limit}, nil
}

func (f *fakePostDB) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

type fakeUsers map[string]domain.User

func (u fakeUsers) GetByID(_ context.Context, id string) (domain.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return domain.User{}, domain.ErrNotFound
}

func (u fakeUsers) GetByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	var out []domain.User
	for _, id := range ids {
		if user, ok := u[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

type fakePostCache struct {
	mu      sync.Mutex
	feeds   map[string][]domain.Post
	expired bool
	posts   map[int64]domain.Post
}

func newFakePostCache() *fakePostCache {
	return &fakePostCache{feeds: map[string][]domain.Post{}, posts: map[int64]domain.Post{}}
}

func (c *fakePostCache) GetFeed(_ context.Context, category string) ([]domain.Post, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	posts, ok := c.feeds[category]
	if !ok {
		return nil, false, domain.ErrCacheMiss
	}
	return posts, c.expired, nil
}

func (c *fakePostCache) SetFeed(_ context.Context, category string, posts []domain.Post, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feeds[category] = posts
	c.expired = false
	return nil
}

func (c *fakePostCache) DeleteFeed(_ context.Context, category string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.feeds, category)
	return nil
}

func (c *fakePostCache) GetPost(_ context.Context, id int64) (domain.Post, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.posts[id]
	if !ok {
		return domain.Post{}, domain.ErrCacheMiss
	}
	return p, nil
}

func (c *fakePostCache) SetPost(_ context.Context, p *domain.Post) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts[p.ID] = *p
	return nil
}

func (c *fakePostCache) cachedFeed(category string) ([]domain.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.feeds[category]
	return p, ok
}

func seedPosts(n int) ([]domain.Post, fakeUsers) {
	users := fakeUsers{}
	posts := make([]domain.Post, n)
	for i := range posts {
		u := domain.User{ID: faker.UUIDHyphenated(), Name: faker.Name(), Username: faker.Username()}
		users[u.ID] = u
		posts[i] = domain.Post{ID: int64(n - i), Title: faker.Sentence(), User: u}
	}
	return posts, users
}

func TestPostRepositoryFetchFirstPage(t *testing.T) {
	posts, users := seedPosts(5)
	db := &fakePostDB{posts: posts}
	cache := newFakePostCache()
	repo := NewPostRepository(db, cache, users)

	got, err := repo.Fetch(context.Background(), "", "", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, posts[0].User, got[0].User)
	assert.Equal(t, []int64{feedCacheSize}, db.fetches)

	assert.Eventually(t, func() bool {
		cached, ok := cache.cachedFeed("")
		return ok && len(cached) == 5
	}, time.Second, 5*time.Millisecond)

	// served from cache
	got, err = repo.Fetch(context.Background(), "", "", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 1, db.fetchCount())
}

func TestPostRepositoryFetchRebuildsExpiredFeed(t *testing.T) {
	posts, users := seedPosts(3)
	db := &fakePostDB{posts: posts}
	cache := newFakePostCache()
	cache.feeds["photo"] = posts[:1]
	cache.expired = true
	repo := NewPostRepository(db, cache, users)

	got, err := repo.Fetch(context.Background(), "photo", "", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1, "stale data is served while rebuilding")

	assert.Eventually(t, func() bool {
		cached, _ := cache.cachedFeed("photo")
		return len(cached) == 3
	}, time.Second, 5*time.Millisecond)
}

func TestPostRepositoryFetchNextPageSkipsCache(t *testing.T) {
	posts, users := seedPosts(3)
	db := &fakePostDB{posts: posts}
	cache := newFakePostCache()
	repo := NewPostRepository(db, cache, users)

	got, err := repo.Fetch(context.Background(), "", EncodeCursor(time.Now()), 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, posts[1].User.Name, got[1].User.Name)
	_, cached := cache.cachedFeed("")
	assert.False(t, cached)

	db.err = errors.New("db down")
	_, err = repo.Fetch(context.Background(), "", EncodeCursor(time.Now()), 2)
	assert.EqualError(t, err, "db down")
}

func TestPostRepositoryGetByID(t *testing.T) {
	posts, users := seedPosts(2)
	cache := newFakePostCache()
	repo := NewPostRepository(&fakePostDB{posts: posts}, cache, users)

	got, err := repo.GetByID(context.Background(), posts[1].ID)
	require.NoError(t, err)
	assert.Equal(t, posts[1], got)
	cached, err := cache.GetPost(context.Background(), posts[1].ID)
	require.NoError(t, err)
	assert.Equal(t, posts[1], cached)

	_, err = repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ids, err := repo.FetchIDs(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 15}, ids)
}
