package domain

import (
	"context"
	"fmt"
	"time"
)

// Post is representing a shared creative work
type Post struct {
	ID        int64     // Unique identifier for the post
	Title     string    // Post title
	Category  string    // Category the work is shared under
	ImageURL  string    // Hosted image location
	User      User      // Author information
	UpdatedAt time.Time // Last update timestamp
	CreatedAt time.Time // Creation timestamp
	Likes     int64     // Number of likes, filled by the ranking pass
	Comments  int64     // Number of comments, filled by the ranking pass
}

// PostMetrics are the engagement signals of one post for a single ranking pass
type PostMetrics struct {
	PostID           int64
	LikeCount        int64
	CommentCount     int64
	AuthorEngagement float64
	CreatedAt        int64 // ms since epoch
}

// ScoredPost is one entry of a ranked feed
type ScoredPost struct {
	Post    Post
	Metrics PostMetrics
	Score   float64
}

type SortMode string

const (
	SortRecent      SortMode = "recent"
	SortRandom      SortMode = "random"
	SortMostLiked   SortMode = "most_liked"
	SortRecommended SortMode = "recommended"
)

// ParseSortMode maps a query value to a SortMode, empty means SortRecent
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case "":
		return SortRecent, nil
	case SortRecent, SortRandom, SortMostLiked, SortRecommended:
		return SortMode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown sort mode %q", ErrBadParamInput, s)
	}
}

// PostDBRepository is the relational side of post persistence
type PostDBRepository interface {
	// Fetch retrieves a page of posts, newest first.
	// category: empty string means every category.
	// cursor: opaque value returned with the previous page, empty for the first page.
	Fetch(ctx context.Context, category string, cursor string, num int64) ([]Post, error)

	// GetByID retrieves a single post by its ID.
	// Returns ErrNotFound if the post doesn't exist.
	GetByID(ctx context.Context, id int64) (Post, error)

	GetByIDs(ctx context.Context, ids []int64) ([]Post, error)

	// FetchIDs walks post ids in ascending order, starting after cursor.
	FetchIDs(ctx context.Context, cursor, limit int64) ([]int64, error)
}

// PostRepository coordinates the post cache and the relational store
type PostRepository interface {
	Fetch(ctx context.Context, category string, cursor string, num int64) ([]Post, error)
	GetByID(ctx context.Context, id int64) (Post, error)
	FetchIDs(ctx context.Context, cursor, limit int64) ([]int64, error)
}

type PostCache interface {
	// GetFeed returns the cached first page of a category and whether it is logically expired.
	// Returns ErrCacheMiss when nothing is cached.
	GetFeed(ctx context.Context, category string) ([]Post, bool, error)
	SetFeed(ctx context.Context, category string, posts []Post, ttl time.Duration) error
	GetPost(ctx context.Context, id int64) (Post, error)
	SetPost(ctx context.Context, p *Post) error
	DeleteFeed(ctx context.Context, category string) error
}

type FeedUsecase interface {
	// Fetch loads a page of candidate posts and orders it by mode.
	Fetch(ctx context.Context, category string, cursor string, num int64, mode SortMode) ([]ScoredPost, string, error)
	Rank(ctx context.Context, posts []Post, mode SortMode) ([]ScoredPost, error)
	InitBloomFilter(ctx context.Context) error
}
