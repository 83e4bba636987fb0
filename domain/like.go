package domain

import (
	"context"
	"fmt"
	"time"
)

// Like is a row of the likes relation
type Like struct {
	PostID    int64
	UserID    string
	CreatedAt time.Time
}

// LikeKey identifies one (user, post) pair
type LikeKey struct {
	UserID string
	PostID int64
}

func (k LikeKey) String() string {
	return fmt.Sprintf("%s:%d", k.UserID, k.PostID)
}

// LikeStateChanges is the net effect of one flush
type LikeStateChanges struct {
	ToAdd    []Like
	ToRemove []Like
}

func (c LikeStateChanges) Empty() bool {
	return len(c.ToAdd) == 0 && len(c.ToRemove) == 0
}

// PendingLikeAction is the durable form of one unflushed like intent.
// Only the latest action per (UserID, PostID) is kept.
type PendingLikeAction struct {
	PostID    int64      `json:"postId"`
	UserID    string     `json:"userId"`
	Action    LikeAction `json:"action"`
	Timestamp int64      `json:"timestamp"` // ms since epoch
}

func (a PendingLikeAction) Key() LikeKey {
	return LikeKey{UserID: a.UserID, PostID: a.PostID}
}

// PostLikeEvent is published on the live update stream.
// OwnUpdate is true for optimistic events raised by this process so that
// subscribers adjusting counts can skip them.
type PostLikeEvent struct {
	PostID    int64 `json:"post_id"`
	IsLiked   bool  `json:"is_liked"`
	Timestamp int64 `json:"timestamp"`
	OwnUpdate bool  `json:"own_update"`
}

// LikeRepository is the remote likes relation
type LikeRepository interface {
	// Exists reports whether userID has a like row for postID.
	Exists(ctx context.Context, userID string, postID int64) (bool, error)

	// CountByPost returns the number of like rows for postID.
	CountByPost(ctx context.Context, postID int64) (int64, error)

	// InsertBatch inserts all likes in one statement.
	// Rows that already exist are ignored, so retrying a batch is safe.
	InsertBatch(ctx context.Context, likes []Like) error

	// Delete removes the like row matching both user and post, if any.
	Delete(ctx context.Context, like Like) error
}

// PendingLikeStore persists the unflushed queue across restarts
type PendingLikeStore interface {
	Load(ctx context.Context) ([]PendingLikeAction, error)
	// Save replaces the stored queue with actions.
	Save(ctx context.Context, actions []PendingLikeAction) error
	Clear(ctx context.Context) error
}

// LikeAggregator coalesces like toggles and flushes them to the LikeRepository
type LikeAggregator interface {
	QueueLike(userID string, postID int64, liked bool)
	IsPostLikedByUser(ctx context.Context, userID string, postID int64) bool
	GetLikeCount(ctx context.Context, postID int64) int64
	Flush(ctx context.Context) error

	// Subscribe registers a new listener on the live update stream.
	// The returned func unsubscribes and closes the channel.
	Subscribe(buffer int) (<-chan PostLikeEvent, func())

	HasPending(userID string, postID int64) bool
	// ObserveExternal feeds a change seen on the change feed into the stream.
	// It returns false when the change was suppressed.
	ObserveExternal(change LikeChange) bool
}
