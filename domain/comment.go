package domain

import (
	"context"
	"time"
)

// Comment domain model
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	ParentID  int64     `json:"parent_id"`
	RootID    int64     `json:"root_id"`
	CreatedAt time.Time `json:"created_at"`

	// User is the comment author
	User *User `json:"user,omitempty"`
	// Replies of a root comment
	Replies []*Comment `json:"replies,omitempty"`
}

type CommentUsecase interface {
	Create(ctx context.Context, c *Comment) error
	Delete(ctx context.Context, id int64, userID string) error
	FetchByPost(ctx context.Context, postID int64, cursor string, limit int64) ([]*Comment, string, error)
}

type CommentRepository interface {
	Store(ctx context.Context, c *Comment) error
	Delete(ctx context.Context, id int64, userID string) error
	GetByID(ctx context.Context, id int64) (*Comment, error)
	// FetchRoots returns top level comments of a post
	FetchRoots(ctx context.Context, postID int64, cursor string, limit int64) ([]*Comment, error)
	// FetchReplies returns every reply below the given root comments
	FetchReplies(ctx context.Context, rootIDs []int64) ([]*Comment, error)
	// CountByPosts returns the number of comments per post; posts without comments are absent.
	CountByPosts(ctx context.Context, postIDs []int64) (map[int64]int64, error)
}
