package domain

import (
	"context"
	"time"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeDelete ChangeType = "DELETE"
)

// LikeChange is an insert or delete observed on the likes relation
type LikeChange struct {
	Type   ChangeType
	UserID string
	PostID int64
	// Origin is the instance id of the writer, empty when the source cannot tell.
	Origin          string
	CommitTimestamp time.Time
}

func (c LikeChange) Key() LikeKey {
	return LikeKey{UserID: c.UserID, PostID: c.PostID}
}

func (c LikeChange) Liked() bool {
	return c.Type == ChangeInsert
}

// ChangeFeed delivers changes of the likes relation
type ChangeFeed interface {
	// Listen blocks and calls handle for every decoded change until ctx is done
	// or the connection fails.
	Listen(ctx context.Context, handle func(LikeChange)) error
}

// ChangePublisher announces changes applied by this instance
type ChangePublisher interface {
	Publish(ctx context.Context, changes []LikeChange) error
}
