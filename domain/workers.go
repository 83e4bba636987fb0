package domain

import (
	"context"
	"fmt"
)

type LikeAction int8

const (
	ActionLike   LikeAction = 1
	ActionUnlike LikeAction = -1
)

func LikeActionOf(liked bool) LikeAction {
	if liked {
		return ActionLike
	}
	return ActionUnlike
}

func (l LikeAction) String() string {
	switch l {
	case ActionLike:
		return "LIKE"
	case ActionUnlike:
		return "UNLIKE"
	default:
		return "UNKNOWN"
	}
}

func (l LikeAction) Liked() bool {
	return l == ActionLike
}

func (l LikeAction) MarshalText() ([]byte, error) {
	switch l {
	case ActionLike, ActionUnlike:
		return []byte(l.String()), nil
	default:
		return nil, fmt.Errorf("unsupported like action: %d", int8(l))
	}
}

func (l *LikeAction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "LIKE":
		*l = ActionLike
	case "UNLIKE":
		*l = ActionUnlike
	default:
		return fmt.Errorf("unsupported like action: %q", text)
	}
	return nil
}

// LikeFlusher drives Flush of a LikeAggregator in the background
type LikeFlusher interface {
	Start(ctx context.Context)

	// Trigger asks for a flush as soon as possible without waiting for the next tick.
	Trigger()
}

// ChangeListener keeps a ChangeFeed connected for the process lifetime
type ChangeListener interface {
	Start(ctx context.Context)
}
