package domain

import "context"

type BloomRepository interface {
	// Add puts the post id into the filter
	Add(ctx context.Context, id int64) error

	// Exists reports whether the id may exist.
	// true: maybe (look it up in cache/db)
	// false: definitely absent
	Exists(ctx context.Context, id int64) (bool, error)

	BulkAdd(ctx context.Context, ids []int64) error
}
