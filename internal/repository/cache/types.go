package cache

import "time"

// DataWithLogicalExpire wraps a cached value with an expiry that is checked by
// the reader instead of redis, so stale data can be served while it is rebuilt.
type DataWithLogicalExpire[T any] struct {
	Data      T         `json:"data"`
	ExpireAt  time.Time `json:"expire_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *DataWithLogicalExpire[T]) IsLogicalExpired() bool {
	return time.Now().After(d.ExpireAt)
}

func NewDataWithLogicalExpire[T any](data T, ttl time.Duration) *DataWithLogicalExpire[T] {
	now := time.Now()
	return &DataWithLogicalExpire[T]{
		Data:      data,
		ExpireAt:  now.Add(ttl),
		CreatedAt: now,
	}
}
