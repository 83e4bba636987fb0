package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("your requested Item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("your Item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given Param is not valid")
	// ErrForbidden will throw if the caller does not own the item
	ErrForbidden = errors.New("you are not allowed to do this")
	// ErrCacheMiss will throw if the requested key is not cached
	ErrCacheMiss = errors.New("cache miss")

	// ErrMalformedChange marks a change-feed payload that does not match the likes row schema
	ErrMalformedChange = errors.New("malformed like change")
	// ErrFeedClosed is returned by a change feed whose underlying subscription went away
	ErrFeedClosed = errors.New("change feed closed")
	// ErrFlushDeferred is returned by a flush skipped while a retry backoff is in effect
	ErrFlushDeferred = errors.New("flush deferred by retry backoff")
)
