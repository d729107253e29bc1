package cache

import "errors"

// ErrNotFound indicates no usable cached payload exists for the hash.
var ErrNotFound = errors.New("cache entry not found")
