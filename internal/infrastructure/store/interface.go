package store

import (
	"context"
	"errors"
)

// Keys of the durable client-side entries
const (
	KeyAuthStorage  = "auth-storage"
	KeyCartStorage  = "cart-storage"
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

var ErrEmptyKey = errors.New("storage key is required")

// KV is the durable key-value capability the client state persists through.
// Get reports found=false for a missing key; Remove of a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
