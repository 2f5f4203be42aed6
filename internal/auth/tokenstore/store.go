// Package tokenstore holds the allow-set of refresh token hashes. A
// refresh token is only exchangeable while its hash is present here;
// logout removes it.
package tokenstore

import (
	"context"
	"time"
)

type Store interface {
	// Add records a token hash, valid for ttl.
	Add(ctx context.Context, tokenHash string, ttl time.Duration) error
	// Has reports whether the token hash is still in the set.
	Has(ctx context.Context, tokenHash string) (bool, error)
	// Remove drops the token hash.
	Remove(ctx context.Context, tokenHash string) error
	// Clear empties the set. Test teardown hook.
	Clear(ctx context.Context) error
}
