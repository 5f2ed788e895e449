package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/storegate"
)

// Refresher exchanges a refresh token for a new access token.
// storegate.BackendRefresher is the production implementation.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (storegate.TokenPair, error)
}

// refreshCoordinator collapses concurrent refreshes of the same token into
// one backend call and reuses a success for a short window.
type refreshCoordinator struct {
	refresher Refresher
	timeout   time.Duration
	window    time.Duration
	group     singleflight.Group
	recent    *cache.Cache
}

func newRefreshCoordinator(r Refresher, timeout, window time.Duration) *refreshCoordinator {
	c := &refreshCoordinator{refresher: r, timeout: timeout, window: window}
	if window > 0 {
		c.recent = cache.New(window, 2*window)
	}
	return c
}

// refresh returns the pair for token. shared reports that the result came
// from another caller's exchange.
func (c *refreshCoordinator) refresh(ctx context.Context, token string) (pair storegate.TokenPair, shared bool, err error) {
	key := tokenKey(token)
	if c.recent != nil {
		if v, ok := c.recent.Get(key); ok {
			return v.(storegate.TokenPair), true, nil
		}
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// the exchange outlives a caller that gives up
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		pair, err := c.refresher.Refresh(ctx, token)
		if err != nil {
			return nil, err
		}
		if c.recent != nil {
			c.recent.Set(key, pair, c.window)
		}
		return pair, nil
	})
	if err != nil {
		return storegate.TokenPair{}, shared, err
	}
	return v.(storegate.TokenPair), shared, nil
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
