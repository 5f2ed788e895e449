package storegate

import (
	"context"
	"net/http"

	"github.com/MrEthical07/storegate/internal/api"
	"github.com/MrEthical07/storegate/internal/flows"
	"github.com/MrEthical07/storegate/session"
)

// BackendRefresher performs the edge gate's refresh exchange against the
// backend's refresh endpoint. It holds no session state.
type BackendRefresher struct {
	client *api.Client
}

// NewBackendRefresher builds a refresher for cfg's backend. httpClient may be
// nil.
func NewBackendRefresher(cfg Config, httpClient *http.Client) (*BackendRefresher, error) {
	c, err := api.New(api.Config{
		BaseURL:    cfg.BackendURL,
		Timeout:    cfg.RequestTimeout,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return &BackendRefresher{client: c}, nil
}

// Refresh exchanges refreshToken. Errors are classified like the manager's.
func (r *BackendRefresher) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	const op = "gate_refresh"
	res := flows.RunRefresh(ctx, session.Record{RefreshToken: refreshToken}, flows.RefreshDeps{Backend: r.client})
	switch res.Failure {
	case flows.RefreshFailureNone:
		pair := TokenPair{AccessToken: res.Record.AccessToken}
		if res.Rotated {
			pair.RefreshToken = res.Record.RefreshToken
		}
		return pair, nil
	case flows.RefreshFailureMissingToken:
		return TokenPair{}, newError(op, KindAuthentication, msgSessionExpired, res.Err)
	default:
		return TokenPair{}, classify(op, res.Err)
	}
}
