package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/storegate/internal/api"
	"github.com/MrEthical07/storegate/session"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	// RefreshFailureMissingToken: there is no refresh token to exchange.
	RefreshFailureMissingToken
	// RefreshFailureRejected: the backend answered and refused the token.
	RefreshFailureRejected
	// RefreshFailureNetwork: the backend could not be reached; the current
	// session stays as it is.
	RefreshFailureNetwork
)

// ErrMissingRefreshToken is the Err of RefreshFailureMissingToken.
var ErrMissingRefreshToken = errors.New("no refresh token")

// RefreshResult carries the updated record or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Record  session.Record
	// Rotated reports that the backend issued a new refresh token.
	Rotated bool
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Backend Backend
}

// RunRefresh exchanges current's refresh token for a new access token. The
// returned record keeps the user and, unless rotated, the refresh token.
func RunRefresh(ctx context.Context, current session.Record, deps RefreshDeps) RefreshResult {
	if current.RefreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissingToken, Err: ErrMissingRefreshToken}
	}

	pair, err := deps.Backend.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if isNetwork(err) {
			return RefreshResult{Failure: RefreshFailureNetwork, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureRejected, Err: err}
	}

	next := current
	next.AccessToken = pair.AccessToken
	rotated := pair.RefreshToken != "" && pair.RefreshToken != current.RefreshToken
	if rotated {
		next.RefreshToken = pair.RefreshToken
	}
	return RefreshResult{Record: next, Rotated: rotated}
}

func isNetwork(err error) bool {
	if e, ok := api.AsError(err); ok {
		return e.Network
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
