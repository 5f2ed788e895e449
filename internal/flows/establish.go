package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/storegate/internal/api"
	"github.com/MrEthical07/storegate/session"
)

// EstablishFailureKind classifies why a payload did not yield a session.
type EstablishFailureKind int

const (
	EstablishFailureNone EstablishFailureKind = iota
	// EstablishFailureBackend: the backend call failed; Err is the client error.
	EstablishFailureBackend
	// EstablishFailureNoTokens: the payload carried no token pair.
	EstablishFailureNoTokens
	// EstablishFailureInvalidUser: the user object is malformed or its role
	// is not recognized.
	EstablishFailureInvalidUser
)

var errNoTokens = errors.New("response carried no token pair")

// EstablishResult is the validated record, ready to commit.
type EstablishResult struct {
	Failure EstablishFailureKind
	Err     error
	Record  session.Record
	Message string
}

// RunEstablish turns an auth payload into a complete record. Nothing is
// persisted.
func RunEstablish(payload *api.AuthPayload, normalize NormalizeUser) EstablishResult {
	if payload == nil || !payload.HasTokens() {
		return EstablishResult{Failure: EstablishFailureNoTokens, Err: errNoTokens}
	}
	user, err := normalize(payload.User)
	if err != nil {
		return EstablishResult{Failure: EstablishFailureInvalidUser, Err: err}
	}
	return EstablishResult{
		Record: session.Record{
			AccessToken:  payload.AccessToken,
			RefreshToken: payload.RefreshToken,
			User:         user,
		},
		Message: payload.Message,
	}
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Backend   Backend
	Normalize NormalizeUser
}

// RunLogin exchanges credentials for a validated record.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) EstablishResult {
	payload, err := deps.Backend.Login(ctx, email, password)
	if err != nil {
		return EstablishResult{Failure: EstablishFailureBackend, Err: err}
	}
	return RunEstablish(payload, deps.Normalize)
}
