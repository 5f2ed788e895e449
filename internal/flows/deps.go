package flows

import (
	"context"

	"github.com/MrEthical07/storegate/internal/api"
)

// Backend is the subset of the REST client the flows call.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.AuthPayload, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

// NormalizeUser validates a raw user object and returns its canonical
// encoding. The root package supplies it so flows stay free of the user model.
type NormalizeUser func(raw []byte) ([]byte, error)
