package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/storegate/session"
)

// RehydrateOutcome is the state a persisted record resolves to.
type RehydrateOutcome int

const (
	// RehydrateAbsent: nothing stored.
	RehydrateAbsent RehydrateOutcome = iota
	// RehydrateRestored: a complete, valid record was loaded.
	RehydrateRestored
	// RehydrateCorrupt: the record is unreadable, partial, or its user
	// record does not validate. The caller must clear it.
	RehydrateCorrupt
	// RehydrateUnavailable: the store itself failed; nothing is known.
	RehydrateUnavailable
)

// RehydrateDeps captures rehydrate flow dependencies.
type RehydrateDeps struct {
	Store     session.Store
	Normalize NormalizeUser
}

// RehydrateResult carries the normalized record.
type RehydrateResult struct {
	Outcome RehydrateOutcome
	Record  session.Record
	Err     error
}

// RunRehydrate loads and validates the persisted record.
func RunRehydrate(ctx context.Context, deps RehydrateDeps) RehydrateResult {
	rec, err := deps.Store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return RehydrateResult{Outcome: RehydrateAbsent}
	case errors.Is(err, session.ErrCorrupt):
		return RehydrateResult{Outcome: RehydrateCorrupt, Err: err}
	case err != nil:
		return RehydrateResult{Outcome: RehydrateUnavailable, Err: err}
	}

	user, err := deps.Normalize(rec.User)
	if err != nil {
		return RehydrateResult{Outcome: RehydrateCorrupt, Err: fmt.Errorf("%w: user record: %v", session.ErrCorrupt, err)}
	}
	rec.User = user
	return RehydrateResult{Outcome: RehydrateRestored, Record: rec}
}
