package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Load when nothing is stored.
	ErrNotFound = errors.New("session record not found")
	// ErrCorrupt is returned by Load when the stored record is unreadable or
	// only some of its slots are present.
	ErrCorrupt = errors.New("session record corrupt")
	// ErrIncomplete is returned by Save for a record with an empty slot.
	ErrIncomplete = errors.New("session record incomplete")
	// ErrUnavailable wraps backend failures (filesystem, Redis).
	ErrUnavailable = errors.New("session store unavailable")
)

// Record is the persisted credential triple. User holds the user record as
// JSON; its shape is the manager's business.
type Record struct {
	AccessToken  string
	RefreshToken string
	User         []byte
}

// Complete reports whether every slot is filled.
func (r Record) Complete() bool {
	return r.AccessToken != "" && r.RefreshToken != "" && len(r.User) > 0
}

// Empty reports whether every slot is empty.
func (r Record) Empty() bool {
	return r.AccessToken == "" && r.RefreshToken == "" && len(r.User) == 0
}

// check maps a loaded record to the Load contract.
func (r Record) check() (Record, error) {
	switch {
	case r.Complete():
		return r, nil
	case r.Empty():
		return Record{}, ErrNotFound
	default:
		return Record{}, ErrCorrupt
	}
}

// Store persists a single Record.
//
// Load returns ErrNotFound when nothing is stored and ErrCorrupt when the
// stored data cannot be trusted. Clear is idempotent.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}
