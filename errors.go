package storegate

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/storegate/internal/api"
)

// Kind classifies a failed operation.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindAuthentication: bad credentials, missing or rejected tokens.
	KindAuthentication
	// KindAuthorization: the backend refused the action for this role.
	KindAuthorization
	// KindValidation: the backend rejected the input.
	KindValidation
	// KindNetwork: the backend could not be reached or answered unusably.
	KindNetwork
	// KindCorruptState: the persisted session could not be trusted and was cleared.
	KindCorruptState
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindCorruptState:
		return "corrupt_state"
	default:
		return "unknown"
	}
}

var (
	// Kind sentinels; errors.Is(err, ErrNetwork) matches any *Error of that kind.
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("not authorized")
	ErrValidation     = errors.New("validation failed")
	ErrNetwork        = errors.New("backend unreachable")
	ErrCorruptState   = errors.New("persisted session corrupt")

	// ErrOperationPending is returned when another user-triggered operation
	// is still in flight.
	ErrOperationPending = errors.New("another operation is in progress")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("session manager closed")
)

// PasswordResetRequestedMessage is the only answer RequestPasswordReset gives,
// whether or not the address is known.
const PasswordResetRequestedMessage = "If an account exists for that email, a password reset link has been sent."

// Error is a classified operation failure. Message is safe to show to users.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Fields carries per-field validation messages from the backend.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrAuthorization:
		return e.Kind == KindAuthorization
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrCorruptState:
		return e.Kind == KindCorruptState
	}
	return false
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(op string, kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

const networkMessage = "Unable to reach the server. Please try again."

// classify maps a backend client error onto an *Error. Deadline and
// cancellation errors become KindNetwork; anything else not from the backend
// client is returned unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	ae, ok := api.AsError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return newError(op, KindNetwork, networkMessage, err)
		}
		return err
	}

	out := &Error{Op: op, Message: ae.Message, Fields: ae.Fields, Err: err}
	switch {
	case ae.Network:
		out.Kind = KindNetwork
		out.Message = networkMessage
	case ae.Unauthorized():
		out.Kind = KindAuthentication
	case ae.Forbidden():
		out.Kind = KindAuthorization
	default:
		out.Kind = KindValidation
	}
	return out
}
