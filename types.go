package storegate

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/storegate/permission"
)

// User is the backend's user record as the client keeps it.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	StoreID   string    `json:"storeId,omitempty"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

var (
	errUserMissingID    = errors.New("user record has no id")
	errUserMissingEmail = errors.New("user record has no email")
)

// normalizeUser decodes raw, trims identifiers, lower-cases the email and
// checks the role strictly. It returns the user and its canonical encoding.
func normalizeUser(raw []byte) (*User, []byte, error) {
	if len(raw) == 0 {
		return nil, nil, errors.New("user record missing")
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, nil, err
	}
	u.ID = strings.TrimSpace(u.ID)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.StoreID = strings.TrimSpace(u.StoreID)
	if u.ID == "" {
		return nil, nil, errUserMissingID
	}
	if u.Email == "" {
		return nil, nil, errUserMissingEmail
	}
	if _, err := permission.ParseRole(u.Role); err != nil {
		return nil, nil, err
	}
	canonical, err := json.Marshal(&u)
	if err != nil {
		return nil, nil, err
	}
	return &u, canonical, nil
}

// Session is a point-in-time copy of the manager's state.
//
// IsAuthenticated holds exactly when both tokens are present and the user
// record carries a recognized role.
type Session struct {
	User            *User
	AccessToken     string
	RefreshToken    string
	IsLoading       bool
	IsAuthenticated bool
}

// Role returns the user's role, or "" without a user.
func (s Session) Role() string {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
	StoreID   string
}

// ProfileUpdate lists the profile fields to change; nil means unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Email     *string
}

// SessionInfo describes one of the user's server-side sessions.
type SessionInfo struct {
	ID         string
	Device     string
	IP         string
	CreatedAt  time.Time
	LastSeenAt time.Time
	Current    bool
}

// RegisterResult reports how registration ended. When SignedIn is false the
// account awaits verification and Message carries the backend's instructions.
type RegisterResult struct {
	SignedIn bool
	Message  string
}

// Identity is what the edge gate learned from a verified token. It travels
// in the request context to downstream handlers.
type Identity struct {
	UserID    string
	Email     string
	Role      string
	StoreID   string
	ExpiresAt time.Time
}

// TokenPair is the result of a refresh exchange. RefreshToken is empty when
// the backend kept the old one.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
