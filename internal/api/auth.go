package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// AuthPayload is returned by the endpoints that establish a session. User is
// the backend's user object, kept raw so it can be persisted as received.
type AuthPayload struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         json.RawMessage `json:"user"`
	// Message is the envelope message, e.g. registration instructions.
	Message string `json:"-"`
}

// HasTokens reports whether the payload carries a usable token pair.
func (p *AuthPayload) HasTokens() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// TokenPair is the refresh endpoint's payload. RefreshToken is empty when the
// backend does not rotate it.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RegisterRequest is the sign-up body.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	StoreID   string `json:"storeId,omitempty"`
}

// ProfileRequest is the profile update body. Nil fields are left unchanged.
type ProfileRequest struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// SessionInfo describes one server-side session of the current user.
type SessionInfo struct {
	ID         string    `json:"id"`
	Device     string    `json:"device,omitempty"`
	IP         string    `json:"ip,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt,omitempty"`
	Current    bool      `json:"current,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	var out AuthPayload
	body := map[string]string{"email": email, "password": password}
	msg, err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &out)
	if err != nil {
		return nil, err
	}
	out.Message = msg
	return &out, nil
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthPayload, error) {
	var out AuthPayload
	msg, err := c.do(ctx, http.MethodPost, "/auth/register", "", in, &out)
	if err != nil {
		return nil, err
	}
	out.Message = msg
	return &out, nil
}

// Verify confirms an account with the code from the verification message.
// The backend may answer with a token pair, which signs the user in.
func (c *Client) Verify(ctx context.Context, email, code string) (*AuthPayload, error) {
	var out AuthPayload
	body := map[string]string{"email": email, "code": code}
	msg, err := c.do(ctx, http.MethodPost, "/auth/verify", "", body, &out)
	if err != nil {
		return nil, err
	}
	out.Message = msg
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", accessToken, map[string]string{"refreshToken": refreshToken}, nil)
	return err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var out TokenPair
	if _, err := c.do(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": refreshToken}, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &Error{Status: http.StatusOK, Network: true, Message: "refresh response carried no access token"}
	}
	return &out, nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/password/reset-request", "", map[string]string{"email": email}, nil)
	return err
}

func (c *Client) ResetPassword(ctx context.Context, email, resetToken, newPassword string) (string, error) {
	body := map[string]string{"email": email, "resetToken": resetToken, "newPassword": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/password/reset", "", body, nil)
}

func (c *Client) ChangePassword(ctx context.Context, accessToken, current, next string) (string, error) {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return c.do(ctx, http.MethodPost, "/auth/password/change", accessToken, body, nil)
}

// UpdateProfile returns the updated user object.
func (c *Client) UpdateProfile(ctx context.Context, accessToken string, in ProfileRequest) (json.RawMessage, error) {
	var out struct {
		User json.RawMessage `json:"user"`
	}
	var raw json.RawMessage
	if _, err := c.do(ctx, http.MethodPut, "/auth/profile", accessToken, in, &raw); err != nil {
		return nil, err
	}
	// data is either the user itself or {"user": {...}}
	if err := json.Unmarshal(raw, &out); err == nil && len(out.User) > 0 {
		return out.User, nil
	}
	return raw, nil
}

func (c *Client) LogoutAll(ctx context.Context, accessToken, userID string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout-all/"+url.PathEscape(userID), accessToken, nil, nil)
	return err
}

func (c *Client) ListSessions(ctx context.Context, accessToken string) ([]SessionInfo, error) {
	var out []SessionInfo
	if _, err := c.do(ctx, http.MethodGet, "/auth/sessions", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RevokeSession(ctx context.Context, accessToken, sessionID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/auth/sessions/"+url.PathEscape(sessionID), accessToken, nil, nil)
	return err
}
