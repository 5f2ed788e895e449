package storegate

import (
	"context"
	"strings"

	"github.com/MrEthical07/storegate/internal/audit"
)

// RequestPasswordReset asks the backend to mail a reset link. It answers
// with PasswordResetRequestedMessage whether or not the address is known;
// only a network failure is reported as an error.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	const op = "password_reset_request"
	if err := m.begin(); err != nil {
		return "", err
	}
	defer m.end()

	email = strings.ToLower(strings.TrimSpace(email))
	err := m.callBackend(ctx, func(ctx context.Context) error {
		return m.api.RequestPasswordReset(ctx, email)
	})
	m.metrics.Inc(MetricPasswordResetRequest)
	if err != nil {
		if e := classify(op, err); KindOf(e) == KindNetwork {
			return "", e
		}
		m.log.Debug("password reset request refused by backend")
	}
	return PasswordResetRequestedMessage, nil
}

// ResetPassword sets a new password with the token from the reset email. It
// does not sign the user in.
func (m *Manager) ResetPassword(ctx context.Context, email, resetToken, newPassword string) (string, error) {
	const op = "password_reset"
	if err := m.begin(); err != nil {
		return "", err
	}
	defer m.end()

	email = strings.ToLower(strings.TrimSpace(email))
	resetToken = strings.TrimSpace(resetToken)
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "required"
	}
	if resetToken == "" {
		fields["resetToken"] = "required"
	}
	if newPassword == "" {
		fields["newPassword"] = "required"
	}
	if len(fields) > 0 {
		return "", &Error{Kind: KindValidation, Op: op, Message: "Please fill in the required fields.", Fields: fields}
	}

	var msg string
	err := m.callBackend(ctx, func(ctx context.Context) error {
		var err error
		msg, err = m.api.ResetPassword(ctx, email, resetToken, newPassword)
		return err
	})
	err = classify(op, err)
	m.emitAudit(ctx, audit.EventPasswordReset, nil, err, nil)
	if err != nil {
		return "", err
	}
	m.metrics.Inc(MetricPasswordResetConfirm)
	return messageOr(msg, "Your password has been reset. Please sign in."), nil
}

// ChangePassword changes the signed-in user's password.
func (m *Manager) ChangePassword(ctx context.Context, current, next string) (string, error) {
	const op = "password_change"
	if err := m.begin(); err != nil {
		return "", err
	}
	defer m.end()

	if next == "" {
		return "", &Error{Kind: KindValidation, Op: op, Message: "New password is required.", Fields: map[string]string{"newPassword": "required"}}
	}

	var msg string
	err := m.withBearer(ctx, op, func(ctx context.Context, access string) error {
		var err error
		msg, err = m.api.ChangePassword(ctx, access, current, next)
		return err
	})
	_, user, _ := m.snapshot()
	m.emitAudit(ctx, audit.EventPasswordChange, user, err, nil)
	if err != nil {
		return "", err
	}
	m.metrics.Inc(MetricPasswordChange)
	return messageOr(msg, "Your password has been changed."), nil
}
