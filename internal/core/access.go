package core

import (
	"context"
	"strings"
)

// Sessions exposes the asserted identity and lets the gate revoke it.
type Sessions interface {
	Current(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

// AccessGate allows identities whose email ends in @Domain.
type AccessGate struct {
	Domain string
}

// Allowed reports whether email belongs to the gate's domain, ignoring case.
func (g AccessGate) Allowed(email string) bool {
	email = strings.TrimSpace(email)
	domain := strings.TrimPrefix(strings.TrimSpace(g.Domain), "@")
	if email == "" || domain == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(domain))
}

// Authorize checks email against the gate.
func (g AccessGate) Authorize(_ context.Context, email string) error {
	if g.Allowed(email) {
		return nil
	}
	return ErrUnauthorized{Email: strings.TrimSpace(email), Domain: strings.TrimPrefix(g.Domain, "@")}
}

// Enforce authorizes the current session and signs it out on deny. It returns
// the authorized email.
func (g AccessGate) Enforce(ctx context.Context, sessions Sessions) (string, error) {
	email, err := sessions.Current(ctx)
	if err != nil {
		return "", err
	}
	if err := g.Authorize(ctx, email); err != nil {
		if email != "" {
			if signOutErr := sessions.SignOut(ctx); signOutErr != nil {
				return "", signOutErr
			}
		}
		return "", err
	}
	return email, nil
}
