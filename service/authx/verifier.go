package authx

import (
	"context"
	"errors"
)

// Identity is the decoded principal behind a bearer token.
type Identity struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
}

// Verifier turns a bearer token into a verified identity. Implementations
// must be safe for concurrent use and must not cache; every call stands on
// its own. The caller decides whether to retry.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

var (
	ErrTokenMissing    = errors.New("authx: token missing")
	ErrTokenInvalid    = errors.New("authx: token invalid or expired")
	ErrAuthUnavailable = errors.New("authx: auth service unavailable")
)

// IsAdmissionError reports whether err should terminate the connection at
// admission time. A hung or unreachable auth service counts the same as a
// bad token: no connection is admitted without a positive verification.
func IsAdmissionError(err error) bool {
	return errors.Is(err, ErrTokenMissing) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrAuthUnavailable)
}
