// Package session owns the authenticated session lifecycle: login, register,
// logout, persisted session state and expiry-driven single-flight token
// refresh.
package session

import (
	"context"

	"github.com/DonShan/GeoTask/pkg/codec"
)

// User is the authenticated account attached to a session.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Session bundles the user, its token pair and device metadata. It is
// persisted as one codec-encoded blob under a single storage key; the
// manager is the sole writer of that key.
type Session struct {
	User        User            `json:"user"`
	Token       Token           `json:"token"`
	LastLoginAt codec.Timestamp `json:"last_login_at"`
	DeviceID    string          `json:"device_id"`
}

// State is the observable projection of "is there a current session and is
// its token valid".
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateAuthenticated
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// Credentials are the login inputs.
type Credentials struct {
	Email    string
	Password string
}

// Registration are the account-creation inputs.
type Registration struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// AuthAPI is the remote surface the manager drives. Implemented by the api
// package; faked in tests.
type AuthAPI interface {
	Login(ctx context.Context, creds Credentials) (User, Token, error)
	Register(ctx context.Context, reg Registration) (User, Token, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context, refreshToken string) (Token, error)
}
