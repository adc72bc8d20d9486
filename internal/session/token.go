package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/DonShan/GeoTask/pkg/codec"
)

// RefreshThreshold is how long before expiry a token is considered
// "expiring soon" and a background refresh is warranted.
const RefreshThreshold = 5 * time.Minute

// Token is one access/refresh token pair. Tokens are immutable: every login
// or refresh replaces the whole value.
type Token struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    codec.Timestamp `json:"expires_at"`
	TokenType    string          `json:"token_type"`
}

// IsExpired reports whether the access token's lifetime has elapsed.
func (t Token) IsExpired() bool {
	return t.isExpiredAt(time.Now())
}

// IsExpiringSoon reports whether the token expires within RefreshThreshold
// (and has not expired yet).
func (t Token) IsExpiringSoon() bool {
	return t.isExpiringSoonAt(time.Now())
}

func (t Token) isExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt.Time)
}

func (t Token) isExpiringSoonAt(now time.Time) bool {
	return !t.isExpiredAt(now) && !now.Before(t.ExpiresAt.Add(-RefreshThreshold))
}

// header returns the Authorization header value for this token. TokenType
// defaults to Bearer when the server omits it.
func (t Token) header() string {
	if t.AccessToken == "" {
		return ""
	}
	typ := t.TokenType
	if typ == "" {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

// ExpiryFromJWT derives the expiry instant from the access token's `exp`
// claim for servers that omit an explicit expires_at field. The signature is
// not verified; the client only needs the claim, the server enforces it.
func ExpiryFromJWT(accessToken string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("access token has no exp claim")
	}
	return exp.Time, nil
}
