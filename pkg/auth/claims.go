package auth

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the signed cookie payload. The session id travels as the
// registered jti; everything else about the session lives server-side.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionID returns the jti carried by the cookie.
func (c *SessionClaims) SessionID() string {
	if c == nil {
		return ""
	}
	return c.ID
}
