package session

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims are display-only fields parsed from the stored bearer token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims parses the stored token as an unverified JWT for display
// purposes. Parsing never affects validity: the token stays in use until
// the backend rejects it. Returns false when anonymous or when the token
// is not a JWT.
func (m *Manager) Claims() (Claims, bool) {
	token := m.Token()
	if token == "" {
		return Claims{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, false
	}
	var c Claims
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		c.Subject = sub
	}
	if iat, err := parsed.Claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, true
}
