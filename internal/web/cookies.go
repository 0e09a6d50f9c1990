package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/communication-ltd/portal/internal/session"
)

// cookieClaims is what the browser actually holds: the opaque session
// ID, signed. The backend bearer token never leaves the server.
type cookieClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// cookieCodec signs and verifies the session cookie.
type cookieCodec struct {
	name   string
	secret []byte
	secure bool
}

func newCookieCodec(name string, secret []byte, secure bool) *cookieCodec {
	return &cookieCodec{name: name, secret: secret, secure: secure}
}

// Set writes the session cookie. Remember-me sessions persist across
// browser restarts; others are session cookies.
func (c *cookieCodec) Set(w http.ResponseWriter, s *session.Session) error {
	claims := &cookieClaims{
		SessionID: s.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "communication-ltd-portal",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return fmt.Errorf("sign session cookie: %w", err)
	}

	cookie := &http.Cookie{
		Name:     c.name,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.RememberMe {
		cookie.Expires = s.ExpiresAt
	}
	http.SetCookie(w, cookie)
	return nil
}

// Clear expires the session cookie.
func (c *cookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read extracts and verifies the session ID from the request, or
// returns empty when there is no usable cookie.
func (c *cookieCodec) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return ""
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &cookieClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	claims, ok := token.Claims.(*cookieClaims)
	if !ok {
		return ""
	}
	return claims.SessionID
}
