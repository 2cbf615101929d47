package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "storefront/internal/errors"
)

// CookieName is the cookie that carries the session token.
const CookieName = "currentUser"

const signedPrefix = "s:"

// SessionCookie writes, clears, and reads the session cookie. Values are
// signed as "s:<token>.<mac>" with HMAC-SHA256 over the token and an unpadded
// base64 mac. Unsigned values are still accepted on read.
type SessionCookie struct {
	secret []byte
	secure bool
}

// NewSessionCookie creates a cookie codec keyed by secret. When secure is set
// the cookie is only sent over TLS.
func NewSessionCookie(secret string, secure bool) *SessionCookie {
	return &SessionCookie{secret: []byte(secret), secure: secure}
}

// Sign returns the signed cookie value for token.
func (s *SessionCookie) Sign(token string) string {
	return signedPrefix + token + "." + s.mac(token)
}

// Open returns the token inside a raw cookie value. Signed values must carry a
// valid mac; anything else is returned unchanged for token verification.
func (s *SessionCookie) Open(raw string) (string, error) {
	if !strings.HasPrefix(raw, signedPrefix) {
		return raw, nil
	}
	body := strings.TrimPrefix(raw, signedPrefix)
	idx := strings.LastIndexByte(body, '.')
	if idx < 0 {
		return "", apperrors.ErrTokenInvalid
	}
	token, mac := body[:idx], body[idx+1:]
	if !hmac.Equal([]byte(mac), []byte(s.mac(token))) {
		return "", apperrors.ErrTokenInvalid
	}
	return token, nil
}

// Values returns the session cookie values to try on r. When a signed value
// is present it is the only candidate.
func (s *SessionCookie) Values(r *http.Request) []string {
	var plain []string
	for _, c := range r.Cookies() {
		if c.Name != CookieName || c.Value == "" {
			continue
		}
		if strings.HasPrefix(c.Value, signedPrefix) {
			return []string{c.Value}
		}
		plain = append(plain, c.Value)
	}
	return plain
}

// Write sets the signed session cookie for token.
func (s *SessionCookie) Write(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    s.Sign(token),
		Path:     "/",
		MaxAge:   int(TokenTTL / time.Second),
		Expires:  time.Now().Add(TokenTTL),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie. Clearing an absent cookie is harmless.
func (s *SessionCookie) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *SessionCookie) mac(value string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(value))
	return base64.RawStdEncoding.EncodeToString(h.Sum(nil))
}
