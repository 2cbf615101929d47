package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "storefront/internal/errors"
)

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = 24 * time.Hour

// Claims is the signed token body: every principal field plus the registered
// claims (exp, iat).
type Claims struct {
	Principal
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens. It holds only the
// read-only secret, so it is safe for concurrent use. Changing the secret
// invalidates every outstanding token.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service signing with secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
}

// WithClock returns a copy of s that reads time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *s
	cp.now = now
	return &cp
}

// Issue signs a token for p that expires TokenTTL from now.
func (s *TokenService) Issue(p Principal) (string, error) {
	now := s.now()
	claims := &Claims{
		Principal: p,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, then the expiry, and returns the embedded
// principal. Failures are ErrTokenInvalid or ErrTokenExpired; no partial
// principal is ever returned.
func (s *TokenService) Verify(tokenString string) (*Principal, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		// A bad signature outranks expiry.
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, apperrors.ErrTokenInvalid
	}
	if claims.Principal.ID == "" || len(claims.Principal.Role) == 0 {
		return nil, fmt.Errorf("%w: missing principal claims", apperrors.ErrTokenInvalid)
	}

	p := claims.Principal
	return &p, nil
}
