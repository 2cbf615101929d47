package auth

import (
	"errors"
	"log/slog"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apperrors "storefront/internal/errors"
)

// principalKey is the echo context key the session middleware stores the
// verified principal under.
const principalKey = "principal"

var errNoSessionCookie = errors.New("no session cookie")

// SessionMiddleware resolves the session cookie into an optional Principal.
// It never rejects a request: missing or failing tokens leave the request
// anonymous, and a present token that fails verification also clears the
// cookie. Authorization is left to the per-route policy gates.
func SessionMiddleware(tokens *TokenService, cookie *SessionCookie, logger *slog.Logger) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: principalKey,
		TokenLookupFuncs: []middleware.ValuesExtractor{
			func(c echo.Context) ([]string, error) {
				values := cookie.Values(c.Request())
				if len(values) == 0 {
					return nil, errNoSessionCookie
				}
				return values, nil
			},
		},
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			token, err := cookie.Open(raw)
			if err != nil {
				return nil, err
			}
			return tokens.Verify(token)
		},
		SuccessHandler: func(c echo.Context) {
			p, ok := c.Get(principalKey).(*Principal)
			if !ok {
				return
			}
			req := c.Request()
			c.SetRequest(req.WithContext(WithPrincipal(req.Context(), p)))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if errors.Is(err, apperrors.ErrTokenInvalid) || errors.Is(err, apperrors.ErrTokenExpired) {
				logger.Debug("session token rejected",
					slog.String("path", c.Request().URL.Path),
					slog.Bool("expired", errors.Is(err, apperrors.ErrTokenExpired)),
				)
				cookie.Clear(c)
			}
			return nil
		},
		ContinueOnIgnoredError: true,
	})
}
