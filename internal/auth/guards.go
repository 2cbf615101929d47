package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RedirectAuthenticated sends visitors that already carry a principal to
// target. It guards views such as the login and register pages.
func RedirectAuthenticated(target string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentPrincipal(c) != nil {
				return c.Redirect(http.StatusFound, target)
			}
			return next(c)
		}
	}
}
