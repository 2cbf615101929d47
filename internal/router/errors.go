package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "storefront/internal/errors"
)

// HTTPErrorHandler renders every error in the response envelope. Domain errors
// go through MapErrorToHTTP; framework errors keep their status.
func HTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var resp *apperrors.HTTPError
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg, ok := he.Message.(string)
			if !ok {
				msg = fmt.Sprint(he.Message)
			}
			resp = apperrors.NewHTTPError(he.Code, msg, statusCode(he.Code))
		} else {
			resp = apperrors.MapErrorToHTTP(err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("path", c.Request().URL.Path),
				slog.String("error", err.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.StatusCode)
		} else {
			err = c.JSON(resp.StatusCode, resp.ToErrorResponse())
		}
		if err != nil {
			logger.Error("write error response", slog.String("error", err.Error()))
		}
	}
}

func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
