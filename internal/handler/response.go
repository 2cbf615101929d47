package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "storefront/internal/errors"
)

// SuccessResponse is the success side of the response envelope.
type SuccessResponse struct {
	Status  string      `json:"status"`
	Payload interface{} `json:"payload"`
}

func respond(c echo.Context, code int, payload interface{}) error {
	return c.JSON(code, SuccessResponse{Status: apperrors.StatusSuccess, Payload: payload})
}

// wantsHTML reports whether the caller is a browser expecting a page rather
// than JSON.
func wantsHTML(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

// redirectWithError sends the browser to path with an error query parameter.
func redirectWithError(c echo.Context, path, message string) error {
	return c.Redirect(http.StatusFound, path+"?error="+url.QueryEscape(message))
}

// bindAndValidate binds the request into req and runs the registered validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func parseUUIDParam(c echo.Context, name string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}
