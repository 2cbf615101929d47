package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("User already exists")
	// ErrMissingFields is returned when a required registration or login field is empty.
	ErrMissingFields = errors.New("All fields are required")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("Login failed")
	// ErrTokenInvalid is returned for tokens with a bad signature or shape.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for correctly signed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnauthorized is returned when a route requires a principal and none is attached.
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrForbidden is returned when the principal's role is not permitted.
	ErrForbidden = errors.New("Forbidden")
	// ErrUpstreamIdentity is returned when the external identity provider fails.
	ErrUpstreamIdentity = errors.New("external identity provider failure")

	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("User not found")
	// ErrProductNotFound is returned when a product is not found.
	ErrProductNotFound = errors.New("Product not found")
	// ErrDuplicateProductCode is returned when a product code is already in use.
	ErrDuplicateProductCode = errors.New("Product code already exists")
	// ErrCartNotFound is returned when a cart is not found.
	ErrCartNotFound = errors.New("Cart not found")
	// ErrProductNotInCart is returned when removing or updating a product the cart does not hold.
	ErrProductNotInCart = errors.New("Product not in cart")
	// ErrInvalidQuantity is returned when a cart quantity is below one.
	ErrInvalidQuantity = errors.New("Quantity must be at least 1")
	// ErrInvalidRole is returned when an administrator assigns an unknown role.
	ErrInvalidRole = errors.New("Role must be user or admin")
	// ErrInvalidID is returned for malformed path identifiers.
	ErrInvalidID = errors.New("invalid id")
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrorResponse is the error side of the response envelope.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  e.Message,
		Code:   e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Anything unrecognised becomes
// a 500 with a generic message so storage details never reach the client.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		return NewHTTPError(http.StatusBadRequest, ErrDuplicateEmail.Error(), "DUPLICATE_EMAIL")
	case errors.Is(err, ErrMissingFields):
		return NewHTTPError(http.StatusBadRequest, ErrMissingFields.Error(), "MISSING_FIELDS")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthorized.Error(), "UNAUTHORIZED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrUpstreamIdentity):
		return NewHTTPError(http.StatusBadGateway, ErrUpstreamIdentity.Error(), "UPSTREAM_IDENTITY_FAILURE")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrProductNotFound):
		return NewHTTPError(http.StatusNotFound, ErrProductNotFound.Error(), "PRODUCT_NOT_FOUND")
	case errors.Is(err, ErrDuplicateProductCode):
		return NewHTTPError(http.StatusBadRequest, ErrDuplicateProductCode.Error(), "DUPLICATE_PRODUCT_CODE")
	case errors.Is(err, ErrCartNotFound):
		return NewHTTPError(http.StatusNotFound, ErrCartNotFound.Error(), "CART_NOT_FOUND")
	case errors.Is(err, ErrProductNotInCart):
		return NewHTTPError(http.StatusNotFound, ErrProductNotInCart.Error(), "PRODUCT_NOT_IN_CART")
	case errors.Is(err, ErrInvalidQuantity):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidQuantity.Error(), "INVALID_QUANTITY")
	case errors.Is(err, ErrInvalidRole):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidRole.Error(), "INVALID_ROLE")
	case errors.Is(err, ErrInvalidID):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidID.Error(), "INVALID_ID")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
