package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/auth"
	apperrors "storefront/internal/errors"
	"storefront/internal/service"
)

// ViewHandler serves the browser pages.
type ViewHandler struct {
	products      service.ProductService
	carts         service.CartService
	githubEnabled bool
}

// NewViewHandler constructs a ViewHandler.
func NewViewHandler(products service.ProductService, carts service.CartService, githubEnabled bool) *ViewHandler {
	return &ViewHandler{products: products, carts: carts, githubEnabled: githubEnabled}
}

func (h *ViewHandler) page(c echo.Context, extra echo.Map) echo.Map {
	data := echo.Map{"Principal": auth.CurrentPrincipal(c)}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// Home sends visitors to the catalog or to the login page.
func (h *ViewHandler) Home(c echo.Context) error {
	if auth.CurrentPrincipal(c) != nil {
		return c.Redirect(http.StatusFound, "/products")
	}
	return c.Redirect(http.StatusFound, "/login")
}

func (h *ViewHandler) Login(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", h.page(c, echo.Map{
		"Error":         c.QueryParam("error"),
		"GitHubEnabled": h.githubEnabled,
	}))
}

func (h *ViewHandler) Register(c echo.Context) error {
	return c.Render(http.StatusOK, "register.html", h.page(c, echo.Map{
		"Error": c.QueryParam("error"),
	}))
}

func (h *ViewHandler) Current(c echo.Context) error {
	return c.Render(http.StatusOK, "current.html", h.page(c, nil))
}

func (h *ViewHandler) Products(c echo.Context) error {
	query, err := parseProductQuery(c)
	if err != nil {
		return err
	}
	page, err := h.products.ListProducts(c.Request().Context(), query)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "products.html", h.page(c, echo.Map{
		"Page": newProductPageResponse(c.Request().URL, page),
	}))
}

func (h *ViewHandler) Cart(c echo.Context) error {
	cartID, err := parseUUIDParam(c, "cid", apperrors.ErrCartNotFound)
	if err == nil {
		resp, findErr := h.carts.GetCart(c.Request().Context(), cartID)
		if findErr == nil {
			return c.Render(http.StatusOK, "cart.html", h.page(c, echo.Map{
				"Cart":  resp,
				"Total": resp.Total(),
			}))
		}
		err = findErr
	}
	if errors.Is(err, apperrors.ErrCartNotFound) {
		return c.String(http.StatusNotFound, apperrors.ErrCartNotFound.Error())
	}
	return err
}
