package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/service"
)

// CartHandler exposes cart endpoints.
type CartHandler struct {
	service service.CartService
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(s service.CartService) *CartHandler {
	return &CartHandler{service: s}
}

// CartResponse is a cart with its computed total.
type CartResponse struct {
	*model.Cart
	Total decimal.Decimal `json:"total" swaggertype:"number"`
}

// QuantityRequest carries a product quantity.
type QuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// CartLineRequest is one product line of a cart replacement.
type CartLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

// ReplaceCartRequest replaces every product in a cart.
type ReplaceCartRequest struct {
	Products []CartLineRequest `json:"products" validate:"dive"`
}

func newCartResponse(cart *model.Cart) CartResponse {
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	return CartResponse{Cart: cart, Total: cart.Total()}
}

// CreateCart godoc
// @Summary Create an empty cart
// @Tags carts
// @Produce json
// @Success 201 {object} SuccessResponse{payload=CartResponse}
// @Failure 401 {object} errors.ErrorResponse
// @Router /carts [post]
func (h *CartHandler) CreateCart(c echo.Context) error {
	cart, err := h.service.CreateCart(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, newCartResponse(cart))
}

// GetCart godoc
// @Summary Get a cart
// @Tags carts
// @Produce json
// @Param cid path string true "Cart ID"
// @Success 200 {object} SuccessResponse{payload=CartResponse}
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /carts/{cid} [get]
func (h *CartHandler) GetCart(c echo.Context) error {
	cartID, err := parseUUIDParam(c, "cid", apperrors.ErrCartNotFound)
	if err != nil {
		return err
	}
	cart, err := h.service.GetCart(c.Request().Context(), cartID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newCartResponse(cart))
}

// AddProduct godoc
// @Summary Add a product to a cart
// @Description Increments the quantity when the product is already in the cart. Quantity defaults to 1.
// @Tags carts
// @Accept json
// @Produce json
// @Param cid path string true "Cart ID"
// @Param pid path string true "Product ID"
// @Param request body QuantityRequest false "Quantity"
// @Success 200 {object} SuccessResponse{payload=CartResponse}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /carts/{cid}/products/{pid} [post]
func (h *CartHandler) AddProduct(c echo.Context) error {
	cartID, productID, err := cartProductParams(c)
	if err != nil {
		return err
	}
	var req QuantityRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.service.AddProduct(c.Request().Context(), cartID, productID, quantity)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newCartResponse(cart))
}

// SetQuantity godoc
// @Summary Set a product's quantity in a cart
// @Tags carts
// @Accept json
// @Produce json
// @Param cid path string true "Cart ID"
// @Param pid path string true "Product ID"
// @Param request body QuantityRequest true "Quantity"
// @Success 200 {object} SuccessResponse{payload=CartResponse}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /carts/{cid}/products/{pid} [put]
func (h *CartHandler) SetQuantity(c echo.Context) error {
	cartID, productID, err := cartProductParams(c)
	if err != nil {
		return err
	}
	var req QuantityRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Quantity == nil {
		return apperrors.ErrInvalidQuantity
	}

	cart, err := h.service.SetQuantity(c.Request().Context(), cartID, productID, *req.Quantity)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newCartResponse(cart))
}

// RemoveProduct godoc
// @Summary Remove a product from a cart
// @Tags carts
// @Produce json
// @Param cid path string true "Cart ID"
// @Param pid path string true "Product ID"
// @Success 200 {object} SuccessResponse{payload=CartResponse}
// @Failure 404 {object} errors.ErrorResponse
// @Router /carts/{cid}/products/{pid} [delete]
func (h *CartHandler) RemoveProduct(c echo.Context) error {
	cartID, productID, err := cartProductParams(c)
	if err != nil {
		return err
	}
	cart, err := h.service.RemoveProduct(c.Request().Context(), cartID, productID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newCartResponse(cart))
}

// ReplaceProducts godoc
// @Summary Replace every product in a cart
// @Tags carts
// @Accept json
// @Produce json
// @Param cid path string true "Cart ID"
// @Param request body ReplaceCartRequest true "Products"
// @Success 200 {object} SuccessResponse{payload=CartResponse}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /carts/{cid} [put]
func (h *CartHandler) ReplaceProducts(c echo.Context) error {
	cartID, err := parseUUIDParam(c, "cid", apperrors.ErrCartNotFound)
	if err != nil {
		return err
	}
	var req ReplaceCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	lines := make([]service.CartLine, len(req.Products))
	for i, p := range req.Products {
		lines[i] = service.CartLine{ProductID: uuid.MustParse(p.ProductID), Quantity: p.Quantity}
	}
	cart, err := h.service.ReplaceProducts(c.Request().Context(), cartID, lines)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newCartResponse(cart))
}

// ClearCart godoc
// @Summary Remove every product from a cart
// @Tags carts
// @Produce json
// @Param cid path string true "Cart ID"
// @Success 200 {object} SuccessResponse{payload=CartResponse}
// @Failure 404 {object} errors.ErrorResponse
// @Router /carts/{cid} [delete]
func (h *CartHandler) ClearCart(c echo.Context) error {
	cartID, err := parseUUIDParam(c, "cid", apperrors.ErrCartNotFound)
	if err != nil {
		return err
	}
	cart, err := h.service.ClearCart(c.Request().Context(), cartID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newCartResponse(cart))
}

func cartProductParams(c echo.Context) (cartID, productID uuid.UUID, err error) {
	if cartID, err = parseUUIDParam(c, "cid", apperrors.ErrCartNotFound); err != nil {
		return
	}
	productID, err = parseUUIDParam(c, "pid", apperrors.ErrProductNotFound)
	return
}
