package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/service"
)

// ProductHandler exposes the catalog.
type ProductHandler struct {
	service service.ProductService
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

// CreateProductRequest represents a new catalog item.
type CreateProductRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Code        string          `json:"code" validate:"required"`
	Price       decimal.Decimal `json:"price" swaggertype:"number"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category"`
	Status      *bool           `json:"status"`
	Thumbnails  []string        `json:"thumbnails" validate:"omitempty,dive,url"`
}

// UpdateProductRequest represents a partial catalog update.
type UpdateProductRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=1"`
	Description *string          `json:"description"`
	Code        *string          `json:"code" validate:"omitempty,min=1"`
	Price       *decimal.Decimal `json:"price" swaggertype:"number"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Category    *string          `json:"category"`
	Status      *bool            `json:"status"`
	Thumbnails  []string         `json:"thumbnails" validate:"omitempty,dive,url"`
}

// ProductPageResponse is one page of the catalog.
type ProductPageResponse struct {
	Docs       []model.Product `json:"docs"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
	HasPrev    bool            `json:"has_prev"`
	HasNext    bool            `json:"has_next"`
	PrevLink   *string         `json:"prev_link"`
	NextLink   *string         `json:"next_link"`
}

// ListProducts godoc
// @Summary List products
// @Tags products
// @Produce json
// @Param limit query int false "Page size" default(10)
// @Param page query int false "Page number" default(1)
// @Param category query string false "Category filter"
// @Param status query bool false "Availability filter"
// @Param sort query string false "Sort by price" Enums(asc, desc)
// @Success 200 {object} SuccessResponse{payload=ProductPageResponse}
// @Failure 400 {object} errors.ErrorResponse
// @Router /products [get]
func (h *ProductHandler) ListProducts(c echo.Context) error {
	query, err := parseProductQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListProducts(c.Request().Context(), query)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, newProductPageResponse(c.Request().URL, page))
}

// GetProduct godoc
// @Summary Get a product
// @Tags products
// @Produce json
// @Param pid path string true "Product ID"
// @Success 200 {object} SuccessResponse{payload=model.Product}
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{pid} [get]
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := parseUUIDParam(c, "pid", apperrors.ErrProductNotFound)
	if err != nil {
		return err
	}
	product, err := h.service.GetProduct(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, product)
}

// CreateProduct godoc
// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Param request body CreateProductRequest true "Product"
// @Success 201 {object} SuccessResponse{payload=model.Product}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /products [post]
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req CreateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "price must not be negative")
	}

	product, err := h.service.CreateProduct(c.Request().Context(), service.ProductInput{
		Title:       req.Title,
		Description: req.Description,
		Code:        req.Code,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Status:      req.Status,
		Thumbnails:  req.Thumbnails,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, product)
}

// UpdateProduct godoc
// @Summary Update a product
// @Tags products
// @Accept json
// @Produce json
// @Param pid path string true "Product ID"
// @Param request body UpdateProductRequest true "Fields to change"
// @Success 200 {object} SuccessResponse{payload=model.Product}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{pid} [put]
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := parseUUIDParam(c, "pid", apperrors.ErrProductNotFound)
	if err != nil {
		return err
	}
	var req UpdateProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Price != nil && req.Price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "price must not be negative")
	}

	product, err := h.service.UpdateProduct(c.Request().Context(), id, service.ProductPatch{
		Title:       req.Title,
		Description: req.Description,
		Code:        req.Code,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Status:      req.Status,
		Thumbnails:  req.Thumbnails,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, product)
}

// DeleteProduct godoc
// @Summary Delete a product
// @Tags products
// @Produce json
// @Param pid path string true "Product ID"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{pid} [delete]
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := parseUUIDParam(c, "pid", apperrors.ErrProductNotFound)
	if err != nil {
		return err
	}
	if err := h.service.DeleteProduct(c.Request().Context(), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Product deleted")
}

func parseProductQuery(c echo.Context) (service.ProductQuery, error) {
	q := service.ProductQuery{
		Category: c.QueryParam("category"),
		Sort:     c.QueryParam("sort"),
	}
	var err error
	if v := c.QueryParam("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil || q.Limit < 1 {
			return q, echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
	}
	if v := c.QueryParam("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil || q.Page < 1 {
			return q, echo.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
		}
	}
	if v := c.QueryParam("status"); v != "" {
		status, err := strconv.ParseBool(v)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "status must be true or false")
		}
		q.Status = &status
	}
	return q, nil
}

func newProductPageResponse(u *url.URL, page *service.ProductPage) ProductPageResponse {
	resp := ProductPageResponse{
		Docs:       page.Docs,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
		HasPrev:    page.HasPrev(),
		HasNext:    page.HasNext(),
	}
	if resp.Docs == nil {
		resp.Docs = []model.Product{}
	}
	if page.HasPrev() {
		link := pageLink(u, page.PrevPage)
		resp.PrevLink = &link
	}
	if page.HasNext() {
		link := pageLink(u, page.NextPage)
		resp.NextLink = &link
	}
	return resp
}

// pageLink returns the request path and query with page replaced.
func pageLink(u *url.URL, page int) string {
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	return u.Path + "?" + q.Encode()
}
