package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/cache"
	"storefront/internal/model"
	"storefront/internal/repository"
)

const (
	productCacheTTL     = 5 * time.Minute
	defaultProductLimit = 10
	maxProductLimit     = 100
	maxProductPage      = 100000
)

// ProductInput carries a new product. Status defaults to true when nil.
type ProductInput struct {
	Title       string
	Description string
	Code        string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Status      *bool
	Thumbnails  []string
}

// ProductPatch holds the fields an update may change. Nil fields are left alone.
type ProductPatch struct {
	Title       *string
	Description *string
	Code        *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	Status      *bool
	Thumbnails  []string
}

// ProductQuery selects a page of the catalog.
type ProductQuery struct {
	Limit    int
	Page     int
	Category string
	Status   *bool
	Sort     string
}

// ProductPage is one page of a catalog listing.
type ProductPage struct {
	Docs       []model.Product
	Total      int64
	Page       int
	Limit      int
	TotalPages int
	PrevPage   int
	NextPage   int
}

// HasPrev reports whether a previous page exists.
func (p *ProductPage) HasPrev() bool { return p.PrevPage > 0 }

// HasNext reports whether a next page exists.
func (p *ProductPage) HasNext() bool { return p.NextPage > 0 }

// ProductService exposes catalog operations.
type ProductService interface {
	ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	repo  repository.ProductRepository
	cache *cache.Client
}

// NewProductService builds a ProductService with repository and cache.
func NewProductService(repo repository.ProductRepository, cache *cache.Client) ProductService {
	return &productService{repo: repo, cache: cache}
}

func (s *productService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("product:%s", id)
}

func (s *productService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	if q.Limit <= 0 {
		q.Limit = defaultProductLimit
	}
	if q.Limit > maxProductLimit {
		q.Limit = maxProductLimit
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Page > maxProductPage {
		q.Page = maxProductPage
	}
	sort := strings.ToLower(q.Sort)
	if sort != "asc" && sort != "desc" {
		sort = ""
	}

	docs, total, err := s.repo.List(ctx, repository.ProductFilter{
		Category: q.Category,
		Status:   q.Status,
		Sort:     sort,
		Limit:    q.Limit,
		Page:     q.Page,
	})
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	if totalPages == 0 {
		totalPages = 1
	}
	page := &ProductPage{
		Docs:       docs,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: totalPages,
	}
	// Past the end, the previous link points at the last real page.
	if q.Page > 1 {
		page.PrevPage = min(q.Page-1, totalPages)
	}
	if q.Page < totalPages {
		page.NextPage = q.Page + 1
	}
	return page, nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var cached model.Product
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, s.cacheKey(id), product, productCacheTTL)
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	status := true
	if in.Status != nil {
		status = *in.Status
	}
	product := &model.Product{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Code:        strings.TrimSpace(in.Code),
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    strings.TrimSpace(in.Category),
		Status:      status,
		Thumbnails:  in.Thumbnails,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*model.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		product.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Code != nil {
		product.Code = strings.TrimSpace(*patch.Code)
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if patch.Category != nil {
		product.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Status != nil {
		product.Status = *patch.Status
	}
	if patch.Thumbnails != nil {
		product.Thumbnails = patch.Thumbnails
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}
