package service

import (
	"context"
	"time"

	"github.com/corebill/corebill/internal/api/dto"
	"github.com/corebill/corebill/internal/cache"
	"github.com/corebill/corebill/internal/domain/product"
	"github.com/corebill/corebill/internal/types"
)

// ProductService manages the catalog used to prefill line items
type ProductService interface {
	CreateProduct(ctx context.Context, req *dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetProduct(ctx context.Context, id string) (*dto.ProductResponse, error)
	ListProducts(ctx context.Context, filter *types.QueryFilter) (*dto.ListProductsResponse, error)
	UpdateProduct(ctx context.Context, id string, req *dto.UpdateProductRequest) (*dto.ProductResponse, error)
	DeleteProduct(ctx context.Context, id string) error
}

type productService struct {
	ServiceParams
}

// NewProductService creates a new product service
func NewProductService(params ServiceParams) ProductService {
	return &productService{ServiceParams: params}
}

func (s *productService) CreateProduct(ctx context.Context, req *dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prod := &product.Product{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PRODUCT),
		Name:        req.Name,
		Description: req.Description,
		UnitPrice:   req.UnitPrice,
		Currency:    defaultCurrency(req.Currency),
		TaxRate:     req.TaxRate,
		Metadata:    req.Metadata,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	if err := prod.Validate(); err != nil {
		return nil, err
	}

	if err := s.ProductRepo.Create(ctx, prod); err != nil {
		return nil, err
	}

	s.Logger.Infow("created product", "product_id", prod.ID)
	return &dto.ProductResponse{Product: prod}, nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (*dto.ProductResponse, error) {
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, cache.Key(cache.PrefixProduct, types.GetOrgID(ctx), id)); ok {
			if prod, ok := cached.(*product.Product); ok {
				return &dto.ProductResponse{Product: prod}, nil
			}
		}
	}

	prod, err := s.ProductRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, cache.Key(cache.PrefixProduct, types.GetOrgID(ctx), id), prod, cache.DefaultExpiration)
	}
	return &dto.ProductResponse{Product: prod}, nil
}

func (s *productService) ListProducts(ctx context.Context, filter *types.QueryFilter) (*dto.ListProductsResponse, error) {
	if filter == nil {
		filter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	products, err := s.ProductRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.ProductRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ProductResponse, len(products))
	for i, prod := range products {
		items[i] = &dto.ProductResponse{Product: prod}
	}
	return &dto.ListProductsResponse{Items: items, Total: total}, nil
}

// UpdateProduct edits the catalog entry. Existing line items keep the price
// they copied; only new lines pick up the change.
func (s *productService) UpdateProduct(ctx context.Context, id string, req *dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prod, err := s.ProductRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		prod.Name = *req.Name
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.UnitPrice != nil {
		prod.UnitPrice = *req.UnitPrice
	}
	if req.Currency != nil {
		prod.Currency = *req.Currency
	}
	if req.TaxRate != nil {
		prod.TaxRate = *req.TaxRate
	}
	if req.Metadata != nil {
		prod.Metadata = req.Metadata
	}
	if err := prod.Validate(); err != nil {
		return nil, err
	}

	prod.UpdatedAt = time.Now().UTC()
	prod.UpdatedBy = types.GetUserID(ctx)
	if err := s.ProductRepo.Update(ctx, prod); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return &dto.ProductResponse{Product: prod}, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.ProductRepo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.ProductRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.Logger.Infow("deleted product", "product_id", id)
	return nil
}

func (s *productService) invalidate(ctx context.Context, id string) {
	if s.Cache == nil {
		return
	}
	s.Cache.Delete(ctx, cache.Key(cache.PrefixProduct, types.GetOrgID(ctx), id))
}
