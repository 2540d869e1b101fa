package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/client/client"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
)

// Fallback messages shown when a failed product call carries no server detail.
const (
	MsgFetchProductsFailed = "Failed to fetch products"
	MsgFetchProductFailed  = "Failed to fetch product"
	MsgCreateProductFailed = "Failed to create product"
	MsgUpdateProductFailed = "Failed to update product"
	MsgDeleteProductFailed = "Failed to delete product"
)

const (
	DefaultSkip  = 0
	DefaultLimit = 100
)

// ProductService is the product catalog facade used by the CLI screens.
type ProductService interface {
	List(ctx context.Context, skip, limit int) ([]models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, in models.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error)
	// Delete returns the server's confirmation message.
	Delete(ctx context.Context, id int64) (string, error)
}

type productService struct {
	client client.Client
}

func NewProductService(c client.Client) ProductService {
	return &productService{client: c}
}

// List falls back to DefaultSkip and DefaultLimit for out of range values.
func (s *productService) List(ctx context.Context, skip, limit int) ([]models.Product, error) {
	if skip < 0 {
		skip = DefaultSkip
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	products, err := s.client.ListProducts(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *productService) Get(ctx context.Context, id int64) (*models.Product, error) {
	if err := validateID("get product", id); err != nil {
		return nil, err
	}
	p, err := s.client.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *productService) Create(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	in = in.Normalize()
	if err := in.Validate("create product"); err != nil {
		return nil, err
	}
	p, err := s.client.CreateProduct(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *productService) Update(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	if err := validateID("update product", id); err != nil {
		return nil, err
	}
	in = in.Normalize()
	if err := in.Validate("update product"); err != nil {
		return nil, err
	}
	p, err := s.client.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	return p, nil
}

func (s *productService) Delete(ctx context.Context, id int64) (string, error) {
	if err := validateID("delete product", id); err != nil {
		return "", err
	}
	resp, err := s.client.DeleteProduct(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete product %d: %w", id, err)
	}
	return resp.Message, nil
}

func validateID(op string, id int64) error {
	if id <= 0 {
		return common.NewValidationError(op, "Invalid product id")
	}
	return nil
}
