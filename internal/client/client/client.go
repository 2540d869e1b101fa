package client

import (
	"context"

	"github.com/dmitrijs2005/storefront/internal/client/models"
)

// Client is the remote storefront API.
type Client interface {
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error)
	Me(ctx context.Context) (*models.User, error)

	ListProducts(ctx context.Context, skip, limit int) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) (*models.DeleteResponse, error)
}
