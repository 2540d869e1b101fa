package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/storefront/internal/client/models"
)

const (
	routeRegister = "/auth/register"
	routeLogin    = "/auth/login"
	routeMe       = "/auth/me"
	routeProducts = "/products/"
	routeProduct  = "/products/{id}"
)

// RESTClient implements Client over the storefront JSON API.
type RESTClient struct {
	http *HTTPClient
}

var _ Client = (*RESTClient)(nil)

func NewRESTClient(h *HTTPClient) *RESTClient {
	return &RESTClient{http: h}
}

func (c *RESTClient) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	var user models.User
	err := c.http.Do(ctx, Request{
		Op: "register", Method: http.MethodPost,
		Route: routeRegister, Path: routeRegister,
		JSON: reg,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login posts form-encoded credentials, as OAuth2 password flow servers expect.
func (c *RESTClient) Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.http.Do(ctx, Request{
		Op: "login", Method: http.MethodPost,
		Route: routeLogin, Path: routeLogin,
		Form: url.Values{"username": {creds.Username}, "password": {creds.Password}},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RESTClient) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	err := c.http.Do(ctx, Request{
		Op: "me", Method: http.MethodGet,
		Route: routeMe, Path: routeMe,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *RESTClient) ListProducts(ctx context.Context, skip, limit int) ([]models.Product, error) {
	products := []models.Product{}
	err := c.http.Do(ctx, Request{
		Op: "list products", Method: http.MethodGet,
		Route: routeProducts, Path: routeProducts,
		Query: url.Values{"skip": {strconv.Itoa(skip)}, "limit": {strconv.Itoa(limit)}},
	}, &products)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (c *RESTClient) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := c.http.Do(ctx, Request{
		Op: "get product", Method: http.MethodGet,
		Route: routeProduct, Path: productPath(id),
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RESTClient) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	var p models.Product
	err := c.http.Do(ctx, Request{
		Op: "create product", Method: http.MethodPost,
		Route: routeProducts, Path: routeProducts,
		JSON: in,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RESTClient) UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (*models.Product, error) {
	var p models.Product
	err := c.http.Do(ctx, Request{
		Op: "update product", Method: http.MethodPut,
		Route: routeProduct, Path: productPath(id),
		JSON: in,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RESTClient) DeleteProduct(ctx context.Context, id int64) (*models.DeleteResponse, error) {
	var resp models.DeleteResponse
	err := c.http.Do(ctx, Request{
		Op: "delete product", Method: http.MethodDelete,
		Route: routeProduct, Path: productPath(id),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}
