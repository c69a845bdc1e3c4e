package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/example/ec-storefront/internal/readmodel"
)

// ProductInput is the body of product create and update
type ProductInput struct {
	Name        string          `json:"name"`
	Slug        string          `json:"slug,omitempty"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	CategoryID  int64           `json:"categoryId"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"isActive"`
}

// Metrics returns the dashboard counters
func (c *Client) Metrics(ctx context.Context) (*readmodel.DashboardMetrics, error) {
	var out readmodel.DashboardMetrics
	err := c.do(ctx, request{method: http.MethodGet, path: "/admin/metrics"}, &out, "totalOrders")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Customers returns one page of registered users
func (c *Client) Customers(ctx context.Context, page, size int) (*readmodel.Page[readmodel.User], error) {
	var out readmodel.Page[readmodel.User]
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/admin/customers",
		query:  pageQuery(page, size),
	}, &out, "content")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminProducts lists products including inactive ones
func (c *Client) AdminProducts(ctx context.Context, page, size int) (*readmodel.Page[readmodel.Product], error) {
	var out readmodel.Page[readmodel.Product]
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/admin/products",
		query:  pageQuery(page, size),
	}, &out, "content")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct adds a product
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*readmodel.Product, error) {
	return c.productCall(ctx, request{method: http.MethodPost, path: "/admin/products", body: in})
}

// UpdateProduct replaces a product's fields
func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*readmodel.Product, error) {
	return c.productCall(ctx, request{
		method: http.MethodPut,
		path:   idPath("/admin/products", id),
		route:  "/admin/products/{id}",
		body:   in,
	})
}

// DeleteProduct removes a product
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   idPath("/admin/products", id),
		route:  "/admin/products/{id}",
	}, nil)
}

// UploadProductImage sends an image file as multipart form field "file"
func (c *Client) UploadProductImage(ctx context.Context, id int64, filename string, image io.Reader) (*readmodel.Product, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	return c.productCall(ctx, request{
		method:      http.MethodPost,
		path:        idPath("/admin/products", id, "/upload-image"),
		route:       "/admin/products/{id}/upload-image",
		rawBody:     buf.Bytes(),
		contentType: mw.FormDataContentType(),
	})
}

// UploadProductImageURL has the backend fetch and attach an image by URL
func (c *Client) UploadProductImageURL(ctx context.Context, id int64, imageURL string) (*readmodel.Product, error) {
	return c.productCall(ctx, request{
		method: http.MethodPost,
		path:   idPath("/admin/products", id, "/upload-image-url"),
		route:  "/admin/products/{id}/upload-image-url",
		query:  url.Values{"url": {imageURL}},
	})
}

// AdminOrders lists every order
func (c *Client) AdminOrders(ctx context.Context, page, size int) (*readmodel.Page[readmodel.Order], error) {
	var out readmodel.Page[readmodel.Order]
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/admin/orders",
		query:  pageQuery(page, size),
	}, &out, "content")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrderStatus moves an order to status
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status string) (*readmodel.Order, error) {
	var out readmodel.Order
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   idPath("/admin/orders", id, "/status"),
		route:  "/admin/orders/{id}/status",
		query:  url.Values{"status": {status}},
	}, &out, "id")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) productCall(ctx context.Context, req request) (*readmodel.Product, error) {
	var out readmodel.Product
	if err := c.do(ctx, req, &out, "id"); err != nil {
		return nil, err
	}
	return &out, nil
}
