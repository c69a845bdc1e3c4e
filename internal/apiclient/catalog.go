package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/ec-storefront/internal/readmodel"
)

// ProductQuery filters and pages the public product listing
type ProductQuery struct {
	Page       int
	Size       int
	SortBy     string
	SortDir    string
	Search     string
	CategoryID int64
}

func (q ProductQuery) values() url.Values {
	size := q.Size
	if size <= 0 {
		size = 10
	}
	v := pageQuery(q.Page, size)
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortDir != "" {
		v.Set("sortDir", q.SortDir)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.CategoryID != 0 {
		v.Set("categoryId", strconv.FormatInt(q.CategoryID, 10))
	}
	return v
}

// CategoryInput is the body of POST /categories
type CategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ParentID    *int64 `json:"parentId,omitempty"`
}

// ListProducts returns one page of the public catalog
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*readmodel.Page[readmodel.Product], error) {
	var out readmodel.Page[readmodel.Product]
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/products",
		query:  q.values(),
	}, &out, "content")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProduct fetches a product by numeric id
func (c *Client) GetProduct(ctx context.Context, id int64) (*readmodel.Product, error) {
	var out readmodel.Product
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   idPath("/products", id),
		route:  "/products/{id}",
	}, &out, "id")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProductBySlug fetches a product by its slug
func (c *Client) GetProductBySlug(ctx context.Context, slug string) (*readmodel.Product, error) {
	var out readmodel.Product
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/products/" + url.PathEscape(slug),
		route:  "/products/{slug}",
	}, &out, "id")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProductsByCategory returns one page of a category's products
func (c *Client) ListProductsByCategory(ctx context.Context, categoryID int64, page, size int) (*readmodel.Page[readmodel.Product], error) {
	var out readmodel.Page[readmodel.Product]
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   idPath("/products/category", categoryID),
		route:  "/products/category/{id}",
		query:  pageQuery(page, size),
	}, &out, "content")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCategories returns the category forest
func (c *Client) ListCategories(ctx context.Context) ([]readmodel.Category, error) {
	var out []readmodel.Category
	if err := c.doList(ctx, request{method: http.MethodGet, path: "/categories"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCategoryBySlug fetches one category with its subcategories
func (c *Client) GetCategoryBySlug(ctx context.Context, slug string) (*readmodel.Category, error) {
	var out readmodel.Category
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/categories/" + url.PathEscape(slug),
		route:  "/categories/{slug}",
	}, &out, "id")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCategory adds a category (admin)
func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (*readmodel.Category, error) {
	var out readmodel.Category
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/categories",
		body:   in,
	}, &out, "id")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory removes a category (admin)
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   idPath("/categories", id),
		route:  "/categories/{id}",
	}, nil)
}
