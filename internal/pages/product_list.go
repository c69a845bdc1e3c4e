package pages

import (
	"context"
	"errors"
	"sync"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/readmodel"
)

// ListPageSize is the product listing page size
const ListPageSize = 10

// ProductList is the catalog browser with a category filter
type ProductList struct {
	base
	catalog CatalogAPI

	mu         sync.RWMutex
	page       int
	categoryID int64
	search     string
	products   []readmodel.Product
	categories []readmodel.Category
	totalPages int
}

// NewProductList creates the listing controller
func NewProductList(catalog CatalogAPI, notifier Notifier) *ProductList {
	return &ProductList{base: newBase(notifier, "page-products"), catalog: catalog}
}

// Load fetches categories and the requested page. A zero categoryID lists everything.
func (p *ProductList) Load(ctx context.Context, page int, categoryID int64) error {
	p.mu.Lock()
	p.page, p.categoryID = page, categoryID
	p.mu.Unlock()

	return p.load(ctx)
}

// LoadSearch is Load with a text filter applied to the same product request
func (p *ProductList) LoadSearch(ctx context.Context, page int, categoryID int64, term string) error {
	p.mu.Lock()
	p.page, p.categoryID, p.search = page, categoryID, term
	p.mu.Unlock()

	return p.load(ctx)
}

func (p *ProductList) load(ctx context.Context) error {
	catErr := p.loadCategories(ctx)
	return errors.Join(catErr, p.loadProducts(ctx))
}

// SelectCategory switches the filter and goes back to the first page
func (p *ProductList) SelectCategory(ctx context.Context, categoryID int64) error {
	p.mu.Lock()
	p.page, p.categoryID = 0, categoryID
	p.mu.Unlock()
	return p.loadProducts(ctx)
}

// Search filters the listing by text and goes back to the first page
func (p *ProductList) Search(ctx context.Context, term string) error {
	p.mu.Lock()
	p.page, p.search = 0, term
	p.mu.Unlock()
	return p.loadProducts(ctx)
}

// GoToPage moves to another page with the current filter
func (p *ProductList) GoToPage(ctx context.Context, page int) error {
	if page < 0 {
		page = 0
	}
	p.mu.Lock()
	p.page = page
	p.mu.Unlock()
	return p.loadProducts(ctx)
}

func (p *ProductList) loadCategories(ctx context.Context) error {
	defer p.track()()

	cats, err := p.catalog.ListCategories(ctx)
	if err != nil {
		p.fail(err, "Failed to load categories")
		return err
	}
	p.mu.Lock()
	p.categories = cats
	p.mu.Unlock()
	return nil
}

func (p *ProductList) loadProducts(ctx context.Context) error {
	defer p.track()()

	p.mu.RLock()
	page, categoryID, search := p.page, p.categoryID, p.search
	p.mu.RUnlock()

	var (
		result *readmodel.Page[readmodel.Product]
		err    error
	)
	if categoryID != 0 && search == "" {
		result, err = p.catalog.ListProductsByCategory(ctx, categoryID, page, ListPageSize)
	} else {
		result, err = p.catalog.ListProducts(ctx, apiclient.ProductQuery{
			Page:       page,
			Size:       ListPageSize,
			Search:     search,
			CategoryID: categoryID,
		})
	}
	if err != nil {
		p.fail(err, "Failed to load products")
		return err
	}

	p.mu.Lock()
	p.products = result.Content
	p.totalPages = result.TotalPages
	p.mu.Unlock()
	return nil
}

// Products returns the current page of products
func (p *ProductList) Products() []readmodel.Product {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]readmodel.Product(nil), p.products...)
}

// Categories returns the loaded category forest
func (p *ProductList) Categories() []readmodel.Category {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]readmodel.Category(nil), p.categories...)
}

// Page returns the current page index and the total page count
func (p *ProductList) Page() (current, total int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.page, p.totalPages
}

// CategoryID returns the active filter, zero when none
func (p *ProductList) CategoryID() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.categoryID
}
