package pages

import (
	"context"
	"sync"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/readmodel"
)

// FeaturedCount is how many products the home page shows
const FeaturedCount = 4

// Home shows the first few catalog products
type Home struct {
	base
	catalog CatalogAPI

	mu       sync.RWMutex
	featured []readmodel.Product
}

// NewHome creates the home page controller
func NewHome(catalog CatalogAPI, notifier Notifier) *Home {
	return &Home{base: newBase(notifier, "page-home"), catalog: catalog}
}

// Load fetches the featured products
func (h *Home) Load(ctx context.Context) error {
	defer h.track()()

	page, err := h.catalog.ListProducts(ctx, apiclient.ProductQuery{Page: 0, Size: FeaturedCount})
	if err != nil {
		h.fail(err, "Failed to load products")
		return err
	}

	h.mu.Lock()
	h.featured = page.Content
	h.mu.Unlock()
	return nil
}

// Featured returns the last loaded products
func (h *Home) Featured() []readmodel.Product {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]readmodel.Product(nil), h.featured...)
}
