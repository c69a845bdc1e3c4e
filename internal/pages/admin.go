package pages

import (
	"context"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state/session"
)

// DashboardCustomers is how many customers the dashboard shows
const DashboardCustomers = 10

// Admin is the back-office dashboard
type Admin struct {
	base
	api       AdminAPI
	session   *session.Store
	navigator Navigator

	mu        sync.RWMutex
	metrics   *readmodel.DashboardMetrics
	customers []readmodel.User
}

// NewAdmin creates the dashboard controller
func NewAdmin(api AdminAPI, sess *session.Store, notifier Notifier, navigator Navigator) *Admin {
	return &Admin{
		base:      newBase(notifier, "page-admin"),
		api:       api,
		session:   sess,
		navigator: navigator,
	}
}

// Load fetches metrics and the first customers in parallel. Either failure
// leaves both previous values in place.
func (a *Admin) Load(ctx context.Context) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	defer a.track()()

	var (
		metrics   *readmodel.DashboardMetrics
		customers *readmodel.Page[readmodel.User]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := a.api.Metrics(gctx)
		metrics = m
		return err
	})
	g.Go(func() error {
		c, err := a.api.Customers(gctx, 0, DashboardCustomers)
		customers = c
		return err
	})
	if err := g.Wait(); err != nil {
		a.fail(err, "Failed to load dashboard")
		return err
	}

	a.mu.Lock()
	a.metrics = metrics
	a.customers = customers.Content
	a.mu.Unlock()
	return nil
}

// Metrics returns the last loaded counters
func (a *Admin) Metrics() (readmodel.DashboardMetrics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.metrics == nil {
		return readmodel.DashboardMetrics{}, false
	}
	return *a.metrics, true
}

// Customers returns the last loaded customers
func (a *Admin) Customers() []readmodel.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]readmodel.User(nil), a.customers...)
}

// ListCustomers fetches any page of customers
func (a *Admin) ListCustomers(ctx context.Context, page, size int) (*readmodel.Page[readmodel.User], error) {
	return adminCall(a, "Failed to load customers", func() (*readmodel.Page[readmodel.User], error) {
		return a.api.Customers(ctx, page, size)
	})
}

// ListProducts fetches products including inactive ones
func (a *Admin) ListProducts(ctx context.Context, page, size int) (*readmodel.Page[readmodel.Product], error) {
	return adminCall(a, "Failed to load products", func() (*readmodel.Page[readmodel.Product], error) {
		return a.api.AdminProducts(ctx, page, size)
	})
}

// CreateProduct adds a product
func (a *Admin) CreateProduct(ctx context.Context, in apiclient.ProductInput) (*readmodel.Product, error) {
	p, err := adminCall(a, "Failed to create product", func() (*readmodel.Product, error) {
		return a.api.CreateProduct(ctx, in)
	})
	if err == nil {
		a.success("Product created")
	}
	return p, err
}

// UpdateProduct replaces a product's fields
func (a *Admin) UpdateProduct(ctx context.Context, id int64, in apiclient.ProductInput) (*readmodel.Product, error) {
	p, err := adminCall(a, "Failed to update product", func() (*readmodel.Product, error) {
		return a.api.UpdateProduct(ctx, id, in)
	})
	if err == nil {
		a.success("Product updated")
	}
	return p, err
}

// DeleteProduct removes a product
func (a *Admin) DeleteProduct(ctx context.Context, id int64) error {
	_, err := adminCall(a, "Failed to delete product", func() (struct{}, error) {
		return struct{}{}, a.api.DeleteProduct(ctx, id)
	})
	if err == nil {
		a.success("Product deleted")
	}
	return err
}

// UploadImage attaches an image file to a product
func (a *Admin) UploadImage(ctx context.Context, id int64, filename string, image io.Reader) (*readmodel.Product, error) {
	p, err := adminCall(a, "Failed to upload image", func() (*readmodel.Product, error) {
		return a.api.UploadProductImage(ctx, id, filename, image)
	})
	if err == nil {
		a.success("Image uploaded")
	}
	return p, err
}

// UploadImageURL attaches an image by URL to a product
func (a *Admin) UploadImageURL(ctx context.Context, id int64, imageURL string) (*readmodel.Product, error) {
	p, err := adminCall(a, "Failed to upload image", func() (*readmodel.Product, error) {
		return a.api.UploadProductImageURL(ctx, id, imageURL)
	})
	if err == nil {
		a.success("Image uploaded")
	}
	return p, err
}

// CreateCategory adds a category
func (a *Admin) CreateCategory(ctx context.Context, in apiclient.CategoryInput) (*readmodel.Category, error) {
	c, err := adminCall(a, "Failed to create category", func() (*readmodel.Category, error) {
		return a.api.CreateCategory(ctx, in)
	})
	if err == nil {
		a.success("Category created")
	}
	return c, err
}

// DeleteCategory removes a category
func (a *Admin) DeleteCategory(ctx context.Context, id int64) error {
	_, err := adminCall(a, "Failed to delete category", func() (struct{}, error) {
		return struct{}{}, a.api.DeleteCategory(ctx, id)
	})
	if err == nil {
		a.success("Category deleted")
	}
	return err
}

// ListOrders fetches every order
func (a *Admin) ListOrders(ctx context.Context, page, size int) (*readmodel.Page[readmodel.Order], error) {
	return adminCall(a, "Failed to load orders", func() (*readmodel.Page[readmodel.Order], error) {
		return a.api.AdminOrders(ctx, page, size)
	})
}

// UpdateOrderStatus moves an order to a new status
func (a *Admin) UpdateOrderStatus(ctx context.Context, id int64, status string) (*readmodel.Order, error) {
	if !readmodel.ValidOrderStatus(status) {
		a.notifier.Error("Unknown order status " + status)
		return nil, ErrInvalidForm
	}
	o, err := adminCall(a, "Failed to update order status", func() (*readmodel.Order, error) {
		return a.api.UpdateOrderStatus(ctx, id, status)
	})
	if err == nil {
		a.success("Order status updated")
	}
	return o, err
}

func (a *Admin) requireAdmin() error {
	if !a.session.IsAuthenticated() {
		a.navigator.Navigate(loginPath(RouteAdmin))
		return ErrLoginRequired
	}
	if !a.session.IsAdmin() {
		a.notifier.Error("Admin access required")
		a.navigator.Navigate(RouteHome)
		return ErrAdminRequired
	}
	return nil
}

// adminCall runs one guarded admin request, notifying on failure
func adminCall[T any](a *Admin, failMsg string, call func() (T, error)) (T, error) {
	var zero T
	if err := a.requireAdmin(); err != nil {
		return zero, err
	}
	defer a.track()()

	out, err := call()
	if err != nil {
		a.fail(err, serverMessage(err, failMsg))
		return zero, err
	}
	return out, nil
}
