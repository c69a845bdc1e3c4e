// Package pages holds the page controllers. Each controller fetches what it
// needs through the API client, keeps page-local results, and writes to the
// shared session and cart stores only for mutations.
package pages

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/readmodel"
)

// Routes navigated to by the controllers
const (
	RouteHome     = "/"
	RouteLogin    = "/login"
	RouteProducts = "/products"
	RouteCart     = "/cart"
	RouteCheckout = "/checkout"
	RouteOrders   = "/orders"
	RouteAdmin    = "/admin"
)

var (
	ErrLoginRequired     = errors.New("login required")
	ErrAdminRequired     = errors.New("admin access required")
	ErrProductNotLoaded  = errors.New("product not loaded")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidForm       = errors.New("invalid form")
)

// Notifier shows transient user notifications
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Navigator moves the user to another route or an external URL
type Navigator interface {
	Navigate(path string)
	Redirect(externalURL string)
}

// CatalogAPI is the read side of the product catalog
type CatalogAPI interface {
	ListProducts(ctx context.Context, q apiclient.ProductQuery) (*readmodel.Page[readmodel.Product], error)
	GetProduct(ctx context.Context, id int64) (*readmodel.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*readmodel.Product, error)
	ListProductsByCategory(ctx context.Context, categoryID int64, page, size int) (*readmodel.Page[readmodel.Product], error)
	ListCategories(ctx context.Context) ([]readmodel.Category, error)
}

// CartAPI is the server-side cart
type CartAPI interface {
	GetCart(ctx context.Context) (*readmodel.CartSnapshot, error)
	AddToCart(ctx context.Context, productID int64, quantity int) (*readmodel.CartSnapshot, error)
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) (*readmodel.CartSnapshot, error)
	RemoveCartItem(ctx context.Context, itemID int64) (*readmodel.CartSnapshot, error)
	ClearCart(ctx context.Context) error
}

// OrderAPI covers order creation and payment
type OrderAPI interface {
	CreateOrder(ctx context.Context, shippingAddress, provider string) (*readmodel.Order, error)
	ListOrders(ctx context.Context, page, size int) (*readmodel.Page[readmodel.Order], error)
	GetOrder(ctx context.Context, id int64) (*readmodel.Order, error)
	InitializePaystack(ctx context.Context, orderID int64) (*readmodel.PaystackInit, error)
	CreateStripePaymentIntent(ctx context.Context, orderID int64) (*readmodel.StripeIntent, error)
	VerifyPayment(ctx context.Context, orderID int64, provider, reference string) (*readmodel.Order, error)
}

// AuthAPI exchanges credentials for tokens
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*readmodel.AuthResponse, error)
	Register(ctx context.Context, in apiclient.RegisterRequest) (*readmodel.AuthResponse, error)
}

// AdminAPI is the back-office surface
type AdminAPI interface {
	Metrics(ctx context.Context) (*readmodel.DashboardMetrics, error)
	Customers(ctx context.Context, page, size int) (*readmodel.Page[readmodel.User], error)
	AdminProducts(ctx context.Context, page, size int) (*readmodel.Page[readmodel.Product], error)
	CreateProduct(ctx context.Context, in apiclient.ProductInput) (*readmodel.Product, error)
	UpdateProduct(ctx context.Context, id int64, in apiclient.ProductInput) (*readmodel.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	UploadProductImage(ctx context.Context, id int64, filename string, image io.Reader) (*readmodel.Product, error)
	UploadProductImageURL(ctx context.Context, id int64, imageURL string) (*readmodel.Product, error)
	CreateCategory(ctx context.Context, in apiclient.CategoryInput) (*readmodel.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	AdminOrders(ctx context.Context, page, size int) (*readmodel.Page[readmodel.Order], error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) (*readmodel.Order, error)
}

// base carries the loading counter and notification plumbing shared by controllers
type base struct {
	loadMu   sync.Mutex
	inflight int
	notifier Notifier
	log      *logrus.Entry
}

func newBase(notifier Notifier, component string) base {
	return base{notifier: notifier, log: logging.Component(component)}
}

// Loading reports whether any request of this controller is outstanding
func (b *base) Loading() bool {
	b.loadMu.Lock()
	defer b.loadMu.Unlock()
	return b.inflight > 0
}

func (b *base) track() func() {
	b.loadMu.Lock()
	b.inflight++
	b.loadMu.Unlock()
	return func() {
		b.loadMu.Lock()
		b.inflight--
		b.loadMu.Unlock()
	}
}

func (b *base) fail(err error, msg string) {
	b.log.WithError(err).Error(msg)
	b.notifier.Error(msg)
}

func (b *base) success(msg string) {
	b.notifier.Success(msg)
}

// serverMessage returns the backend's message field, or fallback when absent
func serverMessage(err error, fallback string) string {
	if apiErr, ok := apiclient.AsError(err); ok {
		if msg := gjson.GetBytes(apiErr.Body, "message").String(); msg != "" {
			return msg
		}
	}
	return fallback
}

// loginPath is the login route remembering where to return
func loginPath(from string) string {
	if from == "" || from == RouteHome {
		return RouteLogin
	}
	return RouteLogin + "?from=" + url.QueryEscape(from)
}
