package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/readmodel"
)

// RouterConfig holds the dependencies of the dev backend router
type RouterConfig struct {
	Backend    *Backend
	JWTService *auth.JWTService
	Logger     *logrus.Entry
}

// NewRouter mounts the REST contract under /api. Cart, order, checkout and
// admin routes need a bearer token; admin routes also need the ADMIN role.
func NewRouter(cfg RouterConfig) http.Handler {
	handlers := NewHandlers(cfg.Backend)
	authHandlers := NewAuthHandlers(cfg.Backend, cfg.JWTService)
	requireAuth := middleware.AuthMiddleware(cfg.JWTService)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogger(cfg.Logger))
	}

	r.Get("/pay/paystack/{reference}", handlers.HostedPayment)
	r.Get("/uploads/products/{id}", handlers.ProductImage)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandlers.Login)
		r.Post("/auth/register", authHandlers.Register)
		r.Post("/auth/refresh", authHandlers.Refresh)

		r.Get("/products", handlers.GetProducts)
		r.Get("/products/category/{id}", handlers.GetProductsByCategory)
		r.Get("/products/{key}", handlers.GetProduct)
		r.Get("/categories", handlers.ListCategories)
		r.Get("/categories/{key}", handlers.GetCategory)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/auth/me", authHandlers.Me)

			r.Get("/cart", handlers.GetCart)
			r.Delete("/cart", handlers.ClearCart)
			r.Post("/cart/items", handlers.AddToCart)
			r.Put("/cart/items/{id}", handlers.UpdateCartItem)
			r.Delete("/cart/items/{id}", handlers.RemoveCartItem)

			r.Post("/orders", handlers.PlaceOrder)
			r.Get("/orders", handlers.GetOrders)
			r.Get("/orders/{id}", handlers.GetOrder)

			r.Post("/checkout/paystack/initialize", handlers.InitializePaystack)
			r.Post("/checkout/stripe/create-payment-intent", handlers.CreatePaymentIntent)
			r.Post("/checkout/verify-payment", handlers.VerifyPayment)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(readmodel.RoleAdmin))

				r.Post("/categories", handlers.CreateCategory)
				r.Delete("/categories/{key}", handlers.DeleteCategory)

				r.Get("/admin/metrics", handlers.Metrics)
				r.Get("/admin/customers", handlers.Customers)
				r.Get("/admin/products", handlers.AdminProducts)
				r.Post("/admin/products", handlers.CreateProduct)
				r.Put("/admin/products/{id}", handlers.UpdateProduct)
				r.Delete("/admin/products/{id}", handlers.DeleteProduct)
				r.Post("/admin/products/{id}/upload-image", handlers.UploadImage)
				r.Post("/admin/products/{id}/upload-image-url", handlers.UploadImageURL)
				r.Get("/admin/orders", handlers.AdminOrders)
				r.Put("/admin/orders/{id}/status", handlers.UpdateOrderStatus)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSONError(w, "No handler for "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	})
	return r
}
