package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/apiclient"
)

// maxImageBytes caps product image uploads
const maxImageBytes = 5 << 20

// Handlers serves the catalog, cart, order, checkout and admin endpoints
type Handlers struct {
	backend *Backend
}

// NewHandlers creates the resource handlers
func NewHandlers(backend *Backend) *Handlers {
	return &Handlers{backend: backend}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.backend.ListProducts(productFilter(r)))
}

// GetProduct resolves a numeric key as an id and anything else as a slug
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var err error
	var product any
	if id, parseErr := strconv.ParseInt(key, 10, 64); parseErr == nil {
		product, err = h.backend.Product(id)
	} else {
		product, err = h.backend.ProductBySlug(key)
	}
	if err != nil {
		respondJSONError(w, "Product not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) GetProductsByCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.backend.ListProducts(ProductFilter{
		Page:       queryInt(r, "page", 0),
		Size:       queryInt(r, "size", 10),
		CategoryID: id,
	}))
}

func productFilter(r *http.Request) ProductFilter {
	q := r.URL.Query()
	f := ProductFilter{
		Page:    queryInt(r, "page", 0),
		Size:    queryInt(r, "size", 10),
		SortBy:  q.Get("sortBy"),
		SortDir: q.Get("sortDir"),
		Search:  q.Get("search"),
	}
	f.CategoryID, _ = strconv.ParseInt(q.Get("categoryId"), 10, 64)
	return f
}

// Category Handlers

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.backend.Categories())
}

func (h *Handlers) GetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.backend.CategoryBySlug(chi.URLParam(r, "key"))
	if err != nil {
		respondJSONError(w, "Category not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in apiclient.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.backend.CreateCategory(in)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "key")
	if !ok {
		return
	}
	if err := h.backend.DeleteCategory(id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cart Handlers

type addToCartRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.backend.Cart(middleware.GetUserID(r.Context())))
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := h.backend.AddToCart(middleware.GetUserID(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cart, err := h.backend.UpdateCartItem(middleware.GetUserID(r.Context()), id, queryInt(r, "quantity", 0))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cart, err := h.backend.RemoveCartItem(middleware.GetUserID(r.Context()), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.backend.ClearCart(middleware.GetUserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// Order Handlers

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order, err := h.backend.CreateOrder(middleware.GetUserID(r.Context()), q.Get("shippingAddress"), q.Get("paymentProvider"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.backend.Orders(middleware.GetUserID(r.Context()), queryInt(r, "page", 0), queryInt(r, "size", 10)))
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.backend.Order(middleware.GetUserID(r.Context()), id, middleware.IsAdmin(r.Context()))
	if err != nil {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Checkout Handlers

type orderRefRequest struct {
	OrderID int64 `json:"orderId"`
}

type verifyPaymentRequest struct {
	OrderID   string `json:"orderId"`
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
}

func (h *Handlers) InitializePaystack(w http.ResponseWriter, r *http.Request) {
	var req orderRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	paystack, err := h.backend.InitializePaystack(middleware.GetUserID(r.Context()), req.OrderID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, paystack)
}

func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req orderRefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	intent, err := h.backend.CreateStripeIntent(middleware.GetUserID(r.Context()), req.OrderID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, intent)
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	orderID, err := strconv.ParseInt(req.OrderID, 10, 64)
	if err != nil {
		respondJSONError(w, "Invalid orderId", http.StatusBadRequest)
		return
	}
	order, err := h.backend.VerifyPayment(middleware.GetUserID(r.Context()), orderID, req.Provider, req.Reference)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// HostedPayment stands in for the Paystack checkout page: visiting it pays
func (h *Handlers) HostedPayment(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "reference")
	order, err := h.backend.CompleteHostedPayment(ref)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":   "Payment successful",
		"reference": ref,
		"orderId":   order.ID,
		"amount":    order.TotalAmount,
	})
}

// Admin Handlers

func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.backend.Metrics())
}

func (h *Handlers) Customers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.backend.Customers(queryInt(r, "page", 0), queryInt(r, "size", 10)))
}

func (h *Handlers) AdminProducts(w http.ResponseWriter, r *http.Request) {
	f := productFilter(r)
	f.IncludeInactive = true
	respondJSON(w, http.StatusOK, h.backend.ListProducts(f))
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in apiclient.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.backend.CreateProduct(in)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in apiclient.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.backend.UpdateProduct(id, in)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.backend.DeleteProduct(id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<10)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		respondJSONError(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		respondJSONError(w, "Failed to read file", http.StatusBadRequest)
		return
	}
	if len(data) > maxImageBytes {
		respondJSONError(w, "Image too large", http.StatusRequestEntityTooLarge)
		return
	}
	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		respondJSONError(w, "File must be an image", http.StatusBadRequest)
		return
	}

	p, err := h.backend.SetProductImage(id, contentType, data, fmt.Sprintf("/uploads/products/%d", id))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) UploadImageURL(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	raw := r.URL.Query().Get("url")
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		respondJSONError(w, "Invalid image URL", http.StatusBadRequest)
		return
	}
	p, err := h.backend.SetProductImage(id, "", nil, u.String())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) ProductImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	contentType, data, err := h.backend.Image(id)
	if err != nil {
		respondJSONError(w, "Image not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

func (h *Handlers) AdminOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.backend.AllOrders(queryInt(r, "page", 0), queryInt(r, "size", 10)))
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.backend.UpdateOrderStatus(id, r.URL.Query().Get("status"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
