package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role values issued by the backend
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// PaymentProvider values accepted by the order and checkout endpoints
const (
	ProviderStripe   = "STRIPE"
	ProviderPaystack = "PAYSTACK"
)

// Order lifecycle values
const (
	OrderPending    = "PENDING"
	OrderProcessing = "PROCESSING"
	OrderShipped    = "SHIPPED"
	OrderDelivered  = "DELIVERED"
	OrderCancelled  = "CANCELLED"
)

// Payment status values
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

// ValidOrderStatus reports whether s is a known order status
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// User is the identity returned by the auth endpoints
type User struct {
	ID        int64  `json:"id" yaml:"id"`
	Email     string `json:"email" yaml:"email"`
	FirstName string `json:"firstName" yaml:"firstName"`
	LastName  string `json:"lastName" yaml:"lastName"`
	Role      string `json:"role" yaml:"role"`
}

// FullName joins first and last name
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user carries the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AuthResponse is the body of login, register and refresh responses
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Product is the read-only projection of a catalog product
type Product struct {
	ID           int64           `json:"id" yaml:"id"`
	Name         string          `json:"name" yaml:"name"`
	Slug         string          `json:"slug" yaml:"slug"`
	Description  string          `json:"description" yaml:"description"`
	Price        decimal.Decimal `json:"price" yaml:"price"`
	ImageURL     string          `json:"imageUrl" yaml:"imageUrl"`
	CategoryID   int64           `json:"categoryId" yaml:"categoryId"`
	CategoryName string          `json:"categoryName" yaml:"categoryName"`
	Stock        int             `json:"stock" yaml:"stock"`
	IsActive     bool            `json:"isActive" yaml:"isActive"`
}

// InStock reports whether at least one unit is available
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Category is a node of the self-referential category tree
type Category struct {
	ID            int64      `json:"id" yaml:"id"`
	Name          string     `json:"name" yaml:"name"`
	Slug          string     `json:"slug" yaml:"slug"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
	ImageURL      string     `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	ParentID      *int64     `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	ParentName    string     `json:"parentName,omitempty" yaml:"parentName,omitempty"`
	Subcategories []Category `json:"subcategories,omitempty" yaml:"subcategories,omitempty"`
	IsActive      *bool      `json:"isActive,omitempty" yaml:"isActive,omitempty"`
	ProductCount  *int       `json:"productCount,omitempty" yaml:"productCount,omitempty"`
}

// CategoryNode is a category paired with its depth in the tree
type CategoryNode struct {
	Category Category
	Depth    int
}

// FlattenCategories walks the tree depth first, preserving sibling order
func FlattenCategories(roots []Category) []CategoryNode {
	var out []CategoryNode
	var walk func(cats []Category, depth int)
	walk = func(cats []Category, depth int) {
		for _, c := range cats {
			out = append(out, CategoryNode{Category: c, Depth: depth})
			walk(c.Subcategories, depth+1)
		}
	}
	walk(roots, 0)
	return out
}

// Page is the paginated envelope used by listing endpoints
type Page[T any] struct {
	Content       []T   `json:"content" yaml:"content"`
	PageNo        int   `json:"pageNo" yaml:"pageNo"`
	PageSize      int   `json:"pageSize" yaml:"pageSize"`
	TotalElements int64 `json:"totalElements" yaml:"totalElements"`
	TotalPages    int   `json:"totalPages" yaml:"totalPages"`
	Last          bool  `json:"last" yaml:"last"`
}

// CartLine is one product entry within a cart
type CartLine struct {
	ID              int64           `json:"id" yaml:"id"`
	ProductID       int64           `json:"productId" yaml:"productId"`
	ProductName     string          `json:"productName" yaml:"productName"`
	ProductSlug     string          `json:"productSlug" yaml:"productSlug"`
	ProductImageURL string          `json:"productImageUrl" yaml:"productImageUrl"`
	Price           decimal.Decimal `json:"price" yaml:"price"`
	Quantity        int             `json:"quantity" yaml:"quantity"`
	Subtotal        decimal.Decimal `json:"subtotal" yaml:"subtotal"`
}

// CartSnapshot is the last-known server truth about the cart
type CartSnapshot struct {
	Items       []CartLine      `json:"items" yaml:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount" yaml:"totalAmount"`
}

// OrderItem is a line of a placed order
type OrderItem struct {
	ID              int64           `json:"id" yaml:"id"`
	ProductID       int64           `json:"productId" yaml:"productId"`
	ProductName     string          `json:"productName" yaml:"productName"`
	ProductImageURL string          `json:"productImageUrl" yaml:"productImageUrl"`
	Quantity        int             `json:"quantity" yaml:"quantity"`
	Price           decimal.Decimal `json:"price" yaml:"price"`
	Subtotal        decimal.Decimal `json:"subtotal" yaml:"subtotal"`
}

// Order is the order record returned by the order and checkout endpoints
type Order struct {
	ID              int64           `json:"id" yaml:"id"`
	OrderNumber     string          `json:"orderNumber" yaml:"orderNumber"`
	Items           []OrderItem     `json:"items" yaml:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount" yaml:"totalAmount"`
	Status          string          `json:"status" yaml:"status"`
	PaymentProvider string          `json:"paymentProvider" yaml:"paymentProvider"`
	PaymentStatus   string          `json:"paymentStatus" yaml:"paymentStatus"`
	ShippingAddress string          `json:"shippingAddress" yaml:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt" yaml:"createdAt"`
	CustomerName    string          `json:"customerName" yaml:"customerName"`
	CustomerEmail   string          `json:"customerEmail" yaml:"customerEmail"`
}

// PaystackInit is the body returned by the Paystack initialize endpoint
type PaystackInit struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

// StripeIntent is the body returned by the Stripe payment intent endpoint
type StripeIntent struct {
	ClientSecret string `json:"clientSecret"`
}

// DashboardMetrics are the admin dashboard counters
type DashboardMetrics struct {
	TotalRevenue   decimal.Decimal `json:"totalRevenue" yaml:"totalRevenue"`
	TotalOrders    int64           `json:"totalOrders" yaml:"totalOrders"`
	TotalProducts  int64           `json:"totalProducts" yaml:"totalProducts"`
	TotalCustomers int64           `json:"totalCustomers" yaml:"totalCustomers"`
}
