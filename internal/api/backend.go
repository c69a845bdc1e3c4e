// Package api is an in-memory stand-in for the storefront backend. It serves
// the same REST contract the client consumes so the CLI and the page
// controllers can be exercised end to end without the real service.
package api

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/readmodel"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInactiveProduct    = errors.New("product is not available")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidStatus      = errors.New("invalid order status transition")
	ErrInvalidReference   = errors.New("invalid payment reference")
	ErrCategoryInUse      = errors.New("category has products")
	ErrSlugTaken          = errors.New("slug already exists")
)

var (
	slugRegex        = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugStripPattern = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashPattern  = regexp.MustCompile(`-+`)
)

type userRecord struct {
	user         readmodel.User
	passwordHash string
}

type orderRecord struct {
	order     readmodel.Order
	userID    int64
	reference string
	paid      bool
}

// Backend holds every dev backend table behind one lock
type Backend struct {
	mu     sync.Mutex
	hasher *auth.Hasher
	now    func() time.Time

	// PaymentBaseURL prefixes the fake Paystack authorization URLs
	PaymentBaseURL string

	nextID     int64
	users      map[int64]*userRecord
	byEmail    map[string]int64
	categories map[int64]*readmodel.Category
	products   map[int64]*readmodel.Product
	carts      map[int64][]readmodel.CartLine
	orders     map[int64]*orderRecord
	references map[string]int64
	images     map[int64]storedImage
}

type storedImage struct {
	contentType string
	data        []byte
}

// NewBackend creates an empty backend
func NewBackend(hasher *auth.Hasher) *Backend {
	return &Backend{
		hasher:     hasher,
		now:        time.Now,
		users:      make(map[int64]*userRecord),
		byEmail:    make(map[string]int64),
		categories: make(map[int64]*readmodel.Category),
		products:   make(map[int64]*readmodel.Product),
		carts:      make(map[int64][]readmodel.CartLine),
		orders:     make(map[int64]*orderRecord),
		references: make(map[string]int64),
		images:     make(map[int64]storedImage),
	}
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

// Register creates a customer account
func (b *Backend) Register(firstName, lastName, email, password string) (readmodel.User, error) {
	return b.createUser(firstName, lastName, email, password, readmodel.RoleUser)
}

func (b *Backend) createUser(firstName, lastName, email, password, role string) (readmodel.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(firstName) == "" {
		return readmodel.User{}, ErrInvalidInput
	}
	hash, err := b.hasher.Hash(password)
	if err != nil {
		return readmodel.User{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.byEmail[email]; exists {
		return readmodel.User{}, ErrEmailTaken
	}
	u := readmodel.User{ID: b.id(), Email: email, FirstName: firstName, LastName: lastName, Role: role}
	b.users[u.ID] = &userRecord{user: u, passwordHash: hash}
	b.byEmail[email] = u.ID
	return u, nil
}

// Authenticate checks credentials
func (b *Backend) Authenticate(email, password string) (readmodel.User, error) {
	b.mu.Lock()
	id, ok := b.byEmail[strings.ToLower(strings.TrimSpace(email))]
	var rec userRecord
	if ok {
		rec = *b.users[id]
	}
	b.mu.Unlock()

	if !ok || !b.hasher.Check(password, rec.passwordHash) {
		return readmodel.User{}, ErrInvalidCredentials
	}
	return rec.user, nil
}

// User returns a user by id
func (b *Backend) User(id int64) (readmodel.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.users[id]
	if !ok {
		return readmodel.User{}, ErrNotFound
	}
	return rec.user, nil
}

// Customers lists non-admin users by id
func (b *Backend) Customers(page, size int) readmodel.Page[readmodel.User] {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []readmodel.User
	for _, rec := range b.users {
		if rec.user.Role == readmodel.RoleUser {
			out = append(out, rec.user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, page, size)
}

// Metrics computes the dashboard counters. Revenue counts paid orders only.
func (b *Backend) Metrics() readmodel.DashboardMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := readmodel.DashboardMetrics{
		TotalRevenue:  decimal.Zero,
		TotalOrders:   int64(len(b.orders)),
		TotalProducts: int64(len(b.products)),
	}
	for _, rec := range b.users {
		if rec.user.Role == readmodel.RoleUser {
			m.TotalCustomers++
		}
	}
	for _, rec := range b.orders {
		if rec.order.PaymentStatus == readmodel.PaymentCompleted {
			m.TotalRevenue = m.TotalRevenue.Add(rec.order.TotalAmount)
		}
	}
	return m
}

const maxPageSize = 100

func paginate[T any](items []T, page, size int) readmodel.Page[T] {
	if size <= 0 {
		size = 10
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	if page < 0 {
		page = 0
	}
	total := len(items)
	totalPages := (total + size - 1) / size

	// compare before multiplying so a huge page number cannot overflow
	content := []T{}
	if page < totalPages {
		start := page * size
		end := start + size
		if end > total {
			end = total
		}
		content = make([]T, end-start)
		copy(content, items[start:end])
	}
	return readmodel.Page[T]{
		Content:       content,
		PageNo:        page,
		PageSize:      size,
		TotalElements: int64(total),
		TotalPages:    totalPages,
		Last:          page >= totalPages-1,
	}
}

func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.NewReplacer(" ", "-", "_", "-", "&", "and").Replace(slug)
	slug = slugStripPattern.ReplaceAllString(slug, "")
	slug = slugDashPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
