package pages

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/readmodel"
)

const authBody = `{"accessToken":"at-1","refreshToken":"rt-1","user":{"id":1,"email":"ada@example.com","firstName":"Ada","lastName":"Obi","role":"USER"}}`

// ============================================
// Helpers
// ============================================

func TestLoginPath(t *testing.T) {
	assert.Equal(t, "/login", loginPath(""))
	assert.Equal(t, "/login", loginPath("/"))
	assert.Equal(t, "/login?from=%2Fcart", loginPath("/cart"))
}

func TestReturnPath(t *testing.T) {
	assert.Equal(t, "/", returnPath(""))
	assert.Equal(t, "/", returnPath("https://evil.example.com"))
	assert.Equal(t, "/", returnPath("/login"))
	assert.Equal(t, "/checkout", returnPath("/checkout"))
}

func TestServerMessage(t *testing.T) {
	e := newTestEnv(t)
	e.backend.respond("GET /api/products/9", http.StatusBadRequest, `{"message":"Product is inactive"}`)
	_, err := e.api.GetProduct(context.Background(), 9)

	assert.Equal(t, "Product is inactive", serverMessage(err, "fallback"))
	assert.Equal(t, "fallback", serverMessage(errors.New("plain"), "fallback"))
}

func TestConsoleNotifier_PrintsAndRecords(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)

	n.Success("Item removed")
	n.Error("Failed to remove item")

	assert.Equal(t, "✓ Item removed\n✗ Failed to remove item\n", buf.String())
	assert.Equal(t, []string{"Failed to remove item"}, n.Errors())
	assert.Len(t, n.Notices(), 2)
}

// ============================================
// Login / Register
// ============================================

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		password   string
		wantFields []string
	}{
		{"valid", "ada@example.com", "secret1", nil},
		{"bad email", "ada@example", "secret1", []string{"email"}},
		{"short password", "ada@example.com", "123", []string{"password"}},
		{"both", "not-an-email", "", []string{"email", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.email, tt.password)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidForm)
			var fields FieldErrors
			require.True(t, errors.As(err, &fields))
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
			assert.Len(t, fields, len(tt.wantFields))
		})
	}
}

func TestLogin_SuccessReturnsToFrom(t *testing.T) {
	e := newTestEnv(t)
	bodyCh := make(chan map[string]any, 1)
	e.backend.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		bodyCh <- decodeBody(t, r)
		writeJSON(w, http.StatusOK, authBody)
	})
	l := NewLogin(e.api, e.session, e.notifier, e.nav)

	require.NoError(t, l.Submit(context.Background(), "ada@example.com", "secret1", "/cart"))

	body := <-bodyCh
	assert.Equal(t, "ada@example.com", body["email"])
	assert.True(t, e.session.IsAuthenticated())
	assert.Equal(t, "at-1", e.session.AccessToken(context.Background()))
	assert.Equal(t, "rt-1", e.session.RefreshToken(context.Background()))
	assert.Equal(t, "/cart", e.nav.Current())
	assert.Equal(t, []Notice{{Level: "success", Message: "Logged in successfully"}}, e.notifier.Notices())
}

func TestLogin_InvalidFormMakesNoCall(t *testing.T) {
	e := newTestEnv(t)
	l := NewLogin(e.api, e.session, e.notifier, e.nav)

	err := l.Submit(context.Background(), "ada", "x", "")

	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Empty(t, e.backend.Calls())
}

func TestLogin_FailureShowsServerMessage(t *testing.T) {
	e := newTestEnv(t)
	e.backend.respond("POST /api/auth/login", http.StatusUnauthorized, `{"message":"Invalid email or password"}`)
	l := NewLogin(e.api, e.session, e.notifier, e.nav)

	require.Error(t, l.Submit(context.Background(), "ada@example.com", "wrong-pass", ""))

	assert.False(t, e.session.IsAuthenticated())
	assert.Equal(t, []string{"Invalid email or password"}, e.notifier.Errors())
	assert.Empty(t, e.nav.Paths())
}

func TestRegister_Success(t *testing.T) {
	e := newTestEnv(t)
	e.backend.respond("POST /api/auth/register", http.StatusOK, authBody)
	r := NewRegister(e.api, e.session, e.notifier, e.nav)

	err := r.Submit(context.Background(), apiclient.RegisterRequest{
		FirstName: "Ada", LastName: "Obi", Email: "ada@example.com", Password: "secret1",
	})

	require.NoError(t, err)
	assert.True(t, e.session.IsAuthenticated())
	assert.Equal(t, RouteHome, e.nav.Current())
}

func TestRegister_MissingNames(t *testing.T) {
	e := newTestEnv(t)
	r := NewRegister(e.api, e.session, e.notifier, e.nav)

	err := r.Submit(context.Background(), apiclient.RegisterRequest{Email: "ada@example.com", Password: "secret1"})

	var fields FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Contains(t, fields, "firstName")
	assert.Contains(t, fields, "lastName")
	assert.Empty(t, e.backend.Calls())
}

// ============================================
// Navbar
// ============================================

func TestNavbar_FollowsStores(t *testing.T) {
	e := newTestEnv(t)
	var renders int
	n := NewNavbar(e.session, e.cart, e.nav, func(NavbarView) { renders++ })
	defer n.Close()

	assert.Equal(t, NavbarView{}, n.View())

	e.login(t, readmodel.RoleAdmin)
	line := readmodel.CartLine{ID: 1, ProductID: 7, Quantity: 2}
	other := readmodel.CartLine{ID: 2, ProductID: 8, Quantity: 3}
	require.NoError(t, e.cart.SetCart(context.Background(), []readmodel.CartLine{line, other}, decimal.NewFromInt(10)))

	view := n.View()
	assert.True(t, view.Authenticated)
	assert.True(t, view.IsAdmin)
	assert.Equal(t, "Ada", view.DisplayName)
	assert.Equal(t, 5, view.CartCount)
	assert.Equal(t, 2, renders)

	require.NoError(t, n.Logout(context.Background()))
	assert.False(t, n.View().Authenticated)
	assert.Equal(t, RouteLogin, e.nav.Current())

	n.Close()
	e.login(t, readmodel.RoleUser)
	assert.False(t, n.View().Authenticated)
}

// ============================================
// Admin
// ============================================

func TestAdmin_LoadsInParallel(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleAdmin)
	e.backend.handle("GET /api/admin/metrics", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		writeJSON(w, http.StatusOK, `{"totalRevenue":125000,"totalOrders":12,"totalProducts":40,"totalCustomers":9}`)
	})
	e.backend.respond("GET /api/admin/customers", http.StatusOK, `{"content":[{"id":2,"email":"b@example.com","role":"USER"}],"totalPages":1}`)
	a := NewAdmin(e.api, e.session, e.notifier, e.nav)

	require.NoError(t, a.Load(context.Background()))

	m, ok := a.Metrics()
	require.True(t, ok)
	assert.Equal(t, int64(12), m.TotalOrders)
	assert.True(t, decimal.NewFromInt(125000).Equal(m.TotalRevenue))
	assert.Len(t, a.Customers(), 1)
	assert.Equal(t, "10", e.backend.query("GET /api/admin/customers").Get("size"))
}

func TestAdmin_LoadFailureKeepsPrevious(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleAdmin)
	e.backend.respond("GET /api/admin/metrics", http.StatusOK, `{"totalOrders":12}`)
	e.backend.respond("GET /api/admin/customers", http.StatusOK, `{"content":[{"id":2}]}`)
	a := NewAdmin(e.api, e.session, e.notifier, e.nav)
	require.NoError(t, a.Load(context.Background()))

	e.backend.respond("GET /api/admin/metrics", http.StatusOK, `{"totalOrders":13}`)
	e.backend.respond("GET /api/admin/customers", http.StatusInternalServerError, ``)
	assert.Error(t, a.Load(context.Background()))

	m, _ := a.Metrics()
	assert.Equal(t, int64(12), m.TotalOrders)
	assert.Len(t, a.Customers(), 1)
	assert.Equal(t, []string{"Failed to load dashboard"}, e.notifier.Errors())
}

func TestAdmin_Guards(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		e := newTestEnv(t)
		a := NewAdmin(e.api, e.session, e.notifier, e.nav)

		assert.ErrorIs(t, a.Load(context.Background()), ErrLoginRequired)
		assert.Equal(t, "/login?from=%2Fadmin", e.nav.Current())
		assert.Empty(t, e.backend.Calls())
	})

	t.Run("customer", func(t *testing.T) {
		e := newTestEnv(t)
		e.login(t, readmodel.RoleUser)
		a := NewAdmin(e.api, e.session, e.notifier, e.nav)

		assert.ErrorIs(t, a.DeleteProduct(context.Background(), 7), ErrAdminRequired)
		assert.Equal(t, RouteHome, e.nav.Current())
		assert.Equal(t, []string{"Admin access required"}, e.notifier.Errors())
		assert.Empty(t, e.backend.Calls())
	})
}

func TestAdmin_UpdateOrderStatus(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleAdmin)
	e.backend.respond("PUT /api/admin/orders/5/status", http.StatusOK, `{"id":5,"status":"SHIPPED"}`)
	a := NewAdmin(e.api, e.session, e.notifier, e.nav)

	_, err := a.UpdateOrderStatus(context.Background(), 5, "LOST")
	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Empty(t, e.backend.Calls())

	order, err := a.UpdateOrderStatus(context.Background(), 5, readmodel.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, readmodel.OrderShipped, order.Status)
	assert.Equal(t, "SHIPPED", e.backend.query("PUT /api/admin/orders/5/status").Get("status"))
}

func TestAdmin_UploadImage(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleAdmin)
	fileCh := make(chan string, 1)
	e.backend.handle("POST /api/admin/products/7/upload-image", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		fileCh <- hdr.Filename
		writeJSON(w, http.StatusOK, product7)
	})
	a := NewAdmin(e.api, e.session, e.notifier, e.nav)

	p, err := a.UploadImage(context.Background(), 7, "rice.png", strings.NewReader("png-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "rice.png", <-fileCh)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, []Notice{{Level: "success", Message: "Image uploaded"}}, e.notifier.Notices())
}

func TestAdmin_CreateProductServerMessage(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, readmodel.RoleAdmin)
	e.backend.respond("POST /api/admin/products", http.StatusConflict, `{"message":"Slug already exists"}`)
	a := NewAdmin(e.api, e.session, e.notifier, e.nav)

	_, err := a.CreateProduct(context.Background(), apiclient.ProductInput{Name: "Ofada Rice 5kg"})

	require.Error(t, err)
	assert.Equal(t, []string{"Slug already exists"}, e.notifier.Errors())
}
