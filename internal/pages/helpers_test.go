package pages

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/infrastructure/store/mocks"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state/cart"
	"github.com/example/ec-storefront/internal/state/session"
)

// fakeBackend routes "METHOD /path" to handlers and records every call in order
type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	queries  map[string]url.Values
	handlers map[string]http.HandlerFunc
}

func (b *fakeBackend) handle(route string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[route] = h
}

func (b *fakeBackend) respond(route string, status int, body string) {
	b.handle(route, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, body)
	})
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *fakeBackend) called(route string) bool {
	for _, c := range b.Calls() {
		if c == route {
			return true
		}
	}
	return false
}

// query returns the query string of the last call to route
func (b *fakeBackend) query(route string) url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[route]
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + r.URL.Path
	b.mu.Lock()
	b.calls = append(b.calls, route)
	b.queries[route] = r.URL.Query()
	h, ok := b.handlers[route]
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, `{"message":"no route `+route+`"}`)
		return
	}
	h(w, r)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Errorf("decode request body: %v", err)
	}
	return body
}

// testEnv wires real stores and a real API client against a fake backend
type testEnv struct {
	backend  *fakeBackend
	api      *apiclient.Client
	kv       *mocks.MockKV
	session  *session.Store
	cart     *cart.Store
	notifier *ConsoleNotifier
	nav      *History
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := &fakeBackend{
		queries:  make(map[string]url.Values),
		handlers: make(map[string]http.HandlerFunc),
	}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	kv := mocks.NewMockKV()
	sess := session.NewStore(kv)
	return &testEnv{
		backend:  backend,
		api:      apiclient.New(apiclient.Config{BaseURL: server.URL + "/api", Tokens: sess}),
		kv:       kv,
		session:  sess,
		cart:     cart.NewStore(kv),
		notifier: NewConsoleNotifier(nil),
		nav:      NewHistory(),
	}
}

func (e *testEnv) login(t *testing.T, role string) {
	t.Helper()
	user := readmodel.User{ID: 1, Email: "ada@example.com", FirstName: "Ada", LastName: "Obi", Role: role}
	require.NoError(t, e.session.SetAuth(context.Background(), user, "access-token", "refresh-token"))
}

const product7 = `{"id":7,"name":"Ofada Rice 5kg","slug":"ofada-rice-5kg","price":1500,"stock":10,"isActive":true,"categoryId":1,"categoryName":"Grains"}`

const cart7x2 = `{"items":[{"id":70,"productId":7,"productName":"Ofada Rice 5kg","productSlug":"ofada-rice-5kg","price":1500,"quantity":2,"subtotal":3000}],"totalAmount":3000}`
