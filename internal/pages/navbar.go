package pages

import (
	"context"
	"sync"

	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state/cart"
	"github.com/example/ec-storefront/internal/state/session"
)

// NavbarView is what the navigation bar renders
type NavbarView struct {
	Authenticated bool
	DisplayName   string
	IsAdmin       bool
	CartCount     int
}

// Navbar follows both stores and re-renders on every change
type Navbar struct {
	session   *session.Store
	cart      *cart.Store
	navigator Navigator

	mu     sync.RWMutex
	view   NavbarView
	render func(NavbarView)
	unsubs []func()
}

// NewNavbar subscribes to both stores. render, if set, is called on each change.
func NewNavbar(sess *session.Store, cartStore *cart.Store, navigator Navigator, render func(NavbarView)) *Navbar {
	n := &Navbar{session: sess, cart: cartStore, navigator: navigator, render: render}
	n.view = n.compute(sess.Snapshot(), cartStore.Snapshot())

	n.unsubs = append(n.unsubs,
		sess.Subscribe(func(s session.Snapshot) {
			n.update(n.compute(s, n.cart.Snapshot()))
		}),
		cartStore.Subscribe(func(c readmodel.CartSnapshot) {
			n.update(n.compute(n.session.Snapshot(), c))
		}),
	)
	return n
}

// View returns the current render state
func (n *Navbar) View() NavbarView {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.view
}

// Logout ends the session and goes to the login page
func (n *Navbar) Logout(ctx context.Context) error {
	err := n.session.Logout(ctx)
	n.navigator.Navigate(RouteLogin)
	return err
}

// Close detaches the navbar from the stores
func (n *Navbar) Close() {
	n.mu.Lock()
	unsubs := n.unsubs
	n.unsubs = nil
	n.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

func (n *Navbar) compute(s session.Snapshot, c readmodel.CartSnapshot) NavbarView {
	view := NavbarView{Authenticated: s.IsAuthenticated}
	if s.User != nil {
		view.DisplayName = s.User.FirstName
		view.IsAdmin = s.User.IsAdmin()
	}
	for _, line := range c.Items {
		view.CartCount += line.Quantity
	}
	return view
}

func (n *Navbar) update(view NavbarView) {
	n.mu.Lock()
	n.view = view
	render := n.render
	n.mu.Unlock()
	if render != nil {
		render(view)
	}
}
