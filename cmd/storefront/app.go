package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/example/ec-storefront/internal/activity"
	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/pages"
	"github.com/example/ec-storefront/internal/state/cart"
	"github.com/example/ec-storefront/internal/state/session"
)

// app wires the stores, the API client and every page controller for one
// CLI invocation
type app struct {
	cfg *config.Config
	log *logrus.Entry

	out       io.Writer
	errOut    io.Writer
	printer   printer
	notifier  *pages.ConsoleNotifier
	navigator *terminalNavigator

	kv      store.KV
	session *session.Store
	cart    *cart.Store
	client  *apiclient.Client

	home     *pages.Home
	products *pages.ProductList
	detail   *pages.ProductDetail
	cartPage *pages.CartPage
	checkout *pages.Checkout
	payment  *pages.PaymentCallback
	orders   *pages.Orders
	login    *pages.Login
	register *pages.Register
	admin    *pages.Admin
	navbar   *pages.Navbar

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, format string, stdout, stderr io.Writer) (*app, error) {
	p, err := newPrinter(format, stdout)
	if err != nil {
		return nil, err
	}

	kv, kvCloser, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Store.Backend, err)
	}

	a := &app{
		cfg:       cfg,
		log:       logging.Component("storefront"),
		out:       stdout,
		errOut:    stderr,
		printer:   p,
		notifier:  pages.NewConsoleNotifier(stderr),
		navigator: newTerminalNavigator(stderr),
		kv:        kv,
		closers:   []func(){func() { _ = kvCloser.Close() }},
	}

	a.session = session.NewStore(kv)
	a.cart = cart.NewStore(kv)
	if err := a.session.Load(ctx); err != nil {
		a.log.WithError(err).Warn("stored session ignored")
	}
	if err := a.cart.Load(ctx); err != nil {
		a.log.WithError(err).Warn("stored cart ignored")
	}

	a.client = apiclient.New(apiclient.Config{
		BaseURL:        cfg.APIURL,
		Timeout:        cfg.HTTPTimeout,
		Tokens:         a.session,
		RefreshEnabled: cfg.TokenRefresh,
		OnUnauthorized: a.sessionExpired,
	})

	a.home = pages.NewHome(a.client, a.notifier)
	a.products = pages.NewProductList(a.client, a.notifier)
	a.detail = pages.NewProductDetail(a.client, a.client, a.session, a.cart, a.notifier, a.navigator)
	a.cartPage = pages.NewCartPage(a.client, a.session, a.cart, a.notifier, a.navigator)
	a.checkout = pages.NewCheckout(a.client, a.session, a.cart, a.notifier, a.navigator)
	a.payment = pages.NewPaymentCallback(a.client, a.cart, a.notifier, a.navigator)
	a.orders = pages.NewOrders(a.client, a.notifier)
	a.login = pages.NewLogin(a.client, a.session, a.notifier, a.navigator)
	a.register = pages.NewRegister(a.client, a.session, a.notifier, a.navigator)
	a.admin = pages.NewAdmin(a.client, a.session, a.notifier, a.navigator)
	a.navbar = pages.NewNavbar(a.session, a.cart, a.navigator, nil)
	a.closers = append(a.closers, a.navbar.Close)

	if cfg.ActivityEnabled {
		a.startActivity(ctx)
	}
	return a, nil
}

// startActivity publishes session, cart and checkout activity to Kafka for
// the lifetime of the app
func (a *app) startActivity(ctx context.Context) {
	producer := kafka.NewProducer(a.cfg.KafkaBrokers, a.cfg.KafkaTopic)
	feed := activity.NewFeed(producer, a.cfg.Store.DeviceID)
	detach := feed.Attach(a.session, a.cart)
	unsubRedirect := a.checkout.OnRedirect(feed.CheckoutRedirected)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := feed.Run(ctx); err != nil {
			a.log.WithError(err).Warn("activity feed stopped")
		}
	}()

	a.closers = append(a.closers, func() {
		unsubRedirect()
		detach()
		feed.Close()
		<-done
		if err := producer.Close(); err != nil {
			a.log.WithError(err).Warn("failed to close activity producer")
		}
	})
	a.log.WithField("topic", a.cfg.KafkaTopic).Debug("activity feed enabled")
}

// sessionExpired runs when a token-bearing request is still rejected after
// the refresh attempt
func (a *app) sessionExpired(ctx context.Context) {
	if !a.session.IsAuthenticated() {
		return
	}
	if err := a.session.Logout(ctx); err != nil {
		a.log.WithError(err).Warn("failed to clear expired session")
	}
	a.notifier.Error("Your session has expired, please login again")
}

// Close releases everything newApp opened, newest first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// requireLogin fails fast for commands that only make sense signed in
func (a *app) requireLogin() error {
	if a.session.IsAuthenticated() {
		return nil
	}
	a.notifier.Error("Please login first: storefront login -email you@example.com -password ...")
	return pages.ErrLoginRequired
}

var errUsage = errors.New("usage")

// usageError carries the usage line of a nested subcommand
type usageError string

func (e usageError) Error() string { return "usage: storefront " + string(e) }
