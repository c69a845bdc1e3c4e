package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/pages"
	"github.com/example/ec-storefront/internal/readmodel"
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"login", "-email EMAIL -password PASSWORD", "sign in and store the session", runLogin},
	{"register", "-first NAME -last NAME -email EMAIL -password PASSWORD", "create an account and sign in", runRegister},
	{"logout", "", "end the stored session", runLogout},
	{"whoami", "", "show the signed-in user", runWhoami},
	{"home", "", "show featured products", runHome},
	{"products", "[-page N] [-category ID] [-search TERM]", "browse the catalog", runProducts},
	{"product", "SLUG|ID", "show one product", runProduct},
	{"categories", "", "show the category tree", runCategories},
	{"cart", "[show | add PRODUCT [-qty N] | set ITEM QTY | remove ITEM | clear]", "view and change the cart", runCart},
	{"buy-now", "PRODUCT [-qty N]", "replace the cart with one product and go to checkout", runBuyNow},
	{"checkout", "-address A -city C -state S -zip Z [-provider PAYSTACK|STRIPE]", "place an order and start payment", runCheckout},
	{"verify-payment", "-order ID -provider P [-reference REF]", "confirm a payment after the provider redirect", runVerifyPayment},
	{"orders", "[ID] [-page N]", "list orders or show one", runOrders},
	{"admin", "SUBCOMMAND [flags]", "admin dashboard and catalog management", runAdmin},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// ==========================================
// Account
// ==========================================

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	from := fs.String("from", "", "route to return to after signing in")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.login.Submit(ctx, *email, *password, *from); err != nil {
		return err
	}
	user, _ := a.session.User()
	return a.printer.print(user, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Signed in as\t%s <%s>\n", user.FullName(), user.Email)
	})
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("register")
	var in apiclient.RegisterRequest
	fs.StringVar(&in.FirstName, "first", "", "first name")
	fs.StringVar(&in.LastName, "last", "", "last name")
	fs.StringVar(&in.Email, "email", "", "account email")
	fs.StringVar(&in.Password, "password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.register.Submit(ctx, in); err != nil {
		return err
	}
	user, _ := a.session.User()
	return a.printer.print(user, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Signed in as\t%s <%s>\n", user.FullName(), user.Email)
	})
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.navbar.Logout(ctx); err != nil {
		return err
	}
	a.notifier.Success("Logged out")
	return nil
}

type whoami struct {
	User          *readmodel.User `json:"user" yaml:"user"`
	CartItems     int             `json:"cartItems" yaml:"cartItems"`
	TokenExpires  *time.Time      `json:"tokenExpires,omitempty" yaml:"tokenExpires,omitempty"`
	TokenExpired  bool            `json:"tokenExpired" yaml:"tokenExpired"`
	Authenticated bool            `json:"authenticated" yaml:"authenticated"`
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	view := a.navbar.View()
	out := whoami{Authenticated: view.Authenticated, CartItems: view.CartCount}
	if user, ok := a.session.User(); ok {
		out.User = &user
	}
	if claims, err := auth.Inspect(a.session.AccessToken(ctx)); err == nil && claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		out.TokenExpires = &exp
		out.TokenExpired = claims.Expired(time.Now())
	}

	return a.printer.print(out, func(w *tabwriter.Writer) {
		if !out.Authenticated {
			fmt.Fprintln(w, "Not signed in")
			return
		}
		fmt.Fprintf(w, "User\t%s <%s>\n", view.DisplayName, out.User.Email)
		fmt.Fprintf(w, "Role\t%s\n", out.User.Role)
		fmt.Fprintf(w, "Cart\t%d item(s)\n", out.CartItems)
		if out.TokenExpires != nil {
			state := "valid until"
			if out.TokenExpired {
				state = "expired at"
			}
			fmt.Fprintf(w, "Access token\t%s %s\n", state, out.TokenExpires.Local().Format(time.RFC1123))
		}
	})
}

// ==========================================
// Catalog
// ==========================================

func runHome(ctx context.Context, a *app, _ []string) error {
	if err := a.home.Load(ctx); err != nil {
		return err
	}
	featured := a.home.Featured()
	return a.printer.print(featured, productTable(featured))
}

type productPage struct {
	Products   []readmodel.Product `json:"products" yaml:"products"`
	Page       int                 `json:"page" yaml:"page"`
	TotalPages int                 `json:"totalPages" yaml:"totalPages"`
}

func runProducts(ctx context.Context, a *app, args []string) error {
	fs := a.flags("products")
	page := fs.Int("page", 1, "page number, starting at 1")
	category := fs.Int64("category", 0, "category id filter")
	search := fs.String("search", "", "search term")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page < 1 {
		return errUsage
	}

	if err := a.products.LoadSearch(ctx, *page-1, *category, *search); err != nil {
		return err
	}

	current, total := a.products.Page()
	out := productPage{Products: a.products.Products(), Page: current + 1, TotalPages: total}
	return a.printer.print(out, func(w *tabwriter.Writer) {
		if len(out.Products) == 0 {
			fmt.Fprintln(w, "No products found")
			return
		}
		productTable(out.Products)(w)
		pageFooter(w, current, total)
	})
}

func runProduct(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.detail.Load(ctx, args[0]); err != nil {
		if a.detail.NotFound() {
			a.notifier.Error("Product not found")
		}
		return err
	}
	product, _ := a.detail.Product()
	return a.printer.print(product, productDetailTable(product, 0))
}

func runCategories(ctx context.Context, a *app, _ []string) error {
	cats, err := a.client.ListCategories(ctx)
	if err != nil {
		a.notifier.Error(apiclient.Message(err))
		return err
	}
	return a.printer.print(cats, categoryTable(readmodel.FlattenCategories(cats)))
}

// ==========================================
// Cart and checkout
// ==========================================

func runCart(ctx context.Context, a *app, args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	switch sub {
	case "show":
		if err := a.cartPage.Load(ctx); err != nil {
			return err
		}

	case "add":
		fs := a.flags("cart add")
		qty := fs.Int("qty", 1, "quantity to add")
		key, err := parseKeyAndFlags(fs, args)
		if err != nil {
			return err
		}
		if err := a.loadForPurchase(ctx, key, *qty); err != nil {
			return err
		}
		if err := a.detail.AddToCart(ctx); err != nil {
			return err
		}

	case "set":
		if len(args) != 2 {
			return errUsage
		}
		itemID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errUsage
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return errUsage
		}
		if qty < 1 {
			a.notifier.Error("Quantity must be at least 1, use 'cart remove' to drop a line")
			return pages.ErrInvalidQuantity
		}
		if err := a.cartPage.UpdateQuantity(ctx, itemID, qty); err != nil {
			return err
		}

	case "remove":
		if len(args) != 1 {
			return errUsage
		}
		itemID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errUsage
		}
		if err := a.cartPage.Remove(ctx, itemID); err != nil {
			return err
		}

	case "clear":
		if err := a.client.ClearCart(ctx); err != nil {
			a.notifier.Error(apiclient.Message(err))
			return err
		}
		if err := a.cart.ClearCart(ctx); err != nil {
			return err
		}
		a.notifier.Success("Cart cleared")

	default:
		return errUsage
	}

	snap := a.cartPage.Snapshot()
	return a.printer.print(snap, cartTable(snap))
}

func runBuyNow(ctx context.Context, a *app, args []string) error {
	fs := a.flags("buy-now")
	qty := fs.Int("qty", 1, "quantity to buy")
	key, err := parseKeyAndFlags(fs, args)
	if err != nil {
		return err
	}
	if err := a.loadForPurchase(ctx, key, *qty); err != nil {
		return err
	}
	if err := a.detail.BuyNow(ctx); err != nil {
		return err
	}
	snap := a.cart.Snapshot()
	if err := a.printer.print(snap, cartTable(snap)); err != nil {
		return err
	}
	fmt.Fprintln(a.errOut, "Run 'storefront checkout' with your shipping details to pay.")
	return nil
}

// loadForPurchase opens the product page and selects qty
func (a *app) loadForPurchase(ctx context.Context, key string, qty int) error {
	if err := a.detail.Load(ctx, key); err != nil {
		if a.detail.NotFound() {
			a.notifier.Error("Product not found")
		}
		return err
	}
	a.detail.SetQuantity(qty)
	return nil
}

func runCheckout(ctx context.Context, a *app, args []string) error {
	fs := a.flags("checkout")
	var form pages.ShippingForm
	fs.StringVar(&form.Address, "address", "", "street address")
	fs.StringVar(&form.City, "city", "", "city")
	fs.StringVar(&form.State, "state", "", "state")
	fs.StringVar(&form.ZipCode, "zip", "", "zip code")
	fs.StringVar(&form.Provider, "provider", readmodel.ProviderPaystack, "payment provider: PAYSTACK or STRIPE")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if a.session.IsAuthenticated() {
		// The stored cart may be stale; the checkout guard reads it.
		if err := a.cartPage.Load(ctx); err != nil {
			return err
		}
	}
	if !a.checkout.Enter() {
		if !a.session.IsAuthenticated() {
			return a.requireLogin()
		}
		a.notifier.Error("Your cart is empty")
		return pages.ErrEmptyCart
	}

	if err := a.checkout.Submit(ctx, form); err != nil {
		return err
	}
	redirect, _ := a.checkout.Redirect()
	return a.printer.print(redirect, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Order\t%s (#%d)\n", redirect.OrderNumber, redirect.OrderID)
		fmt.Fprintf(w, "Amount\t%s\n", readmodel.FormatPrice(redirect.Amount))
		fmt.Fprintf(w, "Provider\t%s\n", redirect.Provider)
		if redirect.URL != "" {
			fmt.Fprintf(w, "Pay at\t%s\n", redirect.URL)
		}
		fmt.Fprintf(w, "Then run\tstorefront verify-payment -order %d -provider %s -reference %s\n",
			redirect.OrderID, redirect.Provider, redirect.Reference)
	})
}

func runVerifyPayment(ctx context.Context, a *app, args []string) error {
	fs := a.flags("verify-payment")
	orderID := fs.Int64("order", 0, "order id")
	provider := fs.String("provider", readmodel.ProviderPaystack, "payment provider")
	reference := fs.String("reference", "", "provider payment reference")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == 0 {
		return errUsage
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	order, err := a.payment.Verify(ctx, *orderID, *provider, *reference)
	if order != nil {
		if perr := a.printer.print(*order, orderDetailTable(*order)); perr != nil {
			return perr
		}
	}
	return err
}

// ==========================================
// Orders
// ==========================================

func runOrders(ctx context.Context, a *app, args []string) error {
	fs := a.flags("orders")
	page := fs.Int("page", 1, "page number, starting at 1")
	size := fs.Int("size", 10, "orders per page")
	key, err := parseOptionalKeyAndFlags(fs, args)
	if err != nil {
		return err
	}
	if *page < 1 || *size < 1 {
		return errUsage
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	if key != "" {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return errUsage
		}
		if err := a.orders.Open(ctx, id); err != nil {
			return err
		}
		order, _ := a.orders.Detail()
		return a.printer.print(order, orderDetailTable(order))
	}

	if err := a.orders.Load(ctx, *page-1, *size); err != nil {
		return err
	}
	list := a.orders.List()
	return a.printer.print(list, orderTable(list))
}

// parseKeyAndFlags accepts one positional argument before or after the flags
func parseKeyAndFlags(fs *flag.FlagSet, args []string) (string, error) {
	key, err := parseOptionalKeyAndFlags(fs, args)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errUsage
	}
	return key, nil
}

func parseOptionalKeyAndFlags(fs *flag.FlagSet, args []string) (string, error) {
	var key string
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		key, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	switch rest := fs.Args(); {
	case len(rest) == 0:
	case len(rest) == 1 && key == "":
		key = rest[0]
	default:
		return "", errUsage
	}
	return key, nil
}
