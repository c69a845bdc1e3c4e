package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/pages"
	"github.com/example/ec-storefront/internal/readmodel"
)

type adminCommand struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var adminCommands = []adminCommand{
	{"dashboard", "", adminDashboard},
	{"customers", "[-page N] [-size N]", adminCustomers},
	{"products", "[-page N] [-size N]", adminProducts},
	{"orders", "[-page N] [-size N]", adminOrders},
	{"order-status", "ID STATUS", adminOrderStatus},
	{"product-create", "-name N -price P -stock S -category ID [-description D] [-image URL] [-inactive]", adminProductCreate},
	{"product-update", "ID -name N -price P -stock S -category ID [-description D] [-image URL] [-inactive]", adminProductUpdate},
	{"product-delete", "ID", adminProductDelete},
	{"upload-image", "ID FILE", adminUploadImage},
	{"upload-image-url", "ID URL", adminUploadImageURL},
	{"category-create", "-name N [-parent ID] [-description D]", adminCategoryCreate},
	{"category-delete", "ID", adminCategoryDelete},
}

func runAdmin(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		args = []string{"dashboard"}
	}
	for _, c := range adminCommands {
		if c.name != args[0] {
			continue
		}
		err := c.run(ctx, a, args[1:])
		if errors.Is(err, errUsage) {
			return usageError("admin " + c.name + " " + c.usage)
		}
		return err
	}
	fmt.Fprintln(a.errOut, "admin subcommands:")
	for _, c := range adminCommands {
		fmt.Fprintf(a.errOut, "  %-18s %s\n", c.name, c.usage)
	}
	return errUsage
}

type dashboard struct {
	Metrics   readmodel.DashboardMetrics `json:"metrics" yaml:"metrics"`
	Customers []readmodel.User           `json:"recentCustomers" yaml:"recentCustomers"`
}

func adminDashboard(ctx context.Context, a *app, _ []string) error {
	if err := a.admin.Load(ctx); err != nil {
		return err
	}
	metrics, _ := a.admin.Metrics()
	out := dashboard{Metrics: metrics, Customers: a.admin.Customers()}
	return a.printer.print(out, func(w *tabwriter.Writer) {
		metricsTable(out.Metrics)(w)
		fmt.Fprintln(w)
		userTable(out.Customers)(w)
	})
}

func pageFlags(a *app, name string, args []string) (page, size int, err error) {
	fs := a.flags(name)
	p := fs.Int("page", 1, "page number, starting at 1")
	s := fs.Int("size", 10, "rows per page")
	if err := fs.Parse(args); err != nil {
		return 0, 0, err
	}
	if *p < 1 || *s < 1 {
		return 0, 0, errUsage
	}
	return *p - 1, *s, nil
}

func adminCustomers(ctx context.Context, a *app, args []string) error {
	page, size, err := pageFlags(a, "admin customers", args)
	if err != nil {
		return err
	}
	result, err := a.admin.ListCustomers(ctx, page, size)
	if err != nil {
		return err
	}
	return a.printer.print(result, func(w *tabwriter.Writer) {
		userTable(result.Content)(w)
		pageFooter(w, result.PageNo, result.TotalPages)
	})
}

func adminProducts(ctx context.Context, a *app, args []string) error {
	page, size, err := pageFlags(a, "admin products", args)
	if err != nil {
		return err
	}
	result, err := a.admin.ListProducts(ctx, page, size)
	if err != nil {
		return err
	}
	return a.printer.print(result, func(w *tabwriter.Writer) {
		productTable(result.Content)(w)
		pageFooter(w, result.PageNo, result.TotalPages)
	})
}

func adminOrders(ctx context.Context, a *app, args []string) error {
	page, size, err := pageFlags(a, "admin orders", args)
	if err != nil {
		return err
	}
	result, err := a.admin.ListOrders(ctx, page, size)
	if err != nil {
		return err
	}
	return a.printer.print(result, func(w *tabwriter.Writer) {
		orderTable(result.Content)(w)
		pageFooter(w, result.PageNo, result.TotalPages)
	})
}

func adminOrderStatus(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errUsage
	}
	order, err := a.admin.UpdateOrderStatus(ctx, id, args[1])
	if err != nil {
		return err
	}
	return a.printer.print(order, orderDetailTable(*order))
}

// productFlags binds the product form to fs
func productFlags(fs *flag.FlagSet) func() (apiclient.ProductInput, error) {
	var in apiclient.ProductInput
	var price string
	var inactive bool
	fs.StringVar(&in.Name, "name", "", "product name")
	fs.StringVar(&in.Slug, "slug", "", "url slug, generated from the name when empty")
	fs.StringVar(&in.Description, "description", "", "description")
	fs.StringVar(&price, "price", "", "unit price in naira")
	fs.IntVar(&in.Stock, "stock", 0, "units in stock")
	fs.Int64Var(&in.CategoryID, "category", 0, "category id")
	fs.StringVar(&in.ImageURL, "image", "", "image url")
	fs.BoolVar(&inactive, "inactive", false, "hide the product from the storefront")

	return func() (apiclient.ProductInput, error) {
		p, err := decimal.NewFromString(price)
		if err != nil {
			return apiclient.ProductInput{}, fmt.Errorf("%w: invalid price %q", pages.ErrInvalidForm, price)
		}
		in.Price = p
		in.IsActive = !inactive
		return in, nil
	}
}

func adminProductCreate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("admin product-create")
	form := productFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	in, err := form()
	if err != nil {
		return err
	}
	product, err := a.admin.CreateProduct(ctx, in)
	if err != nil {
		return err
	}
	return a.printer.print(product, productDetailTable(*product, 0))
}

func adminProductUpdate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("admin product-update")
	form := productFlags(fs)
	key, err := parseKeyAndFlags(fs, args)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return errUsage
	}
	in, err := form()
	if err != nil {
		return err
	}
	product, err := a.admin.UpdateProduct(ctx, id, in)
	if err != nil {
		return err
	}
	return a.printer.print(product, productDetailTable(*product, 0))
}

func adminProductDelete(ctx context.Context, a *app, args []string) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}
	return a.admin.DeleteProduct(ctx, id)
}

func adminUploadImage(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errUsage
	}
	f, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	product, err := a.admin.UploadImage(ctx, id, filepath.Base(args[1]), f)
	if err != nil {
		return err
	}
	return a.printer.print(product, productDetailTable(*product, 0))
}

func adminUploadImageURL(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errUsage
	}
	product, err := a.admin.UploadImageURL(ctx, id, args[1])
	if err != nil {
		return err
	}
	return a.printer.print(product, productDetailTable(*product, 0))
}

func adminCategoryCreate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("admin category-create")
	var in apiclient.CategoryInput
	parent := fs.Int64("parent", 0, "parent category id")
	fs.StringVar(&in.Name, "name", "", "category name")
	fs.StringVar(&in.Slug, "slug", "", "url slug, generated from the name when empty")
	fs.StringVar(&in.Description, "description", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *parent != 0 {
		in.ParentID = parent
	}

	category, err := a.admin.CreateCategory(ctx, in)
	if err != nil {
		return err
	}
	return a.printer.print(category, categoryTable([]readmodel.CategoryNode{{Category: *category}}))
}

func adminCategoryDelete(ctx context.Context, a *app, args []string) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}
	return a.admin.DeleteCategory(ctx, id)
}

func singleID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, errUsage
	}
	return id, nil
}
