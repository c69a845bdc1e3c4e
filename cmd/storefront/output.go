package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/example/ec-storefront/internal/readmodel"
)

// Output formats accepted by -o
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type printer struct {
	format string
	out    io.Writer
}

func newPrinter(format string, out io.Writer) (printer, error) {
	switch format {
	case "", formatTable:
		return printer{format: formatTable, out: out}, nil
	case formatJSON, formatYAML:
		return printer{format: format, out: out}, nil
	}
	return printer{}, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// print writes v as JSON or YAML, or hands a tabwriter to table for the
// human format
func (p printer) print(v any, table func(w *tabwriter.Writer)) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func productTable(products []readmodel.Product) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY\tSLUG")
		for _, p := range products {
			stock := fmt.Sprint(p.Stock)
			if !p.InStock() {
				stock = "out of stock"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				p.ID, p.Name, readmodel.FormatPrice(p.Price), stock, p.CategoryName, p.Slug)
		}
	}
}

func productDetailTable(p readmodel.Product, quantity int) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Name\t%s\n", p.Name)
		fmt.Fprintf(w, "Price\t%s\n", readmodel.FormatPrice(p.Price))
		fmt.Fprintf(w, "Category\t%s\n", p.CategoryName)
		if p.InStock() {
			fmt.Fprintf(w, "Stock\t%d available\n", p.Stock)
		} else {
			fmt.Fprintln(w, "Stock\tOut of stock")
		}
		if p.Description != "" {
			fmt.Fprintf(w, "Description\t%s\n", p.Description)
		}
		if p.ImageURL != "" {
			fmt.Fprintf(w, "Image\t%s\n", p.ImageURL)
		}
		if quantity > 0 {
			fmt.Fprintf(w, "Quantity\t%d\n", quantity)
		}
	}
}

func categoryTable(nodes []readmodel.CategoryNode) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tSLUG")
		for _, n := range nodes {
			fmt.Fprintf(w, "%d\t%s%s\t%s\n", n.Category.ID, strings.Repeat("  ", n.Depth), n.Category.Name, n.Category.Slug)
		}
	}
}

func cartTable(snap readmodel.CartSnapshot) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		if len(snap.Items) == 0 {
			fmt.Fprintln(w, "Your cart is empty")
			return
		}
		fmt.Fprintln(w, "ITEM\tPRODUCT\tPRICE\tQTY\tSUBTOTAL")
		for _, line := range snap.Items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
				line.ID, line.ProductName, readmodel.FormatPrice(line.Price), line.Quantity, readmodel.FormatPrice(line.Subtotal))
		}
		fmt.Fprintf(w, "\t\t\tTOTAL\t%s\n", readmodel.FormatPrice(snap.TotalAmount))
	}
}

func orderTable(orders []readmodel.Order) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		if len(orders) == 0 {
			fmt.Fprintln(w, "No orders yet")
			return
		}
		fmt.Fprintln(w, "ID\tNUMBER\tDATE\tTOTAL\tSTATUS\tPAYMENT")
		for _, o := range orders {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s %s\n",
				o.ID, o.OrderNumber, o.CreatedAt.Format("2006-01-02"), readmodel.FormatPrice(o.TotalAmount),
				o.Status, o.PaymentProvider, o.PaymentStatus)
		}
	}
}

func orderDetailTable(o readmodel.Order) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Order\t%s (#%d)\n", o.OrderNumber, o.ID)
		fmt.Fprintf(w, "Placed\t%s\n", o.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "Status\t%s\n", o.Status)
		fmt.Fprintf(w, "Payment\t%s %s\n", o.PaymentProvider, o.PaymentStatus)
		fmt.Fprintf(w, "Ship to\t%s\n", o.ShippingAddress)
		if o.CustomerEmail != "" {
			fmt.Fprintf(w, "Customer\t%s <%s>\n", o.CustomerName, o.CustomerEmail)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "PRODUCT\tQTY\tPRICE\tSUBTOTAL")
		for _, item := range o.Items {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				item.ProductName, item.Quantity, readmodel.FormatPrice(item.Price), readmodel.FormatPrice(item.Subtotal))
		}
		fmt.Fprintf(w, "\t\tTOTAL\t%s\n", readmodel.FormatPrice(o.TotalAmount))
	}
}

func userTable(users []readmodel.User) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.FullName(), u.Email, u.Role)
		}
	}
}

func metricsTable(m readmodel.DashboardMetrics) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Revenue\t%s\n", readmodel.FormatPrice(m.TotalRevenue))
		fmt.Fprintf(w, "Orders\t%d\n", m.TotalOrders)
		fmt.Fprintf(w, "Products\t%d\n", m.TotalProducts)
		fmt.Fprintf(w, "Customers\t%d\n", m.TotalCustomers)
	}
}

func pageFooter(w *tabwriter.Writer, current, total int) {
	if total > 1 {
		fmt.Fprintf(w, "\nPage %d of %d\n", current+1, total)
	}
}
