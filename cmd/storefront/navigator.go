package main

import (
	"fmt"
	"io"

	"github.com/example/ec-storefront/internal/pages"
)

// terminalNavigator records moves like pages.History and tells the user
// where the flow would take them
type terminalNavigator struct {
	*pages.History
	out io.Writer
}

func newTerminalNavigator(out io.Writer) *terminalNavigator {
	return &terminalNavigator{History: pages.NewHistory(), out: out}
}

func (n *terminalNavigator) Navigate(path string) {
	n.History.Navigate(path)
	fmt.Fprintf(n.out, "→ %s\n", path)
}

func (n *terminalNavigator) Redirect(externalURL string) {
	n.History.Redirect(externalURL)
	fmt.Fprintf(n.out, "Open this link to pay: %s\n", externalURL)
}
