// Command storefront is a terminal client for the food marketplace: browse
// the catalog, manage the cart, check out and run the admin dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("storefront", flag.ContinueOnError)
	global.SetOutput(stderr)
	format := global.String("o", formatTable, "output format: table, json or yaml")
	envFile := global.String("env", ".env", "dotenv file to load before the environment")
	global.Usage = func() { usage(stderr, global) }

	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage(stderr, global)
		return 2
	}

	cmd, ok := lookup(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		usage(stderr, global)
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: stderr})

	a, err := newApp(ctx, cfg, *format, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer a.Close()

	if err := cmd.run(ctx, a, rest[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		var nested usageError
		if errors.As(err, &nested) {
			fmt.Fprintln(stderr, nested.Error())
			return 2
		}
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "usage: storefront %s %s\n", cmd.name, cmd.usage)
			return 2
		}
		a.log.WithError(err).Debug("command failed")
		if len(a.notifier.Errors()) == 0 {
			fmt.Fprintln(stderr, "error:", err)
		}
		return 1
	}
	return 0
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "usage: storefront [-o table|json|yaml] [-env file] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-16s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	global.PrintDefaults()
}
