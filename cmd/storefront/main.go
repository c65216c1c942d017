// Command storefront is a terminal client for the store API: session, cart,
// checkout, catalog and order management.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/config"
)

func main() {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.Usage = func() { app.Usage(fs.Output()) }

	cli, err := app.ParseConfig(fs, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		app.Usage(os.Stderr)
		config.Exitf("storefront: %s", app.ErrorMessage(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cli, os.Stdout, os.Stderr); err != nil {
		stop()
		config.Exitf("storefront: %s", app.ErrorMessage(err))
	}
}
