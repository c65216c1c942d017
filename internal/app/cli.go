package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/session"
)

// ErrUsage is returned for unknown commands or malformed arguments.
var ErrUsage = errors.New("usage error")

// CLI holds the global flags and the command to run.
type CLI struct {
	EnvFile    string
	APIBaseURL string
	LogLevel   string
	Command    string
	Args       []string
}

// ParseConfig parses global flags. The first remaining argument is the command.
func ParseConfig(fs *flag.FlagSet, args []string) (CLI, error) {
	var c CLI
	fs.StringVar(&c.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	fs.StringVar(&c.APIBaseURL, "api", "", "API base url (overrides "+config.Prefix+"API_BASE_URL)")
	fs.StringVar(&c.LogLevel, "log-level", "", "log level (overrides "+config.Prefix+"LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		return CLI{}, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return CLI{}, fmt.Errorf("%w: missing command", ErrUsage)
	}
	c.Command = rest[0]
	c.Args = rest[1:]
	return c, nil
}

type command struct {
	summary string
	run     func(ctx context.Context, a *App, args []string, out io.Writer) error
}

func commands() map[string]command {
	return map[string]command{
		"login":          {"log in: login -username U -password P [-admin]", runLogin},
		"logout":         {"forget the stored credential", runLogout},
		"whoami":         {"show the current session", runWhoami},
		"register":       {"create an account: register -username U -email E -password P -name N [-phone] [-role R]", runRegister},
		"products":       {"list products: products [-admin -search S -status S -page N -size N]", runProducts},
		"product":        {"show one product: product <id>", runProduct},
		"product-create": {"create a product (admin)", runProductCreate},
		"product-update": {"update a product (admin): product-update <id> ...", runProductUpdate},
		"product-delete": {"delete a product (admin): product-delete <id>", runProductDelete},
		"cart":           {"cart [show|add <id>|dec <id>|rm <id>|clear]", runCart},
		"checkout":       {"place an order: checkout -shipping S -billing B", runCheckout},
		"orders":         {"list orders: orders [-customer C -status S -page N]", runOrders},
		"order":          {"show one order: order <id>", runOrder},
		"order-status":   {"change an order status (admin): order-status <id> <status>", runOrderStatus},
		"stats":          {"dashboard figures (admin)", runStats},
	}
}

// Usage writes the command list.
func Usage(w io.Writer) {
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: storefront [-env-file F] [-api URL] [-log-level L] <command> [args]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, cmds[name].summary)
	}
}

// Run loads configuration, builds the App and executes the command.
func Run(ctx context.Context, c CLI, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	if c.Command == "help" {
		Usage(out)
		return nil
	}
	cmd, ok := commands()[c.Command]
	if !ok {
		Usage(errOut)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, c.Command)
	}

	cfg, err := config.Load(c.EnvFile)
	if err != nil {
		return err
	}
	if c.APIBaseURL != "" {
		cfg.APIBaseURL = c.APIBaseURL
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	log := logger.SetupDefault(errOut, level)
	a, err := New(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			log.Warn("shutdown failed", slog.String("error", cerr.Error()))
		}
	}()

	return cmd.run(ctx, a, c.Args, out)
}

// ErrorMessage renders err for the terminal. API and transport failures get
// the user-facing wording; local errors keep their own text.
func ErrorMessage(err error) string {
	var (
		apiErr *gateway.APIError
		urlErr *url.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrForbidden):
		return "Access denied: this account does not have the required role."
	case errors.Is(err, session.ErrNotAuthenticated):
		return "You are not logged in. Run `storefront login` first."
	case errors.Is(err, checkout.ErrMissingAddress),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrMissingSubject),
		errors.Is(err, ErrUsage):
		return capitalize(err.Error())
	case errors.As(err, &apiErr),
		errors.As(err, &urlErr),
		errors.Is(err, gateway.ErrCircuitOpen),
		errors.Is(err, gateway.ErrInvalidCredentials):
		return gateway.UserMessage(err)
	default:
		return err.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}
