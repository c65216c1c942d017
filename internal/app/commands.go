package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

func oneArg(name string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%w: %s expects exactly one argument", ErrUsage, name)
	}
	return strings.TrimSpace(args[0]), nil
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func runLogin(ctx context.Context, a *App, args []string, out io.Writer) error {
	fs := newFlagSet("login")
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "account password")
	admin := fs.Bool("admin", false, "only accept an administrator credential")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("%w: login requires -username and -password", ErrUsage)
	}

	tok, err := a.API.Login(ctx, domain.Credentials{Username: *username, Password: *password})
	if err != nil {
		return err
	}

	if *admin {
		if err := a.Session.LoginAs(tok, domain.RoleAdmin); err != nil {
			return err
		}
	} else {
		a.Session.Login(tok)
	}

	id := a.Session.Identity()
	name := id.Name
	if name == "" {
		name = *username
	}
	fmt.Fprintf(out, "Logged in as %s", name)
	if id.Role != "" {
		fmt.Fprintf(out, " (%s)", id.Role)
	}
	fmt.Fprintln(out)
	return nil
}

func runLogout(_ context.Context, a *App, _ []string, out io.Writer) error {
	a.Session.Logout()
	fmt.Fprintln(out, "Logged out")
	return nil
}

func runWhoami(_ context.Context, a *App, _ []string, out io.Writer) error {
	if !a.Session.IsAuthenticated() {
		fmt.Fprintln(out, "Not logged in")
		return nil
	}
	id := a.Session.Identity()

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "subject:\t%s\n", id.Subject)
	fmt.Fprintf(tw, "name:\t%s\n", id.Name)
	fmt.Fprintf(tw, "role:\t%s\n", id.Role)
	if !id.ExpiresAt.IsZero() {
		state := "valid"
		if id.Expired(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(tw, "expires:\t%s (%s)\n", id.ExpiresAt.Format(time.RFC3339), state)
	}
	return tw.Flush()
}

func runRegister(ctx context.Context, a *App, args []string, out io.Writer) error {
	fs := newFlagSet("register")
	var req domain.RegisterRequest
	fs.StringVar(&req.Username, "username", "", "account name")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.Password, "password", "", "password")
	fs.StringVar(&req.Name, "name", "", "display name")
	fs.StringVar(&req.PhoneNumber, "phone", "", "phone number")
	fs.StringVar(&req.Role, "role", "", "role for the new account (administrators only)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return fmt.Errorf("%w: register requires -username, -email and -password", ErrUsage)
	}

	if req.Role != "" {
		if err := a.Session.RequireRole(domain.RoleAdmin); err != nil {
			return err
		}
		if err := a.API.RegisterAdmin(ctx, req); err != nil {
			return err
		}
		fmt.Fprintf(out, "Registered %s with role %s\n", req.Username, req.Role)
		return nil
	}

	if err := a.API.RegisterClient(ctx, req); err != nil {
		return err
	}
	fmt.Fprintf(out, "Registered %s\n", req.Username)
	return nil
}

func writeProducts(out io.Writer, products []domain.Product) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSKU\tNAME\tPRICE\tSTOCK\tACTIVE")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n", p.ID, p.SKU, p.Name, money(p.CurrentUnitPrice), p.StockQuantity, p.IsActive)
	}
	return tw.Flush()
}

func runProducts(ctx context.Context, a *App, args []string, out io.Writer) error {
	fs := newFlagSet("products")
	admin := fs.Bool("admin", false, "list every product, including inactive ones")
	var q domain.ProductQuery
	fs.StringVar(&q.Search, "search", "", "text filter")
	fs.StringVar(&q.Status, "status", "", "status filter")
	fs.IntVar(&q.PageNumber, "page", 1, "page number")
	fs.IntVar(&q.PageSize, "size", 20, "page size")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	filtered := false
	fs.Visit(func(f *flag.Flag) {
		filtered = filtered || f.Name != "admin"
	})

	var page domain.ProductPage
	switch {
	case *admin:
		if err := a.Session.RequireRole(domain.RoleAdmin); err != nil {
			return err
		}
		p, err := a.Catalog.AdminProducts(ctx, q)
		if err != nil {
			return err
		}
		page = p
	case filtered:
		p, err := a.API.SearchProducts(ctx, q)
		if err != nil {
			return err
		}
		page = p
	default:
		products, err := a.Catalog.Public(ctx)
		if err != nil {
			return err
		}
		return writeProducts(out, products)
	}

	if err := writeProducts(out, page.Items); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d products\n", len(page.Items), page.Total)
	return nil
}

func runProduct(ctx context.Context, a *App, args []string, out io.Writer) error {
	id, err := oneArg("product", args)
	if err != nil {
		return err
	}
	p, err := a.API.Product(ctx, domain.ID(id))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", p.ID)
	fmt.Fprintf(tw, "sku:\t%s\n", p.SKU)
	fmt.Fprintf(tw, "code:\t%s\n", p.InternalCode)
	fmt.Fprintf(tw, "name:\t%s\n", p.Name)
	fmt.Fprintf(tw, "description:\t%s\n", p.Description)
	fmt.Fprintf(tw, "price:\t%s\n", money(p.CurrentUnitPrice))
	fmt.Fprintf(tw, "stock:\t%d\n", p.StockQuantity)
	fmt.Fprintf(tw, "active:\t%t\n", p.IsActive)
	return tw.Flush()
}

func productFlags(fs *flag.FlagSet, in *domain.ProductInput) {
	fs.StringVar(&in.SKU, "sku", in.SKU, "stock keeping unit")
	fs.StringVar(&in.InternalCode, "code", in.InternalCode, "internal code")
	fs.StringVar(&in.Name, "name", in.Name, "product name")
	fs.StringVar(&in.Description, "description", in.Description, "description")
	fs.Float64Var(&in.CurrentUnitPrice, "price", in.CurrentUnitPrice, "unit price")
	fs.IntVar(&in.StockQuantity, "stock", in.StockQuantity, "stock quantity")
	fs.BoolVar(&in.IsActive, "active", in.IsActive, "visible in the public catalog")
}

func runProductCreate(ctx context.Context, a *App, args []string, out io.Writer) error {
	if err := a.Session.RequireRole(domain.RoleAdmin); err != nil {
		return err
	}
	fs := newFlagSet("product-create")
	in := domain.ProductInput{IsActive: true}
	productFlags(fs, &in)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if in.Name == "" || in.SKU == "" {
		return fmt.Errorf("%w: product-create requires -sku and -name", ErrUsage)
	}

	p, err := a.API.CreateProduct(ctx, in)
	if err != nil {
		return err
	}
	a.Catalog.Invalidate(ctx)
	if p.ID != "" {
		fmt.Fprintf(out, "Created product %s\n", p.ID)
	} else {
		fmt.Fprintln(out, "Created product")
	}
	return nil
}

func runProductUpdate(ctx context.Context, a *App, args []string, out io.Writer) error {
	if err := a.Session.RequireRole(domain.RoleAdmin); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: product-update expects a product id", ErrUsage)
	}
	id := domain.ID(args[0])

	current, err := a.API.Product(ctx, id)
	if err != nil {
		return err
	}
	in := domain.ProductInput{
		SKU:              current.SKU,
		InternalCode:     current.InternalCode,
		Name:             current.Name,
		Description:      current.Description,
		CurrentUnitPrice: current.CurrentUnitPrice,
		StockQuantity:    current.StockQuantity,
		IsActive:         current.IsActive,
	}
	fs := newFlagSet("product-update")
	productFlags(fs, &in)
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	if err := a.API.UpdateProduct(ctx, id, in); err != nil {
		return err
	}
	a.Catalog.Invalidate(ctx)
	fmt.Fprintf(out, "Updated product %s\n", id)
	return nil
}

func runProductDelete(ctx context.Context, a *App, args []string, out io.Writer) error {
	if err := a.Session.RequireRole(domain.RoleAdmin); err != nil {
		return err
	}
	id, err := oneArg("product-delete", args)
	if err != nil {
		return err
	}
	if err := a.API.DeleteProduct(ctx, domain.ID(id)); err != nil {
		return err
	}
	a.Catalog.Invalidate(ctx)
	fmt.Fprintf(out, "Deleted product %s\n", id)
	return nil
}

func writeCart(out io.Writer, c domain.Cart) error {
	if c.IsEmpty() {
		fmt.Fprintln(out, "Cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tUNIT\tSUBTOTAL")
	for _, it := range c.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", it.ProductID, it.ProductName, it.Quantity, money(it.UnitPrice), money(it.Subtotal()))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s\n", c.TotalItems(), money(c.TotalPrice()))
	return tw.Flush()
}

func runCart(ctx context.Context, a *App, args []string, out io.Writer) error {
	action := "show"
	if len(args) > 0 {
		action = args[0]
		args = args[1:]
	}

	switch action {
	case "show":
	case "clear":
		a.Cart.ClearCart()
	case "add", "dec", "rm":
		id, err := oneArg("cart "+action, args)
		if err != nil {
			return err
		}
		switch action {
		case "add":
			p, err := a.API.Product(ctx, domain.ID(id))
			if err != nil {
				return err
			}
			a.Cart.AddToCart(domain.LineItemFromProduct(p))
		case "dec":
			a.Cart.DecreaseQuantity(domain.ID(id))
		case "rm":
			a.Cart.RemoveFromCart(domain.ID(id))
		}
	default:
		return fmt.Errorf("%w: unknown cart action %q", ErrUsage, action)
	}

	return writeCart(out, a.Cart.Snapshot())
}

func runCheckout(ctx context.Context, a *App, args []string, out io.Writer) error {
	fs := newFlagSet("checkout")
	shipping := fs.String("shipping", "", "shipping address")
	billing := fs.String("billing", "", "billing address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if err := a.Checkout.Finalize(); err != nil {
		return err
	}
	if a.Checkout.Status() == checkout.StatusAwaitingAuth {
		a.Checkout.Reset()
		return fmt.Errorf("checkout: %w", session.ErrNotAuthenticated)
	}

	total := a.Cart.TotalPrice()
	if err := a.Checkout.Submit(ctx, *shipping, *billing); err != nil {
		return err
	}

	order := a.Checkout.Order()
	if order.ID != "" {
		fmt.Fprintf(out, "Order %s placed, total %s\n", order.ID, money(total))
	} else {
		fmt.Fprintf(out, "Order placed, total %s\n", money(total))
	}
	return nil
}

func writeOrders(out io.Writer, orders []domain.Order) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCUSTOMER\tDATE\tSTATUS\tTOTAL")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.ID, o.CustomerName, o.Date, o.Status, money(o.TotalAmount))
	}
	return tw.Flush()
}

func runOrders(ctx context.Context, a *App, args []string, out io.Writer) error {
	fs := newFlagSet("orders")
	var f catalog.OrderFilter
	var status string
	fs.StringVar(&f.CustomerName, "customer", "", "customer name contains")
	fs.StringVar(&status, "status", "", "status number or label")
	page := fs.Int("page", 1, "page number")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if status != "" {
		s, err := domain.ParseOrderStatus(status)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		f.Status = s
	}

	result, err := a.Catalog.ListOrders(ctx, f, *page)
	if err != nil {
		return err
	}
	if err := writeOrders(out, result.Items); err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d of %d (%d orders)\n", result.PageNumber, result.TotalPages, result.Total)
	return nil
}

func runOrder(ctx context.Context, a *App, args []string, out io.Writer) error {
	id, err := oneArg("order", args)
	if err != nil {
		return err
	}
	o, err := a.API.Order(ctx, domain.ID(id))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", o.ID)
	fmt.Fprintf(tw, "customer:\t%s\n", o.CustomerName)
	fmt.Fprintf(tw, "date:\t%s\n", o.Date)
	fmt.Fprintf(tw, "status:\t%s\n", o.Status)
	fmt.Fprintf(tw, "shipping:\t%s\n", o.ShippingAddress)
	fmt.Fprintf(tw, "billing:\t%s\n", o.BillingAddress)
	if o.Notes != "" {
		fmt.Fprintf(tw, "notes:\t%s\n", o.Notes)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "PRODUCT\tQTY\tUNIT\tSUBTOTAL")
	for _, l := range o.Items {
		name := l.ProductName
		if name == "" {
			name = l.ProductID.String()
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", name, l.Quantity, money(l.UnitPrice), money(float64(l.Quantity)*l.UnitPrice))
	}
	fmt.Fprintf(tw, "total:\t\t\t%s\n", money(o.TotalAmount))
	return tw.Flush()
}

func runOrderStatus(ctx context.Context, a *App, args []string, out io.Writer) error {
	if err := a.Session.RequireRole(domain.RoleAdmin); err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: order-status expects <id> <status>", ErrUsage)
	}
	status, err := domain.ParseOrderStatus(args[1])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := a.API.UpdateOrderStatus(ctx, domain.ID(args[0]), status); err != nil {
		return err
	}
	fmt.Fprintf(out, "Order %s is now %s\n", args[0], status)
	return nil
}

func runStats(ctx context.Context, a *App, _ []string, out io.Writer) error {
	if err := a.Session.RequireRole(domain.RoleAdmin); err != nil {
		return err
	}
	stats := a.Catalog.DashboardStats(ctx)
	if stats.Err != "" {
		return errors.New(stats.Err)
	}
	fmt.Fprintf(out, "products: %d\norders: %d\n", stats.Products, stats.Orders)
	return nil
}
