// Package checkout drives the order funnel: authentication gate, address
// collection, a single order submission and the cart clear that follows it.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	"github.com/fjod/go_cart/storefront/internal/session"
)

type Session interface {
	IsAuthenticated() bool
	Identity() session.Identity
}

type Cart interface {
	Items() []domain.LineItem
	ClearCart()
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, draft domain.OrderDraft, idempotencyKey string) (domain.Order, error)
}

// Recorder counts submission outcomes.
type Recorder interface {
	ObserveCheckout(outcome string)
}

const (
	OutcomeSuccess      = "success"
	OutcomeFailed       = "failed"
	OutcomeUnauthorized = "unauthorized"
	OutcomeStale        = "stale"
)

type nopRecorder struct{}

func (nopRecorder) ObserveCheckout(string) {}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.metrics = r
		}
	}
}

type Orchestrator struct {
	session Session
	cart    Cart
	orders  OrderCreator
	logger  *slog.Logger
	metrics Recorder
	newKey  func() string

	mu      sync.Mutex
	status  Status
	draft   *domain.OrderDraft
	key     string
	order   domain.Order
	lastErr error
	gen     uint64
}

func NewOrchestrator(sess Session, cart Cart, orders OrderCreator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		session: sess,
		cart:    cart,
		orders:  orders,
		logger:  slog.Default(),
		metrics: nopRecorder{},
		newKey:  uuid.NewString,
		status:  StatusIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Watch moves the funnel forward when a login completes and back to the
// authentication step when the session ends mid-checkout.
func (o *Orchestrator) Watch(m interface{ OnChange(func(session.Event)) }) {
	m.OnChange(func(ev session.Event) {
		if ev.Authenticated {
			_ = o.LoginSucceeded()
			return
		}
		o.mu.Lock()
		defer o.mu.Unlock()
		if o.status == StatusAwaitingAddress || o.status == StatusFailed {
			_ = o.transition(StatusAwaitingAuth)
		}
	})
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Draft returns the order draft held for a retry, if any.
func (o *Orchestrator) Draft() (domain.OrderDraft, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.draft == nil {
		return domain.OrderDraft{}, false
	}
	return cloneDraft(*o.draft), true
}

// Order is the server's answer to the last successful submission.
func (o *Orchestrator) Order() domain.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.order
}

func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Finalize starts checkout from Idle. A completed checkout is cleared first so
// the next order starts over.
func (o *Orchestrator) Finalize() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status.IsTerminal() {
		o.clear()
	}
	if o.status != StatusIdle {
		return fmt.Errorf("finalize from %s: %w", o.status, ErrIllegalTransition)
	}
	o.lastErr = nil
	if o.session.IsAuthenticated() {
		return o.transition(StatusAwaitingAddress)
	}
	return o.transition(StatusAwaitingAuth)
}

// LoginSucceeded resumes a checkout that was waiting for authentication.
func (o *Orchestrator) LoginSucceeded() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status != StatusAwaitingAuth {
		return fmt.Errorf("login from %s: %w", o.status, ErrIllegalTransition)
	}
	if !o.session.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}
	o.lastErr = nil
	return o.transition(StatusAwaitingAddress)
}

// Edit returns a failed checkout to the address step, keeping the draft.
func (o *Orchestrator) Edit() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status != StatusFailed {
		return fmt.Errorf("edit from %s: %w", o.status, ErrIllegalTransition)
	}
	return o.transition(StatusAwaitingAddress)
}

// Cancel abandons the checkout. The cart is untouched.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !CanTransitionTo(o.status, StatusIdle) {
		return fmt.Errorf("cancel from %s: %w", o.status, ErrIllegalTransition)
	}
	o.clear()
	return nil
}

// Reset returns to Idle from any state. A submission still in flight is
// discarded when it returns.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clear()
}

func (o *Orchestrator) clear() {
	o.gen++
	o.status = StatusIdle
	o.draft = nil
	o.key = ""
	o.order = domain.Order{}
	o.lastErr = nil
}

// Submit validates the addresses, builds the draft from the cart and creates
// the order. It issues at most one network call and never retries.
func (o *Orchestrator) Submit(ctx context.Context, shipping, billing string) error {
	draft, key, gen, err := o.prepare(shipping, billing)
	if err != nil {
		return err
	}

	o.logger.InfoContext(ctx, "submitting order",
		slog.String("customer_id", draft.CustomerID),
		slog.Int("lines", len(draft.Items)),
		slog.String("idempotency_key", key),
	)
	order, err := o.orders.CreateOrder(ctx, draft, key)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.gen != gen {
		if err == nil {
			// The order exists server-side; keeping the cart would invite a
			// duplicate.
			o.cart.ClearCart()
		}
		o.metrics.ObserveCheckout(OutcomeStale)
		o.logger.InfoContext(ctx, "discarding late checkout response", slog.Bool("accepted", err == nil))
		return ErrStale
	}

	if err != nil {
		o.lastErr = err
		if errors.Is(err, gateway.ErrUnauthorized) {
			o.metrics.ObserveCheckout(OutcomeUnauthorized)
			_ = o.transition(StatusAwaitingAuth)
		} else {
			o.metrics.ObserveCheckout(OutcomeFailed)
			_ = o.transition(StatusFailed)
		}
		o.logger.WarnContext(ctx, "order submission failed",
			slog.String("status", o.status.String()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("create order: %w", err)
	}

	o.cart.ClearCart()
	o.order = order
	o.draft = nil
	o.key = ""
	o.lastErr = nil
	o.metrics.ObserveCheckout(OutcomeSuccess)
	o.logger.InfoContext(ctx, "order created", slog.String("order_id", order.ID.String()))
	return o.transition(StatusSuccess)
}

// prepare runs every local check and moves to Submitting. Validation failures
// leave the status unchanged.
func (o *Orchestrator) prepare(shipping, billing string) (domain.OrderDraft, string, uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status != StatusAwaitingAddress && o.status != StatusFailed {
		return domain.OrderDraft{}, "", 0, fmt.Errorf("submit from %s: %w", o.status, ErrIllegalTransition)
	}

	fail := func(err error) (domain.OrderDraft, string, uint64, error) {
		o.lastErr = err
		return domain.OrderDraft{}, "", 0, err
	}

	shipping, billing = strings.TrimSpace(shipping), strings.TrimSpace(billing)
	if shipping == "" || billing == "" {
		return fail(ErrMissingAddress)
	}
	if !o.session.IsAuthenticated() {
		_ = o.transition(StatusAwaitingAuth)
		return fail(session.ErrNotAuthenticated)
	}
	subject := o.session.Identity().Subject
	if subject == "" {
		return fail(ErrMissingSubject)
	}
	items := o.cart.Items()
	if len(items) == 0 {
		return fail(ErrEmptyCart)
	}

	draft := BuildDraft(subject, shipping, billing, items)
	if o.draft == nil || o.key == "" || !sameDraft(*o.draft, draft) {
		o.key = o.newKey()
	}
	o.draft = &draft
	o.lastErr = nil
	if err := o.transition(StatusSubmitting); err != nil {
		return domain.OrderDraft{}, "", 0, err
	}
	return cloneDraft(draft), o.key, o.gen, nil
}

// BuildDraft maps cart lines to order items.
func BuildDraft(customerID, shipping, billing string, items []domain.LineItem) domain.OrderDraft {
	lines := make([]domain.OrderItemRequest, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.OrderItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return domain.OrderDraft{
		CustomerID:      customerID,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Items:           lines,
	}
}

// transition must be called with mu held.
func (o *Orchestrator) transition(to Status) error {
	if !CanTransitionTo(o.status, to) {
		return fmt.Errorf("%s -> %s: %w", o.status, to, ErrIllegalTransition)
	}
	o.logger.Debug("checkout transition", slog.String("from", o.status.String()), slog.String("to", to.String()))
	o.status = to
	return nil
}

func sameDraft(a, b domain.OrderDraft) bool {
	if a.CustomerID != b.CustomerID || a.ShippingAddress != b.ShippingAddress ||
		a.BillingAddress != b.BillingAddress || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			return false
		}
	}
	return true
}

func cloneDraft(d domain.OrderDraft) domain.OrderDraft {
	d.Items = append([]domain.OrderItemRequest(nil), d.Items...)
	return d
}
