package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/gateway"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/internal/token"
)

type fixture struct {
	session *MockSession
	cart    *cart.Store
	orders  *MockOrderCreator
	metrics *MockRecorder
	o       *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		session: &MockSession{},
		cart:    cart.NewStore(storage.NewMemoryStore(), nil),
		orders:  &MockOrderCreator{Order: domain.Order{ID: "order-1"}},
		metrics: &MockRecorder{},
	}
	f.o = NewOrchestrator(f.session, f.cart, f.orders, WithRecorder(f.metrics))
	f.cart.AddToCart(domain.LineItem{ProductID: "A", ProductName: "Mug", UnitPrice: 10})
	f.cart.AddToCart(domain.LineItem{ProductID: "A", ProductName: "Mug", UnitPrice: 10})
	f.cart.AddToCart(domain.LineItem{ProductID: "B", ProductName: "Tea", UnitPrice: 4.5})
	return f
}

// toAddress drives the funnel to AwaitingAddress as an authenticated user.
func (f *fixture) toAddress(t *testing.T) {
	t.Helper()
	f.session.login("user-42")
	require.NoError(t, f.o.Finalize())
	require.Equal(t, StatusAwaitingAddress, f.o.Status())
}

func TestFinalize_AnonymousAwaitsAuth(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.o.Finalize())
	assert.Equal(t, StatusAwaitingAuth, f.o.Status())

	f.session.login("user-42")
	require.NoError(t, f.o.LoginSucceeded())
	assert.Equal(t, StatusAwaitingAddress, f.o.Status())
}

func TestFinalize_AuthenticatedSkipsLogin(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)
}

func TestFinalize_OnlyFromIdle(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)

	err := f.o.Finalize()
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StatusAwaitingAddress, f.o.Status())
}

func TestFinalize_AfterSuccessStartsOver(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)
	require.NoError(t, f.o.Submit(context.Background(), "1 Main St", "1 Main St"))
	require.Equal(t, StatusSuccess, f.o.Status())

	f.cart.AddToCart(domain.LineItem{ProductID: "B", ProductName: "Tea", UnitPrice: 4.5})
	require.NoError(t, f.o.Finalize())
	assert.Equal(t, StatusAwaitingAddress, f.o.Status())
	assert.Empty(t, f.o.Order().ID)
	_, ok := f.o.Draft()
	assert.False(t, ok)
}

func TestLoginSucceeded_RequiresAuthenticatedSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.o.Finalize())

	err := f.o.LoginSucceeded()
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Equal(t, StatusAwaitingAuth, f.o.Status())
}

func TestSubmit_MissingAddressStaysWithoutNetworkCall(t *testing.T) {
	tests := []struct {
		name              string
		shipping, billing string
	}{
		{"empty billing", "1 Main St", ""},
		{"empty shipping", "", "1 Main St"},
		{"blank billing", "1 Main St", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.toAddress(t)

			err := f.o.Submit(context.Background(), tt.shipping, tt.billing)
			assert.ErrorIs(t, err, ErrMissingAddress)
			assert.Equal(t, StatusAwaitingAddress, f.o.Status())
			assert.Equal(t, 0, f.orders.calls())
			assert.ErrorIs(t, f.o.LastError(), ErrMissingAddress)
		})
	}
}

func TestSubmit_Success(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)

	err := f.o.Submit(context.Background(), "1 Main St", "2 Side St")
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, f.o.Status())
	assert.True(t, f.cart.Snapshot().IsEmpty())
	assert.Equal(t, domain.ID("order-1"), f.o.Order().ID)
	require.Equal(t, 1, f.orders.calls())

	draft := f.orders.Drafts[0]
	assert.Equal(t, domain.OrderDraft{
		CustomerID:      "user-42",
		ShippingAddress: "1 Main St",
		BillingAddress:  "2 Side St",
		Items: []domain.OrderItemRequest{
			{ProductID: "A", Quantity: 2},
			{ProductID: "B", Quantity: 1},
		},
	}, draft)
	assert.NotEmpty(t, f.orders.Keys[0])

	_, held := f.o.Draft()
	assert.False(t, held)
	assert.Equal(t, []string{OutcomeSuccess}, f.metrics.Outcomes)
}

func TestSubmit_NetworkFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)
	before := f.cart.Items()
	f.orders.setErr(errors.New("dial tcp: connection refused"))

	err := f.o.Submit(context.Background(), "1 Main St", "1 Main St")
	require.Error(t, err)

	assert.Equal(t, StatusFailed, f.o.Status())
	assert.Equal(t, before, f.cart.Items())
	assert.Equal(t, 1, f.orders.calls())

	draft, held := f.o.Draft()
	require.True(t, held)
	assert.Equal(t, "user-42", draft.CustomerID)
	assert.Equal(t, []string{OutcomeFailed}, f.metrics.Outcomes)
}

func TestSubmit_RetryFromFailedReusesKey(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)
	f.orders.setErr(&gateway.APIError{StatusCode: 503})

	require.Error(t, f.o.Submit(context.Background(), "1 Main St", "1 Main St"))
	require.Equal(t, StatusFailed, f.o.Status())

	f.orders.setErr(nil)
	require.NoError(t, f.o.Submit(context.Background(), "1 Main St", "1 Main St"))

	assert.Equal(t, StatusSuccess, f.o.Status())
	require.Len(t, f.orders.Keys, 2)
	assert.Equal(t, f.orders.Keys[0], f.orders.Keys[1])
}

func TestSubmit_ChangedDraftGetsNewKey(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)
	f.orders.setErr(errors.New("timeout"))

	require.Error(t, f.o.Submit(context.Background(), "1 Main St", "1 Main St"))
	require.NoError(t, f.o.Edit())
	assert.Equal(t, StatusAwaitingAddress, f.o.Status())

	require.Error(t, f.o.Submit(context.Background(), "9 Other Rd", "1 Main St"))
	require.Len(t, f.orders.Keys, 2)
	assert.NotEqual(t, f.orders.Keys[0], f.orders.Keys[1])
}

func TestSubmit_UnauthorizedReturnsToAuth(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)
	f.orders.setErr(fmt.Errorf("orders.create: %w", &gateway.APIError{StatusCode: 401}))

	err := f.o.Submit(context.Background(), "1 Main St", "1 Main St")
	assert.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.Equal(t, StatusAwaitingAuth, f.o.Status())
	assert.Equal(t, 3, f.cart.TotalItems())

	_, held := f.o.Draft()
	assert.True(t, held)
	assert.Equal(t, []string{OutcomeUnauthorized}, f.metrics.Outcomes)
}

func TestSubmit_EmptyCart(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)
	f.cart.ClearCart()

	err := f.o.Submit(context.Background(), "1 Main St", "1 Main St")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StatusAwaitingAddress, f.o.Status())
	assert.Equal(t, 0, f.orders.calls())
}

func TestSubmit_MissingSubject(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)
	f.session.login("")

	err := f.o.Submit(context.Background(), "1 Main St", "1 Main St")
	assert.ErrorIs(t, err, ErrMissingSubject)
	assert.Equal(t, StatusAwaitingAddress, f.o.Status())
	assert.Equal(t, 0, f.orders.calls())
}

func TestSubmit_FromIdleIsIllegal(t *testing.T) {
	f := newFixture(t)
	f.session.login("user-42")

	err := f.o.Submit(context.Background(), "1 Main St", "1 Main St")
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, 0, f.orders.calls())
}

func TestCancel(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.o.Cancel(), ErrIllegalTransition)

	require.NoError(t, f.o.Finalize())
	require.NoError(t, f.o.Cancel())
	assert.Equal(t, StatusIdle, f.o.Status())

	f.toAddress(t)
	require.NoError(t, f.o.Cancel())
	assert.Equal(t, StatusIdle, f.o.Status())
	assert.Equal(t, 3, f.cart.TotalItems())
}

func TestReset_DiscardsLateResponse(t *testing.T) {
	f := newFixture(t)
	f.toAddress(t)
	f.orders.Block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- f.o.Submit(context.Background(), "1 Main St", "1 Main St")
	}()

	require.Eventually(t, func() bool { return f.orders.calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusSubmitting, f.o.Status())

	f.o.Reset()
	close(f.orders.Block)

	err := <-done
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, StatusIdle, f.o.Status())
	assert.Equal(t, domain.Order{}, f.o.Order())
	assert.True(t, f.cart.Snapshot().IsEmpty())
	assert.Equal(t, []string{OutcomeStale}, f.metrics.Outcomes)
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestWatch_FollowsSessionManager(t *testing.T) {
	tokens := token.NewStore(storage.NewMemoryStore(), nil)
	mgr := session.NewManager(tokens)
	c := cart.NewStore(storage.NewMemoryStore(), nil)
	c.AddToCart(domain.LineItem{ProductID: "A", UnitPrice: 10})
	orders := &MockOrderCreator{}

	o := NewOrchestrator(mgr, c, orders)
	o.Watch(mgr)

	require.NoError(t, o.Finalize())
	require.Equal(t, StatusAwaitingAuth, o.Status())

	mgr.Login(signed(t, jwt.MapClaims{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier": "cust-7",
		"role": "User",
	}))
	assert.Equal(t, StatusAwaitingAddress, o.Status())

	mgr.Logout()
	assert.Equal(t, StatusAwaitingAuth, o.Status())

	mgr.Login(signed(t, jwt.MapClaims{"sub": "cust-7"}))
	require.Equal(t, StatusAwaitingAddress, o.Status())

	require.NoError(t, o.Submit(context.Background(), "1 Main St", "1 Main St"))
	require.Equal(t, 1, orders.calls())
	assert.Equal(t, "cust-7", orders.Drafts[0].CustomerID)
}

func TestBuildDraft(t *testing.T) {
	d := BuildDraft("c", "s", "b", nil)
	assert.NotNil(t, d.Items)
	assert.Empty(t, d.Items)
}
