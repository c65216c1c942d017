package checkout

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
)

// MockSession implements Session for testing
type MockSession struct {
	mu       sync.Mutex
	authed   bool
	identity session.Identity
}

func (m *MockSession) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authed
}

func (m *MockSession) Identity() session.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

func (m *MockSession) login(subject string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authed = true
	m.identity = session.Identity{Subject: subject, Role: domain.RoleUser}
}

// MockOrderCreator captures every draft passed to CreateOrder
type MockOrderCreator struct {
	mu     sync.Mutex
	Drafts []domain.OrderDraft
	Keys   []string
	Order  domain.Order
	Err    error
	// Block, when set, is waited on before answering.
	Block chan struct{}
}

func (m *MockOrderCreator) CreateOrder(_ context.Context, draft domain.OrderDraft, key string) (domain.Order, error) {
	m.mu.Lock()
	m.Drafts = append(m.Drafts, draft)
	m.Keys = append(m.Keys, key)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Order, m.Err
}

func (m *MockOrderCreator) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Drafts)
}

func (m *MockOrderCreator) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

type MockRecorder struct {
	mu       sync.Mutex
	Outcomes []string
}

func (m *MockRecorder) ObserveCheckout(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, outcome)
}
