package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// CheckoutParams describes a subscription checkout for one user and plan.
type CheckoutParams struct {
	UserID     string
	Email      string
	PlanType   string
	PriceID    string
	TrialDays  int64
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the hosted payment page created by the provider.
type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway defines the interface for payment providers.
type Gateway interface {
	// CreateCheckoutSession creates a hosted subscription checkout page.
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
}

// MockGateway is a dummy implementation for local development and tests.
type MockGateway struct {
	// Created records every request in order.
	Created []CheckoutParams
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	g.Created = append(g.Created, p)
	id := "cs_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return &CheckoutSession{
		ID:  id,
		URL: strings.ReplaceAll(p.SuccessURL, "{CHECKOUT_SESSION_ID}", id),
	}, nil
}
