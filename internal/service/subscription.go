package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/lessonlift/backend/internal/domain"
	"github.com/lessonlift/backend/internal/metrics"
	"github.com/lessonlift/backend/pkg/payment"
)

// DefaultDevOrigin is assumed when a checkout request carries no Origin and
// none is configured.
const DefaultDevOrigin = "http://localhost:5173"

// CheckoutRequest is the body of a checkout-session request.
type CheckoutRequest struct {
	PriceID  string `json:"priceId" validate:"required"`
	PlanType string `json:"planType" validate:"required,oneof=starter standard pro"`
}

// CheckoutResponse carries the hosted checkout page for the client redirect.
type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type SubscriptionService struct {
	plans         *domain.PlanCatalog
	payment       payment.Gateway
	productionURL string
	devOrigin     string
	validate      *validator.Validate
	log           zerolog.Logger
}

func NewSubscriptionService(plans *domain.PlanCatalog, gateway payment.Gateway, productionURL, devOrigin string, log zerolog.Logger) *SubscriptionService {
	if devOrigin == "" {
		devOrigin = DefaultDevOrigin
	}
	return &SubscriptionService{
		plans:         plans,
		payment:       gateway,
		productionURL: strings.TrimRight(productionURL, "/"),
		devOrigin:     devOrigin,
		validate:      newValidator(),
		log:           log,
	}
}

// Plans returns the paid tiers.
func (s *SubscriptionService) Plans() []domain.Plan {
	return s.plans.Plans()
}

// RedirectBase picks where the payment provider sends the user back to.
// Local development origins are honoured; anything else goes to production.
func (s *SubscriptionService) RedirectBase(origin string) string {
	if origin == "" {
		origin = s.devOrigin
	}
	if isLocalOrigin(origin) {
		return strings.TrimRight(origin, "/")
	}
	return s.productionURL
}

func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1":
		return true
	}
	return false
}

// CreateCheckout creates a subscription checkout with a free trial for the
// session's user.
func (s *SubscriptionService) CreateCheckout(ctx context.Context, sess *domain.Session, req CheckoutRequest, origin string) (*CheckoutResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "oneof" {
					return nil, domain.ErrBadRequest("Invalid plan type")
				}
			}
		}
		return nil, domain.ErrBadRequest("Price ID and plan type are required")
	}

	plan, ok := s.plans.Get(domain.PlanTier(req.PlanType))
	if !ok {
		return nil, domain.ErrBadRequest("Invalid plan type")
	}
	if plan.PriceID != req.PriceID {
		return nil, domain.ErrBadRequest("Price ID does not match plan type")
	}

	base := s.RedirectBase(origin)
	session, err := s.payment.CreateCheckoutSession(ctx, payment.CheckoutParams{
		UserID:     sess.UserID,
		Email:      sess.Email,
		PlanType:   string(plan.ID),
		PriceID:    plan.PriceID,
		TrialDays:  domain.TrialDays,
		SuccessURL: base + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  base + "/pricing",
	})
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues(string(plan.ID), "error").Inc()
		s.log.Error().Err(err).Str("user_id", sess.UserID).Str("plan", string(plan.ID)).Msg("checkout session failed")
		return nil, domain.ErrFailed("Failed to create checkout session", err)
	}

	metrics.CheckoutSessionsTotal.WithLabelValues(string(plan.ID), "created").Inc()
	s.log.Info().Str("user_id", sess.UserID).Str("plan", string(plan.ID)).Str("session_id", session.ID).Msg("checkout session created")

	return &CheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}
