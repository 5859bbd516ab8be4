package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lessonlift/backend/internal/domain"
	"github.com/lessonlift/backend/internal/metrics"
	"github.com/lessonlift/backend/internal/repository"
)

// UsageBackend is the pair of usage procedures the gate relies on.
type UsageBackend interface {
	CheckAndIncrement(ctx context.Context, userID string) (*repository.UsageCheck, error)
	Status(ctx context.Context, userID string) (domain.UsageStatus, error)
}

// EntitlementGate decides whether a user may generate another lesson.
// Counting and atomicity belong to the backend; the gate only interprets.
type EntitlementGate struct {
	backend UsageBackend
	log     zerolog.Logger
}

func NewEntitlementGate(backend UsageBackend, log zerolog.Logger) *EntitlementGate {
	return &EntitlementGate{backend: backend, log: log}
}

// Check consumes one generation from the user's allowance when permitted.
// A backend failure returns an error wrapping domain.ErrGateUnavailable and
// is never reported as a reached limit.
func (g *EntitlementGate) Check(ctx context.Context, userID string) (*domain.Decision, error) {
	check, err := g.backend.CheckAndIncrement(ctx, userID)
	if err != nil {
		metrics.GateDecisionsTotal.WithLabelValues("error").Inc()
		g.log.Error().Err(err).Str("user_id", userID).Msg("entitlement check failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrGateUnavailable, err)
	}

	if check.Allowed {
		metrics.GateDecisionsTotal.WithLabelValues("allowed").Inc()
		return &domain.Decision{Allowed: true, Usage: check.Status}, nil
	}

	denial := domain.DenialFor(domain.ReasonFromRPC(check.ExpiredBy, check.LimitType), check.Status)
	msg := check.Message
	if msg == "" {
		msg = denial.Message()
	}

	metrics.GateDecisionsTotal.WithLabelValues(string(denial.Reason)).Inc()
	g.log.Info().
		Str("user_id", userID).
		Str("reason", string(denial.Reason)).
		Int("used", denial.Used).
		Int("max", denial.Max).
		Msg("generation denied")

	return &domain.Decision{
		Allowed: false,
		Usage:   domain.WithDenial(check.Status, denial.Reason),
		Denial:  &denial,
		Message: msg,
	}, nil
}

// Status returns the user's snapshot without consuming anything.
func (g *EntitlementGate) Status(ctx context.Context, userID string) (domain.UsageStatus, error) {
	status, err := g.backend.Status(ctx, userID)
	if err != nil {
		g.log.Error().Err(err).Str("user_id", userID).Msg("subscription status lookup failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrGateUnavailable, err)
	}
	return status, nil
}
