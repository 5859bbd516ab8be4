package handler

import (
	"context"
	"net/http"

	"github.com/lessonlift/backend/internal/contextkeys"
	"github.com/lessonlift/backend/internal/domain"
)

// UsageSource returns a user's entitlement snapshot without counting.
type UsageSource interface {
	Status(ctx context.Context, userID string) (domain.UsageStatus, error)
}

// UsageHandler serves the data behind the client's usage banner.
type UsageHandler struct {
	usage UsageSource
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usage UsageSource) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Get handles GET /functions/v1/usage.
func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(contextkeys.UserID).(string)

	status, err := h.usage.Status(r.Context(), userID)
	if err != nil {
		Failure(w, r, domain.ErrFailed("Failed to get usage status", err))
		return
	}

	decision := domain.Evaluate(status)
	body := map[string]interface{}{
		"success":     true,
		"usage":       decision.Usage,
		"state":       domain.StateOf(status),
		"canGenerate": decision.Allowed,
		"warning":     domain.ShouldWarn(status),
	}
	if decision.Denial != nil {
		body["denial"] = map[string]interface{}{
			"reason":  decision.Denial.Reason,
			"used":    decision.Denial.Used,
			"max":     decision.Denial.Max,
			"plan":    decision.Denial.Plan,
			"message": decision.Message,
		}
	}
	JSON(w, http.StatusOK, body)
}
