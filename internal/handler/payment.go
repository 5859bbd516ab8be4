package handler

import (
	"context"
	"net/http"

	"github.com/lessonlift/backend/internal/domain"
	"github.com/lessonlift/backend/internal/service"
)

// CheckoutCreator starts a subscription checkout for the caller.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, sess *domain.Session, req service.CheckoutRequest, origin string) (*service.CheckoutResponse, error)
}

type PaymentHandler struct {
	svc CheckoutCreator
}

func NewPaymentHandler(svc CheckoutCreator) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// CreateCheckout handles POST /functions/v1/create-checkout-session.
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(r)
	if !ok {
		Error(w, r, domain.ErrUnauthorized("User not authenticated"))
		return
	}

	var req service.CheckoutRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}

	resp, err := h.svc.CreateCheckout(r.Context(), sess, req, r.Header.Get("Origin"))
	if err != nil {
		Error(w, r, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}
