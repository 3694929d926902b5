package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"ecoshop-be/internal/logger"
	"ecoshop-be/internal/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPayload is the slice of the Stripe event envelope we act on. The
// order id travels in the checkout session metadata, set when the
// session was created.
type EventPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Metadata struct {
				OrderID string `json:"orderId"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

type Handler struct {
	PaymentSvc payment.Service
	Gateway    payment.Gateway
}

func NewWebhookHandler(paymentSvc payment.Service, gateway payment.Gateway) *Handler {
	return &Handler{
		PaymentSvc: paymentSvc,
		Gateway:    gateway,
	}
}

// WebhookHandler is the route handler for Stripe deliveries. Stripe
// retries anything that is not a 2xx, so every outcome except a real
// processing failure answers 200.
func (h *Handler) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.Gateway.VerifySignature(r.Header.Get("Stripe-Signature"), body); err != nil {
		log.Warn("webhook signature rejected", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var event EventPayload
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	log.Info("webhook received",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
	)

	switch event.Type {
	case "checkout.session.completed":
		orderID, err := uuid.Parse(event.Data.Object.Metadata.OrderID)
		if err != nil {
			log.Warn("webhook carries no usable order id",
				zap.String("session_id", event.Data.Object.ID))
			http.Error(w, "missing order id", http.StatusBadRequest)
			return
		}

		if err := h.PaymentSvc.ConfirmPayment(r.Context(), orderID); err != nil {
			log.Error("failed to confirm payment", zap.Error(err))
			http.Error(w, "failed to confirm payment", http.StatusInternalServerError)
			return
		}

	case "checkout.session.expired":
		log.Info("checkout session expired",
			zap.String("session_id", event.Data.Object.ID))

	default:
		// Ignore other event types.
	}

	w.WriteHeader(http.StatusOK)
}
