package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"ecoshop-be/internal/logger"
	"ecoshop-be/internal/metrics"
	"ecoshop-be/internal/order"
	"ecoshop-be/internal/payment"
	"ecoshop-be/internal/product"
	"ecoshop-be/internal/reward"
	"ecoshop-be/internal/wallet"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler is the JSON surface over the fulfillment and loyalty services.
// Authentication lives in a separate collaborator; callers arrive with a
// resolved identity in the X-User-ID header.
type Handler struct {
	Orders   order.Service
	Wallet   wallet.Service
	Rewards  reward.Service
	Payments payment.Service
}

func NewHandler(orders order.Service, walletSvc wallet.Service, rewards reward.Service, payments payment.Service) *Handler {
	return &Handler{
		Orders:   orders,
		Wallet:   walletSvc,
		Rewards:  rewards,
		Payments: payments,
	}
}

// Register mounts every route on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.CreateOrder)
	mux.HandleFunc("GET /orders", h.ListOrders)
	mux.HandleFunc("GET /orders/{id}", h.GetOrder)
	mux.HandleFunc("PATCH /orders/{id}/status", h.UpdateOrderStatus)
	mux.HandleFunc("POST /orders/{id}/checkout", h.StartCheckout)

	mux.HandleFunc("GET /wallet", h.GetWallet)
	mux.HandleFunc("GET /wallet/history", h.GetWalletHistory)

	mux.HandleFunc("GET /rewards", h.ListRewards)
	mux.HandleFunc("POST /rewards", h.CreateReward)
	mux.HandleFunc("POST /rewards/{id}/redeem", h.RedeemReward)
	mux.HandleFunc("GET /coupons", h.ListCoupons)

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /internal/stats", h.Stats)
	mux.HandleFunc("GET /internal/wallet/reconcile", h.ReconcileWallet)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, metrics.Snapshot())
}

func userIDFrom(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.Header.Get("X-User-ID"))
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	if status == http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondJSON(w, status, map[string]string{"error": "internal error"})
		return
	}

	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps the service error taxonomy onto HTTP statuses: not
// found, validation, ownership, and business-rule conflicts each keep
// their own class so clients can tell a retryable failure from a
// definitive rejection.
func statusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrAddressNotFound),
		errors.Is(err, order.ErrCouponNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, reward.ErrRewardNotFound),
		errors.Is(err, wallet.ErrWalletNotFound):
		return http.StatusNotFound

	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, reward.ErrInvalidAmount),
		errors.Is(err, reward.ErrInvalidReward),
		errors.Is(err, reward.ErrUnsupportedRewardType):
		return http.StatusBadRequest

	case errors.Is(err, order.ErrUnauthorized),
		errors.Is(err, order.ErrCouponNotOwned):
		return http.StatusForbidden

	case errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrCouponUsed),
		errors.Is(err, order.ErrCouponExpired),
		errors.Is(err, product.ErrInsufficientStock),
		errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, reward.ErrRewardInactive),
		errors.Is(err, reward.ErrRewardOutOfStock),
		errors.Is(err, reward.ErrAmountBelowCost),
		errors.Is(err, payment.ErrOrderNotPayable):
		return http.StatusConflict

	// Transient: the optimistic retry budget ran out, nothing was
	// rejected on the merits. 503 + Retry-After tells the client to
	// resubmit, where 409 means the request will never succeed as is.
	case errors.Is(err, wallet.ErrVersionConflict):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
