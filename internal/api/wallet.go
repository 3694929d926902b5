package api

import (
	"net/http"
	"time"

	"ecoshop-be/internal/order"
	"ecoshop-be/internal/wallet"

	"github.com/google/uuid"
)

type walletResponse struct {
	Balance int64  `json:"balance"`
	Level   string `json:"level"`
}

type transactionResponse struct {
	ID          uuid.UUID      `json:"id"`
	Amount      int64          `json:"amount"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	ReferenceID *uuid.UUID     `json:"referenceId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, r, order.ErrUnauthorized)
		return
	}

	wal, err := h.Wallet.GetBalance(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, walletResponse{
		Balance: wal.Balance,
		Level:   wal.Level,
	})
}

func (h *Handler) GetWalletHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, r, order.ErrUnauthorized)
		return
	}

	history, err := h.Wallet.GetHistory(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(history))
	for _, entry := range history {
		out = append(out, toTransactionResponse(entry))
	}

	respondJSON(w, http.StatusOK, out)
}

type reconciliationResponse struct {
	WalletID   uuid.UUID `json:"walletId"`
	Balance    int64     `json:"balance"`
	LedgerSum  int64     `json:"ledgerSum"`
	Drift      int64     `json:"drift"`
	Consistent bool      `json:"consistent"`
}

// ReconcileWallet is an ops probe: it reports whether a wallet's cached
// balance still equals the sum of its ledger entries.
func (h *Handler) ReconcileWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, r, order.ErrUnauthorized)
		return
	}

	rec, err := h.Wallet.Reconcile(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, reconciliationResponse{
		WalletID:   rec.WalletID,
		Balance:    rec.Balance,
		LedgerSum:  rec.LedgerSum,
		Drift:      rec.Drift,
		Consistent: rec.Consistent,
	})
}

func toTransactionResponse(entry *wallet.Transaction) transactionResponse {
	return transactionResponse{
		ID:          entry.ID,
		Amount:      entry.Amount,
		Type:        string(entry.Type),
		Description: entry.Description,
		ReferenceID: entry.ReferenceID,
		Metadata:    entry.Metadata,
		CreatedAt:   entry.CreatedAt,
	}
}
