package api

import (
	"encoding/json"
	"net/http"
	"time"

	"ecoshop-be/internal/order"
	"ecoshop-be/internal/reward"

	"github.com/google/uuid"
)

type rewardResponse struct {
	ID                 uuid.UUID         `json:"id"`
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	CostInPoints       int64             `json:"costInPoints"`
	ImageURL           string            `json:"imageUrl,omitempty"`
	Stock              *int              `json:"stock,omitempty"`
	Type               reward.RewardType `json:"type"`
	DiscountPercentage int               `json:"discountPercentage,omitempty"`
	ValidDays          int               `json:"validDays,omitempty"`
}

func toRewardResponse(rw *reward.Reward) rewardResponse {
	return rewardResponse{
		ID:                 rw.ID,
		Name:               rw.Name,
		Description:        rw.Description,
		CostInPoints:       rw.CostInPoints,
		ImageURL:           rw.ImageURL,
		Stock:              rw.Stock,
		Type:               rw.Type,
		DiscountPercentage: rw.DiscountPercentage,
		ValidDays:          rw.ValidDays,
	}
}

func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.Rewards.ListActiveRewards(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]rewardResponse, 0, len(rewards))
	for _, rw := range rewards {
		out = append(out, toRewardResponse(rw))
	}

	respondJSON(w, http.StatusOK, out)
}

type createRewardRequest struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	CostInPoints       int64             `json:"costInPoints"`
	ImageURL           string            `json:"imageUrl"`
	Stock              *int              `json:"stock"`
	Type               reward.RewardType `json:"type"`
	DiscountPercentage int               `json:"discountPercentage"`
	ValidDays          int               `json:"validDays"`
}

func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req createRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, reward.ErrInvalidReward)
		return
	}

	rw, err := h.Rewards.CreateReward(r.Context(), reward.NewRewardInput{
		Name:               req.Name,
		Description:        req.Description,
		CostInPoints:       req.CostInPoints,
		ImageURL:           req.ImageURL,
		Stock:              req.Stock,
		Type:               req.Type,
		DiscountPercentage: req.DiscountPercentage,
		ValidDays:          req.ValidDays,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toRewardResponse(rw))
}

type redeemRequest struct {
	Amount int64 `json:"amount"`
}

type redeemResponse struct {
	TransactionID uuid.UUID `json:"transactionId"`
	RewardName    string    `json:"rewardName"`
	SpentPoints   int64     `json:"spentPoints"`
	NewBalance    int64     `json:"newBalance"`
	CouponCode    string    `json:"couponCode,omitempty"`
	DonationAck   string    `json:"donationAck,omitempty"`
}

func (h *Handler) RedeemReward(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, r, order.ErrUnauthorized)
		return
	}

	rewardID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, reward.ErrRewardNotFound)
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, reward.ErrInvalidAmount)
		return
	}

	result, err := h.Rewards.Redeem(r.Context(), userID, rewardID, req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, redeemResponse{
		TransactionID: result.TransactionID,
		RewardName:    result.RewardName,
		SpentPoints:   result.SpentPoints,
		NewBalance:    result.NewBalance,
		CouponCode:    result.CouponCode,
		DonationAck:   result.DonationAck,
	})
}

type couponResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Code               string     `json:"code"`
	DiscountPercentage int        `json:"discountPercentage"`
	IsUsed             bool       `json:"isUsed"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
}

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, r, order.ErrUnauthorized)
		return
	}

	onlyActive := r.URL.Query().Get("active") == "true"

	coupons, err := h.Rewards.ListCoupons(r.Context(), userID, onlyActive)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]couponResponse, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, couponResponse{
			ID:                 c.ID,
			Code:               c.Code,
			DiscountPercentage: c.DiscountPercentage,
			IsUsed:             c.IsUsed,
			ExpiresAt:          c.ExpiresAt,
		})
	}

	respondJSON(w, http.StatusOK, out)
}
