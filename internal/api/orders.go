package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ecoshop-be/internal/order"

	"github.com/google/uuid"
)

type createOrderRequest struct {
	AddressID  uuid.UUID              `json:"addressId"`
	Items      []createOrderItemInput `json:"items"`
	CouponCode *string                `json:"couponCode,omitempty"`
}

type createOrderItemInput struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type createOrderResponse struct {
	OrderID          uuid.UUID `json:"orderId"`
	TotalCents       int64     `json:"totalCents"`
	TotalCarbonGrams int64     `json:"totalCarbonGrams"`
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	Status           order.Status        `json:"status"`
	TotalCents       int64               `json:"totalCents"`
	TotalCarbonGrams int64               `json:"totalCarbonGrams"`
	CreatedAt        time.Time           `json:"createdAt"`
	Items            []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ProductID             uuid.UUID `json:"productId"`
	ProductName           string    `json:"productName"`
	Quantity              int       `json:"quantity"`
	PriceCentsAtPurchase  int64     `json:"priceCentsAtPurchase"`
	CarbonGramsAtPurchase int64     `json:"carbonGramsAtPurchase"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:               o.ID,
		Status:           o.Status,
		TotalCents:       o.TotalCents,
		TotalCarbonGrams: o.TotalCarbonGrams,
		CreatedAt:        o.CreatedAt,
	}

	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:             item.ProductID,
			ProductName:           item.ProductName,
			Quantity:              item.Quantity,
			PriceCentsAtPurchase:  item.PriceCentsAtPurchase,
			CarbonGramsAtPurchase: item.CarbonGramsAtPurchase,
		})
	}

	return resp
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, r, order.ErrUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, order.ErrEmptyOrder)
		return
	}

	items := make([]order.NewOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, order.NewOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	result, err := h.Orders.CreateOrder(r.Context(), userID, req.AddressID, items, req.CouponCode)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, createOrderResponse{
		OrderID:          result.OrderID,
		TotalCents:       result.TotalCents,
		TotalCarbonGrams: result.TotalCarbonGrams,
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, r, order.ErrUnauthorized)
		return
	}

	orders, err := h.Orders.ListOrders(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}

	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, r, order.ErrUnauthorized)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, order.ErrOrderNotFound)
		return
	}

	o, err := h.Orders.GetOrderDetail(r.Context(), userID, orderID, false)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

type updateStatusRequest struct {
	Status order.Status `json:"status"`
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, order.ErrOrderNotFound)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, errors.New("invalid status payload"))
		return
	}

	if err := h.Orders.UpdateStatus(r.Context(), orderID, req.Status); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, r, order.ErrUnauthorized)
		return
	}

	orderID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, order.ErrOrderNotFound)
		return
	}

	session, err := h.Payments.StartCheckout(r.Context(), userID, orderID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, checkoutResponse{
		SessionID: session.SessionID,
		URL:       session.URL,
	})
}
