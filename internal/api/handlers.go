package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/canteen-order/internal/api/middleware"
	"github.com/example/canteen-order/internal/calculator"
	"github.com/example/canteen-order/internal/catalog"
	"github.com/example/canteen-order/internal/command"
	"github.com/example/canteen-order/internal/domain/grouporder"
	"github.com/example/canteen-order/internal/infrastructure/redisx"
	"github.com/example/canteen-order/internal/payment"
	"github.com/example/canteen-order/internal/query"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	menu         catalog.Resolver
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, menu catalog.Resolver) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		menu:         menu,
	}
}

// Group Order Handlers

func (h *Handlers) CreateGroupOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CanteenID string `json:"canteen_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CanteenID == "" {
		respondErrorJSON(w, "canteen_id is required", http.StatusBadRequest)
		return
	}

	order, err := h.cmdHandler.CreateGroupOrder(r.Context(), command.CreateGroupOrder{
		CreatorID:   getUserID(r),
		CreatorName: getUserName(r),
		CanteenID:   req.CanteenID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

func (h *Handlers) ListGroupOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.queryHandler.ListGroupOrdersByMember(getUserID(r))
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetGroupOrder(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 1)

	detail, err := h.queryHandler.GetGroupOrder(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !detail.HasMember(getUserID(r)) {
		respondErrorJSON(w, "forbidden", http.StatusForbidden)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func (h *Handlers) JoinGroupOrder(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 1)

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.cmdHandler.JoinGroupOrder(r.Context(), command.JoinGroupOrder{
		GroupOrderID: id,
		Token:        req.Token,
		UserID:       getUserID(r),
		UserName:     getUserName(r),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Item Handlers

func (h *Handlers) SetItem(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 1)

	var req struct {
		MenuItemID string `json:"menu_item_id"`
		Quantity   int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.cmdHandler.SetItem(r.Context(), command.SetItem{
		GroupOrderID: id,
		UserID:       getUserID(r),
		MenuItemID:   req.MenuItemID,
		Quantity:     req.Quantity,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *Handlers) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 1)
	itemID := pathSegment(r.URL.Path, 3)

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.cmdHandler.UpdateItemQuantity(r.Context(), command.UpdateItemQuantity{
		GroupOrderID: id,
		UserID:       getUserID(r),
		MenuItemID:   itemID,
		Quantity:     req.Quantity,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 1)
	itemID := pathSegment(r.URL.Path, 3)

	order, err := h.cmdHandler.RemoveItem(r.Context(), command.RemoveItem{
		GroupOrderID: id,
		UserID:       getUserID(r),
		MenuItemID:   itemID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Split Handlers

func (h *Handlers) SetSplitType(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 1)

	var req struct {
		SplitType string `json:"split_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.cmdHandler.SetSplitType(r.Context(), command.SetSplitType{
		GroupOrderID: id,
		UserID:       getUserID(r),
		SplitType:    grouporder.SplitType(req.SplitType),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *Handlers) SetAmount(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 1)

	var req struct {
		UserID string  `json:"user_id"`
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		req.UserID = getUserID(r)
	}

	order, err := h.cmdHandler.SetAmount(r.Context(), command.SetAmount{
		GroupOrderID: id,
		CallerID:     getUserID(r),
		UserID:       req.UserID,
		Amount:       req.Amount,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Payment Handlers

func (h *Handlers) SetPayer(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 1)

	var req struct {
		PayerID string `json:"payer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.cmdHandler.SetPayer(r.Context(), command.SetPayer{
		GroupOrderID: id,
		CallerID:     getUserID(r),
		PayerID:      req.PayerID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *Handlers) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 1)

	order, err := h.cmdHandler.InitiatePayment(r.Context(), command.InitiatePayment{
		GroupOrderID: id,
		UserID:       getUserID(r),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, order)
}

func (h *Handlers) RecordTransactionResult(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, 1)

	var req struct {
		TransactionID string `json:"transaction_id"`
		Result        string `json:"result"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.cmdHandler.RecordTransactionResult(r.Context(), command.RecordTransactionResult{
		GroupOrderID:  id,
		TransactionID: req.TransactionID,
		Result:        grouporder.TxnResult(req.Result),
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Invite Handlers

func (h *Handlers) ResolveInvite(w http.ResponseWriter, r *http.Request) {
	token := pathSegment(r.URL.Path, 1)

	orderID, err := h.queryHandler.ResolveInvite(r.Context(), token)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"group_order_id": orderID})
}

// Menu Handlers

func (h *Handlers) GetMenu(w http.ResponseWriter, r *http.Request) {
	canteenID := r.URL.Query().Get("canteen_id")
	if canteenID == "" {
		respondErrorJSON(w, "canteen_id is required", http.StatusBadRequest)
		return
	}

	items, err := h.menu.ListByCanteen(r.Context(), canteenID)
	if err != nil {
		respondErrorJSON(w, "failed to load menu", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondErrorJSON(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondDomainError maps domain errors onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	var mismatch *calculator.MismatchError
	if errors.As(err, &mismatch) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": mismatch.Error(),
			"delta": mismatch.Delta,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, grouporder.ErrOrderNotFound),
		errors.Is(err, grouporder.ErrItemNotFound),
		errors.Is(err, redisx.ErrTokenNotFound):
		status = http.StatusNotFound
	case errors.Is(err, grouporder.ErrInvalidToken),
		errors.Is(err, grouporder.ErrVendorMismatch),
		errors.Is(err, grouporder.ErrNegativeAmount),
		errors.Is(err, grouporder.ErrEmptyOrder),
		errors.Is(err, grouporder.ErrNoPayer),
		errors.Is(err, grouporder.ErrInvalidSplitType),
		errors.Is(err, grouporder.ErrInvalidTxnResult),
		errors.Is(err, calculator.ErrNoMembers):
		status = http.StatusBadRequest
	case errors.Is(err, grouporder.ErrNotAMember):
		status = http.StatusForbidden
	case errors.Is(err, grouporder.ErrAlreadyStarted),
		errors.Is(err, grouporder.ErrOrderLocked),
		errors.Is(err, grouporder.ErrConcurrentUpdate),
		errors.Is(err, grouporder.ErrNotInPayment):
		status = http.StatusConflict
	case errors.Is(err, payment.ErrUnavailable):
		status = http.StatusBadGateway
	}

	respondErrorJSON(w, err.Error(), status)
}

// pathSegment returns the n-th segment of the request path (0-based).
func pathSegment(path string, n int) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if n >= len(segments) {
		return ""
	}
	return segments[n]
}

func getUserID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}

func getUserName(r *http.Request) string {
	if name := middleware.GetUserName(r.Context()); name != "" {
		return name
	}
	return middleware.GetUserID(r.Context())
}
