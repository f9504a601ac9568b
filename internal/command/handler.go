package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/canteen-order/internal/catalog"
	"github.com/example/canteen-order/internal/domain/grouporder"
)

// InviteIndex maps invite tokens to group order ids. Implemented by
// redisx.InviteIndex in production.
type InviteIndex interface {
	Put(ctx context.Context, token, groupOrderID string) error
}

// DetailInvalidator drops a cached order detail after a write so the query
// side rebuilds it. Implemented by redisx.SnapshotCache.
type DetailInvalidator interface {
	Invalidate(ctx context.Context, groupOrderID string) error
}

type Handler struct {
	orderSvc *grouporder.Service
	catalog  catalog.Resolver
	invites  InviteIndex
	cache    DetailInvalidator
}

func NewHandler(orderSvc *grouporder.Service, resolver catalog.Resolver, invites InviteIndex, cache DetailInvalidator) *Handler {
	return &Handler{
		orderSvc: orderSvc,
		catalog:  resolver,
		invites:  invites,
		cache:    cache,
	}
}

// invalidate drops the cached detail for the order. Cache misses rebuild
// from the event stream, so a failed invalidation only delays freshness.
func (h *Handler) invalidate(ctx context.Context, order *grouporder.GroupOrder) {
	if h.cache == nil || order == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, order.ID); err != nil {
		slog.Warn("failed to invalidate cached detail", "group_order_id", order.ID, "error", err)
	}
}

// CreateGroupOrder opens a new group order and registers its invite token.
func (h *Handler) CreateGroupOrder(ctx context.Context, cmd CreateGroupOrder) (*grouporder.GroupOrder, error) {
	order, err := h.orderSvc.Create(ctx, cmd.CreatorID, cmd.CreatorName, cmd.CanteenID)
	if err != nil {
		return nil, err
	}

	// Token resolution degrades to join-by-id when the index write fails,
	// so this is not fatal.
	if h.invites != nil {
		if err := h.invites.Put(ctx, order.InviteToken, order.ID); err != nil {
			slog.Warn("failed to register invite token", "group_order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

// JoinGroupOrder adds the user to the order via its invite token
func (h *Handler) JoinGroupOrder(ctx context.Context, cmd JoinGroupOrder) (*grouporder.GroupOrder, error) {
	order, err := h.orderSvc.Join(ctx, cmd.GroupOrderID, cmd.Token, cmd.UserID, cmd.UserName)
	if err != nil {
		return nil, err
	}
	h.invalidate(ctx, order)
	return order, nil
}

// SetItem resolves the menu item and sets its quantity on the order
func (h *Handler) SetItem(ctx context.Context, cmd SetItem) (*grouporder.GroupOrder, error) {
	item, err := h.catalog.Resolve(ctx, cmd.MenuItemID)
	if errors.Is(err, catalog.ErrItemNotFound) {
		return nil, grouporder.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, grouporder.ErrItemNotFound
	}
	order, err := h.orderSvc.SetItem(ctx, cmd.GroupOrderID, cmd.UserID, item, cmd.Quantity)
	if err != nil {
		return nil, err
	}
	h.invalidate(ctx, order)
	return order, nil
}

// UpdateItemQuantity changes an existing line's quantity
func (h *Handler) UpdateItemQuantity(ctx context.Context, cmd UpdateItemQuantity) (*grouporder.GroupOrder, error) {
	order, err := h.orderSvc.UpdateQuantity(ctx, cmd.GroupOrderID, cmd.UserID, cmd.MenuItemID, cmd.Quantity)
	if err != nil {
		return nil, err
	}
	h.invalidate(ctx, order)
	return order, nil
}

// RemoveItem removes a line from the order
func (h *Handler) RemoveItem(ctx context.Context, cmd RemoveItem) (*grouporder.GroupOrder, error) {
	order, err := h.orderSvc.RemoveItem(ctx, cmd.GroupOrderID, cmd.UserID, cmd.MenuItemID)
	if err != nil {
		return nil, err
	}
	h.invalidate(ctx, order)
	return order, nil
}

// SetSplitType switches between equal and custom splits
func (h *Handler) SetSplitType(ctx context.Context, cmd SetSplitType) (*grouporder.GroupOrder, error) {
	order, err := h.orderSvc.SetSplitType(ctx, cmd.GroupOrderID, cmd.UserID, cmd.SplitType)
	if err != nil {
		return nil, err
	}
	h.invalidate(ctx, order)
	return order, nil
}

// SetAmount records a member's custom share
func (h *Handler) SetAmount(ctx context.Context, cmd SetAmount) (*grouporder.GroupOrder, error) {
	order, err := h.orderSvc.SetAmount(ctx, cmd.GroupOrderID, cmd.CallerID, cmd.UserID, cmd.Amount)
	if err != nil {
		return nil, err
	}
	h.invalidate(ctx, order)
	return order, nil
}

// SetPayer assigns the member who fronts the payment
func (h *Handler) SetPayer(ctx context.Context, cmd SetPayer) (*grouporder.GroupOrder, error) {
	order, err := h.orderSvc.SetPayer(ctx, cmd.GroupOrderID, cmd.CallerID, cmd.PayerID)
	if err != nil {
		return nil, err
	}
	h.invalidate(ctx, order)
	return order, nil
}

// InitiatePayment validates the order and dispatches the charge
func (h *Handler) InitiatePayment(ctx context.Context, cmd InitiatePayment) (*grouporder.GroupOrder, error) {
	order, err := h.orderSvc.InitiatePayment(ctx, cmd.GroupOrderID, cmd.UserID)
	if err != nil {
		return nil, err
	}
	h.invalidate(ctx, order)
	return order, nil
}

// RecordTransactionResult applies the gateway's verdict
func (h *Handler) RecordTransactionResult(ctx context.Context, cmd RecordTransactionResult) (*grouporder.GroupOrder, error) {
	order, err := h.orderSvc.RecordTransactionResult(ctx, cmd.GroupOrderID, cmd.TransactionID, cmd.Result)
	if err != nil {
		return nil, err
	}
	h.invalidate(ctx, order)
	return order, nil
}
