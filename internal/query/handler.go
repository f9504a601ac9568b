// Package query serves the read side. List and poll endpoints come from the
// projected read models; single-order detail is rebuilt from the event
// stream so it is never stale.
package query

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/example/canteen-order/internal/calculator"
	"github.com/example/canteen-order/internal/domain/grouporder"
	"github.com/example/canteen-order/internal/infrastructure/store"
	"github.com/example/canteen-order/internal/readmodel"
)

// InviteResolver maps invite tokens back to group order ids. Implemented by
// redisx.InviteIndex in production.
type InviteResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// DetailCache holds recently built order details for poll traffic.
// Implemented by redisx.SnapshotCache.
type DetailCache interface {
	Get(ctx context.Context, groupOrderID string, out any) (bool, error)
	Set(ctx context.Context, groupOrderID string, snapshot any) error
}

// GroupOrderDetail is the full view of one group order: the aggregate state
// plus the derived status, per-member shares and, under the custom split,
// how far the stored amounts are from the order total.
type GroupOrderDetail struct {
	*grouporder.GroupOrder
	EffectiveStatus grouporder.Status  `json:"effective_status"`
	Shares          map[string]float64 `json:"shares,omitempty"`
	SplitDelta      *float64           `json:"split_delta,omitempty"`
}

type Handler struct {
	readStore store.ReadStoreInterface
	orderSvc  *grouporder.Service
	invites   InviteResolver
	cache     DetailCache
	group     singleflight.Group
}

func NewHandler(readStore store.ReadStoreInterface, orderSvc *grouporder.Service, invites InviteResolver, cache DetailCache) *Handler {
	return &Handler{
		readStore: readStore,
		orderSvc:  orderSvc,
		invites:   invites,
		cache:     cache,
	}
}

// GetGroupOrder rebuilds one order from its events. Concurrent requests for
// the same order share a single rebuild.
func (h *Handler) GetGroupOrder(ctx context.Context, id string) (*GroupOrderDetail, error) {
	v, err, _ := h.group.Do(id, func() (any, error) {
		if h.cache != nil {
			var cached grouporder.GroupOrder
			ok, err := h.cache.Get(ctx, id, &cached)
			if err != nil {
				slog.Warn("detail cache read failed", "group_order_id", id, "error", err)
			} else if ok {
				return &cached, nil
			}
		}

		order, err := h.orderSvc.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if h.cache != nil {
			if err := h.cache.Set(ctx, id, order); err != nil {
				slog.Warn("detail cache write failed", "group_order_id", id, "error", err)
			}
		}
		return order, nil
	})
	if err != nil {
		return nil, err
	}

	order := v.(*grouporder.GroupOrder)
	detail := &GroupOrderDetail{
		GroupOrder:      order,
		EffectiveStatus: order.EffectiveStatus(),
	}
	if shares, err := order.Shares(); err == nil {
		detail.Shares = shares
	}
	if order.SplitType == grouporder.SplitCustom {
		delta := calculator.SplitDelta(order.TotalAmount, order.Amounts)
		detail.SplitDelta = &delta
	}
	return detail, nil
}

// ResolveInvite returns the group order id behind an invite token.
func (h *Handler) ResolveInvite(ctx context.Context, token string) (string, error) {
	if h.invites == nil {
		return "", grouporder.ErrInvalidToken
	}
	return h.invites.Resolve(ctx, token)
}

// GetGroupOrderSummary returns the projected summary of one order.
func (h *Handler) GetGroupOrderSummary(id string) (*readmodel.GroupOrderReadModel, bool) {
	data, ok := h.readStore.Get(readmodel.CollectionGroupOrders, id)
	if !ok {
		return nil, false
	}
	return data.(*readmodel.GroupOrderReadModel), true
}

// ListGroupOrdersByMember returns summaries of all orders the user is on.
func (h *Handler) ListGroupOrdersByMember(memberID string) []*readmodel.GroupOrderReadModel {
	items := h.readStore.GetAll(readmodel.CollectionGroupOrders)
	orders := make([]*readmodel.GroupOrderReadModel, 0)
	for _, item := range items {
		g := item.(*readmodel.GroupOrderReadModel)
		if g.HasMember(memberID) {
			orders = append(orders, g)
		}
	}
	return orders
}

// ListAllGroupOrders returns all projected summaries (for ops use)
func (h *Handler) ListAllGroupOrders() []*readmodel.GroupOrderReadModel {
	items := h.readStore.GetAll(readmodel.CollectionGroupOrders)
	orders := make([]*readmodel.GroupOrderReadModel, 0, len(items))
	for _, item := range items {
		orders = append(orders, item.(*readmodel.GroupOrderReadModel))
	}
	return orders
}
