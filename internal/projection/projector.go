// Package projection folds the event stream into the read models served by
// the query side. The projector runs in its own process and consumes events
// from Kafka, so read models are eventually consistent.
package projection

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/example/canteen-order/internal/domain/grouporder"
	"github.com/example/canteen-order/internal/infrastructure/store"
	"github.com/example/canteen-order/internal/readmodel"
)

type Projector struct {
	readStore store.ReadStoreInterface
}

func NewProjector(readStore store.ReadStoreInterface) *Projector {
	return &Projector{readStore: readStore}
}

func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}

	slog.Debug("projecting event", "event_type", event.EventType, "aggregate_id", event.AggregateID)

	switch event.AggregateType {
	case grouporder.AggregateType:
		return p.handleGroupOrderEvent(event)
	}

	return nil
}

func (p *Projector) handleGroupOrderEvent(event store.Event) error {
	switch event.EventType {
	case grouporder.EventGroupOrderCreated:
		var e grouporder.GroupOrderCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Set(readmodel.CollectionGroupOrders, e.GroupOrderID, &readmodel.GroupOrderReadModel{
			ID:          e.GroupOrderID,
			CanteenID:   e.CanteenID,
			CreatorID:   e.CreatorID,
			Status:      string(grouporder.StatusForming),
			SplitType:   string(grouporder.SplitEqual),
			Items:       []readmodel.OrderLineReadModel{},
			MemberIDs:   []string{e.CreatorID},
			MemberNames: []string{e.CreatorName},
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.CreatedAt,
		})

	case grouporder.EventMemberJoined:
		var e grouporder.MemberJoined
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionGroupOrders, e.GroupOrderID, func(current any) any {
			g := current.(*readmodel.GroupOrderReadModel)
			if !g.HasMember(e.UserID) {
				g.MemberIDs = append(g.MemberIDs, e.UserID)
				g.MemberNames = append(g.MemberNames, e.Name)
			}
			g.UpdatedAt = e.JoinedAt
			return g
		})

	case grouporder.EventItemSet:
		var e grouporder.ItemSet
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionGroupOrders, e.GroupOrderID, func(current any) any {
			g := current.(*readmodel.GroupOrderReadModel)
			line := readmodel.OrderLineReadModel{
				MenuItemID:      e.MenuItemID,
				NameAtPurchase:  e.NameAtPurchase,
				PriceAtPurchase: e.PriceAtPurchase,
				Quantity:        e.Quantity,
			}
			replaced := false
			for i, existing := range g.Items {
				if existing.MenuItemID == e.MenuItemID {
					g.Items[i] = line
					replaced = true
					break
				}
			}
			if !replaced {
				g.Items = append(g.Items, line)
			}
			g.TotalAmount = calculateOrderTotal(g.Items)
			g.UpdatedAt = e.SetAt
			return g
		})

	case grouporder.EventItemRemoved:
		var e grouporder.ItemRemoved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionGroupOrders, e.GroupOrderID, func(current any) any {
			g := current.(*readmodel.GroupOrderReadModel)
			newItems := make([]readmodel.OrderLineReadModel, 0, len(g.Items))
			for _, item := range g.Items {
				if item.MenuItemID != e.MenuItemID {
					newItems = append(newItems, item)
				}
			}
			g.Items = newItems
			g.TotalAmount = calculateOrderTotal(g.Items)
			g.UpdatedAt = e.RemovedAt
			return g
		})

	case grouporder.EventSplitTypeSet:
		var e grouporder.SplitTypeSet
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionGroupOrders, e.GroupOrderID, func(current any) any {
			g := current.(*readmodel.GroupOrderReadModel)
			g.SplitType = string(e.SplitType)
			g.UpdatedAt = e.SetAt
			return g
		})

	case grouporder.EventPayerSet:
		var e grouporder.PayerSet
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionGroupOrders, e.GroupOrderID, func(current any) any {
			g := current.(*readmodel.GroupOrderReadModel)
			g.PayerID = e.PayerID
			g.UpdatedAt = e.SetAt
			return g
		})

	case grouporder.EventPaymentInitiated:
		var e grouporder.PaymentInitiated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionGroupOrders, e.GroupOrderID, func(current any) any {
			g := current.(*readmodel.GroupOrderReadModel)
			g.Status = string(grouporder.StatusPaying)
			g.UpdatedAt = e.InitiatedAt
			return g
		})

	case grouporder.EventTransactionRecorded:
		var e grouporder.TransactionRecorded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		p.readStore.Update(readmodel.CollectionGroupOrders, e.GroupOrderID, func(current any) any {
			g := current.(*readmodel.GroupOrderReadModel)
			if e.Result == grouporder.TxnSuccess {
				g.Status = string(grouporder.StatusCompleted)
			} else {
				g.Status = string(grouporder.StatusFailed)
			}
			g.UpdatedAt = e.RecordedAt
			return g
		})
	}

	return nil
}

func calculateOrderTotal(items []readmodel.OrderLineReadModel) float64 {
	var cents int64
	for _, item := range items {
		cents += int64(math.Round(item.PriceAtPurchase*100)) * int64(item.Quantity)
	}
	return float64(cents) / 100
}
