// Package notification consumes payment outcome events and mails pickup
// tickets to the canteen kitchen.
package notification

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/example/canteen-order/internal/domain/grouporder"
	"github.com/example/canteen-order/internal/email"
	"github.com/example/canteen-order/internal/infrastructure/store"
	"github.com/example/canteen-order/internal/readmodel"
)

// Sender sends pickup tickets. *email.Service implements it.
type Sender interface {
	SendOrderTicket(to, orderID string, total float64, items []email.OrderLine, memberCount int) error
}

// Handler processes events for sending notifications
type Handler struct {
	sender       Sender
	readStore    store.ReadStoreInterface
	kitchenEmail string
}

// NewHandler creates a new notification handler. kitchenEmail is the canteen
// address the pickup tickets go to.
func NewHandler(sender Sender, readStore store.ReadStoreInterface, kitchenEmail string) *Handler {
	return &Handler{
		sender:       sender,
		readStore:    readStore,
		kitchenEmail: kitchenEmail,
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		slog.Error("failed to unmarshal event", "error", err)
		return err
	}

	// Only completed payments produce a ticket.
	if event.EventType == grouporder.EventTransactionRecorded {
		return h.handleTransactionRecorded(event)
	}

	return nil
}

func (h *Handler) handleTransactionRecorded(event store.Event) error {
	var e grouporder.TransactionRecorded
	if err := json.Unmarshal(event.Data, &e); err != nil {
		slog.Error("failed to unmarshal TransactionRecorded event", "error", err)
		return err
	}

	if e.Result != grouporder.TxnSuccess {
		slog.Debug("skipping failed transaction", "group_order_id", e.GroupOrderID, "transaction_id", e.TransactionID)
		return nil
	}

	slog.Info("processing completed payment", "group_order_id", e.GroupOrderID, "transaction_id", e.TransactionID)

	data, exists := h.readStore.Get(readmodel.CollectionGroupOrders, e.GroupOrderID)
	if !exists {
		// The projector may still be behind; the consumer retries on error.
		slog.Warn("group order not yet projected", "group_order_id", e.GroupOrderID)
		return nil
	}

	order, ok := data.(*readmodel.GroupOrderReadModel)
	if !ok {
		slog.Error("invalid read model type", "group_order_id", e.GroupOrderID)
		return nil
	}

	items := make([]email.OrderLine, len(order.Items))
	for i, line := range order.Items {
		items[i] = email.OrderLine{
			MenuItemID: line.MenuItemID,
			Name:       line.NameAtPurchase,
			Quantity:   line.Quantity,
			Price:      line.PriceAtPurchase,
		}
	}

	if err := h.sender.SendOrderTicket(h.kitchenEmail, order.ID, order.TotalAmount, items, len(order.MemberIDs)); err != nil {
		slog.Error("failed to send pickup ticket", "to", h.kitchenEmail, "group_order_id", order.ID, "error", err)
		return err
	}

	slog.Info("pickup ticket sent", "to", h.kitchenEmail, "group_order_id", order.ID)
	return nil
}
