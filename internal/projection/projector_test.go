package projection

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/canteen-order/internal/domain/grouporder"
	"github.com/example/canteen-order/internal/infrastructure/store"
	"github.com/example/canteen-order/internal/infrastructure/store/mocks"
	"github.com/example/canteen-order/internal/readmodel"
)

const testOrderID = "order-123"

func project(t *testing.T, p *Projector, version int, eventType string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	event := store.Event{
		AggregateID:   testOrderID,
		AggregateType: grouporder.AggregateType,
		EventType:     eventType,
		Data:          payload,
		Version:       version,
	}
	value, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, p.HandleEvent(context.Background(), []byte(testOrderID), value))
}

func getOrder(t *testing.T, rs *mocks.MockReadStore) *readmodel.GroupOrderReadModel {
	t.Helper()
	v, ok := rs.Get(readmodel.CollectionGroupOrders, testOrderID)
	require.True(t, ok, "read model not found")
	return v.(*readmodel.GroupOrderReadModel)
}

func TestProjector_GroupOrderLifecycle(t *testing.T) {
	readStore := mocks.NewMockReadStore()
	projector := NewProjector(readStore)
	createdAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	project(t, projector, 1, grouporder.EventGroupOrderCreated, grouporder.GroupOrderCreated{
		GroupOrderID: testOrderID,
		CanteenID:    "canteen-1",
		CreatorID:    "user-1",
		CreatorName:  "Aki",
		InviteToken:  "token-abc",
		CreatedAt:    createdAt,
	})

	g := getOrder(t, readStore)
	assert.Equal(t, "forming", g.Status)
	assert.Equal(t, "equal", g.SplitType)
	assert.Equal(t, []string{"user-1"}, g.MemberIDs)
	assert.Equal(t, []string{"Aki"}, g.MemberNames)

	project(t, projector, 2, grouporder.EventMemberJoined, grouporder.MemberJoined{
		GroupOrderID: testOrderID, UserID: "user-2", Name: "Ben",
	})
	project(t, projector, 3, grouporder.EventItemSet, grouporder.ItemSet{
		GroupOrderID: testOrderID, MenuItemID: "item-1", NameAtPurchase: "Udon", PriceAtPurchase: 4.50, Quantity: 2,
	})
	project(t, projector, 4, grouporder.EventPayerSet, grouporder.PayerSet{
		GroupOrderID: testOrderID, PayerID: "user-2",
	})

	g = getOrder(t, readStore)
	assert.Equal(t, []string{"user-1", "user-2"}, g.MemberIDs)
	require.Len(t, g.Items, 1)
	assert.Equal(t, 9.00, g.TotalAmount)
	assert.Equal(t, "user-2", g.PayerID)

	project(t, projector, 5, grouporder.EventPaymentInitiated, grouporder.PaymentInitiated{
		GroupOrderID: testOrderID, IntentID: "intent-1", PayerID: "user-2", Amount: 9.00,
	})
	assert.Equal(t, "paying", getOrder(t, readStore).Status)

	project(t, projector, 6, grouporder.EventTransactionRecorded, grouporder.TransactionRecorded{
		GroupOrderID: testOrderID, TransactionID: "txn-1", Result: grouporder.TxnSuccess,
	})
	assert.Equal(t, "completed", getOrder(t, readStore).Status)
}

func TestProjector_ItemSetReplacesLine(t *testing.T) {
	readStore := mocks.NewMockReadStore()
	projector := NewProjector(readStore)

	project(t, projector, 1, grouporder.EventGroupOrderCreated, grouporder.GroupOrderCreated{
		GroupOrderID: testOrderID, CanteenID: "canteen-1", CreatorID: "user-1", CreatorName: "Aki",
	})
	project(t, projector, 2, grouporder.EventItemSet, grouporder.ItemSet{
		GroupOrderID: testOrderID, MenuItemID: "item-1", NameAtPurchase: "Udon", PriceAtPurchase: 4.50, Quantity: 2,
	})
	project(t, projector, 3, grouporder.EventItemSet, grouporder.ItemSet{
		GroupOrderID: testOrderID, MenuItemID: "item-1", NameAtPurchase: "Udon", PriceAtPurchase: 4.50, Quantity: 1,
	})

	g := getOrder(t, readStore)
	require.Len(t, g.Items, 1)
	assert.Equal(t, 1, g.Items[0].Quantity)
	assert.Equal(t, 4.50, g.TotalAmount)
}

func TestProjector_ItemRemoved(t *testing.T) {
	readStore := mocks.NewMockReadStore()
	projector := NewProjector(readStore)

	project(t, projector, 1, grouporder.EventGroupOrderCreated, grouporder.GroupOrderCreated{
		GroupOrderID: testOrderID, CanteenID: "canteen-1", CreatorID: "user-1", CreatorName: "Aki",
	})
	project(t, projector, 2, grouporder.EventItemSet, grouporder.ItemSet{
		GroupOrderID: testOrderID, MenuItemID: "item-1", NameAtPurchase: "Udon", PriceAtPurchase: 4.50, Quantity: 2,
	})
	project(t, projector, 3, grouporder.EventItemRemoved, grouporder.ItemRemoved{
		GroupOrderID: testOrderID, MenuItemID: "item-1",
	})

	g := getOrder(t, readStore)
	assert.Empty(t, g.Items)
	assert.Equal(t, 0.0, g.TotalAmount)
}

func TestProjector_TransactionFailureMarksFailed(t *testing.T) {
	readStore := mocks.NewMockReadStore()
	projector := NewProjector(readStore)

	project(t, projector, 1, grouporder.EventGroupOrderCreated, grouporder.GroupOrderCreated{
		GroupOrderID: testOrderID, CanteenID: "canteen-1", CreatorID: "user-1", CreatorName: "Aki",
	})
	project(t, projector, 2, grouporder.EventPaymentInitiated, grouporder.PaymentInitiated{
		GroupOrderID: testOrderID, IntentID: "intent-1", PayerID: "user-1",
	})
	project(t, projector, 3, grouporder.EventTransactionRecorded, grouporder.TransactionRecorded{
		GroupOrderID: testOrderID, TransactionID: "txn-1", Result: grouporder.TxnFailure,
	})

	assert.Equal(t, "failed", getOrder(t, readStore).Status)
}

func TestProjector_IgnoresUnknownAggregates(t *testing.T) {
	readStore := mocks.NewMockReadStore()
	projector := NewProjector(readStore)

	event := store.Event{AggregateType: "Other", EventType: "Whatever", Data: []byte(`{}`)}
	value, _ := json.Marshal(event)

	require.NoError(t, projector.HandleEvent(context.Background(), nil, value))
	assert.Empty(t, readStore.SetCalls)
}
