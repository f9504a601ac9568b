package query

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/canteen-order/internal/domain/grouporder"
	"github.com/example/canteen-order/internal/infrastructure/store/mocks"
	"github.com/example/canteen-order/internal/payment"
	"github.com/example/canteen-order/internal/readmodel"
)

type fakeResolver struct {
	tokens map[string]string
}

func (f *fakeResolver) Resolve(ctx context.Context, token string) (string, error) {
	id, ok := f.tokens[token]
	if !ok {
		return "", grouporder.ErrInvalidToken
	}
	return id, nil
}

type fakeCache struct {
	data map[string][]byte
	hits int
}

func (f *fakeCache) Get(ctx context.Context, id string, out any) (bool, error) {
	data, ok := f.data[id]
	if !ok {
		return false, nil
	}
	f.hits++
	return true, json.Unmarshal(data, out)
}

func (f *fakeCache) Set(ctx context.Context, id string, snapshot any) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if f.data == nil {
		f.data = make(map[string][]byte)
	}
	f.data[id] = data
	return nil
}

func newTestHandler() (*Handler, *mocks.MockEventStore, *mocks.MockReadStore) {
	eventStore := mocks.NewMockEventStore()
	readStore := mocks.NewMockReadStore()
	orderSvc := grouporder.NewService(eventStore, &payment.StubGateway{}, "JPY")
	handler := NewHandler(readStore, orderSvc, &fakeResolver{tokens: map[string]string{"token-abc": "order-123"}}, nil)
	return handler, eventStore, readStore
}

func seedAggregate(es *mocks.MockEventStore) {
	_ = es.AddEvent("order-123", grouporder.AggregateType, grouporder.EventGroupOrderCreated, grouporder.GroupOrderCreated{
		GroupOrderID: "order-123",
		CanteenID:    "canteen-1",
		CreatorID:    "user-1",
		CreatorName:  "Aki",
		InviteToken:  "token-abc",
	})
	_ = es.AddEvent("order-123", grouporder.AggregateType, grouporder.EventItemSet, grouporder.ItemSet{
		GroupOrderID: "order-123", MenuItemID: "item-1", NameAtPurchase: "Udon", PriceAtPurchase: 4.50, Quantity: 2,
	})
	_ = es.AddEvent("order-123", grouporder.AggregateType, grouporder.EventPayerSet, grouporder.PayerSet{
		GroupOrderID: "order-123", PayerID: "user-1",
	})
}

func TestHandler_GetGroupOrder_RebuildsDetail(t *testing.T) {
	handler, eventStore, _ := newTestHandler()
	seedAggregate(eventStore)

	detail, err := handler.GetGroupOrder(context.Background(), "order-123")

	require.NoError(t, err)
	assert.Equal(t, "order-123", detail.ID)
	assert.Equal(t, 9.00, detail.TotalAmount)
	assert.Equal(t, grouporder.StatusReady, detail.EffectiveStatus)
	assert.Equal(t, map[string]float64{"user-1": 9.00}, detail.Shares)
}

func TestHandler_GetGroupOrder_NotFound(t *testing.T) {
	handler, _, _ := newTestHandler()

	_, err := handler.GetGroupOrder(context.Background(), "missing")

	assert.ErrorIs(t, err, grouporder.ErrOrderNotFound)
}

func TestHandler_GetGroupOrder_UsesCache(t *testing.T) {
	eventStore := mocks.NewMockEventStore()
	readStore := mocks.NewMockReadStore()
	orderSvc := grouporder.NewService(eventStore, &payment.StubGateway{}, "JPY")
	cache := &fakeCache{}
	handler := NewHandler(readStore, orderSvc, nil, cache)
	seedAggregate(eventStore)

	_, err := handler.GetGroupOrder(context.Background(), "order-123")
	require.NoError(t, err)
	assert.Equal(t, 0, cache.hits)

	detail, err := handler.GetGroupOrder(context.Background(), "order-123")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 9.00, detail.TotalAmount)
}

func TestHandler_ResolveInvite(t *testing.T) {
	handler, _, _ := newTestHandler()

	id, err := handler.ResolveInvite(context.Background(), "token-abc")
	require.NoError(t, err)
	assert.Equal(t, "order-123", id)

	_, err = handler.ResolveInvite(context.Background(), "bogus")
	assert.ErrorIs(t, err, grouporder.ErrInvalidToken)
}

func TestHandler_GetGroupOrderSummary(t *testing.T) {
	handler, _, readStore := newTestHandler()
	readStore.Set(readmodel.CollectionGroupOrders, "order-123", &readmodel.GroupOrderReadModel{
		ID: "order-123", Status: "forming", MemberIDs: []string{"user-1"},
	})

	g, ok := handler.GetGroupOrderSummary("order-123")
	require.True(t, ok)
	assert.Equal(t, "forming", g.Status)

	_, ok = handler.GetGroupOrderSummary("missing")
	assert.False(t, ok)
}

func TestHandler_ListGroupOrdersByMember(t *testing.T) {
	handler, _, readStore := newTestHandler()
	readStore.Set(readmodel.CollectionGroupOrders, "order-1", &readmodel.GroupOrderReadModel{
		ID: "order-1", MemberIDs: []string{"user-1", "user-2"},
	})
	readStore.Set(readmodel.CollectionGroupOrders, "order-2", &readmodel.GroupOrderReadModel{
		ID: "order-2", MemberIDs: []string{"user-3"},
	})

	orders := handler.ListGroupOrdersByMember("user-2")
	require.Len(t, orders, 1)
	assert.Equal(t, "order-1", orders[0].ID)

	assert.Empty(t, handler.ListGroupOrdersByMember("user-9"))
}
