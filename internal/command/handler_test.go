package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/canteen-order/internal/catalog"
	"github.com/example/canteen-order/internal/domain/grouporder"
	"github.com/example/canteen-order/internal/infrastructure/store/mocks"
	"github.com/example/canteen-order/internal/payment"
)

type fakeInvites struct {
	tokens map[string]string
	err    error
}

func (f *fakeInvites) Put(ctx context.Context, token, groupOrderID string) error {
	if f.err != nil {
		return f.err
	}
	if f.tokens == nil {
		f.tokens = make(map[string]string)
	}
	f.tokens[token] = groupOrderID
	return nil
}

func newTestHandler() (*Handler, *mocks.MockEventStore, *fakeInvites) {
	eventStore := mocks.NewMockEventStore()
	gateway := &payment.StubGateway{TransactionID: "txn-1"}
	orderSvc := grouporder.NewService(eventStore, gateway, "JPY")
	resolver := catalog.NewStaticResolver(
		&catalog.Item{ID: "item-1", CanteenID: "canteen-1", Name: "Udon", Price: 4.50, Available: true},
		&catalog.Item{ID: "item-2", CanteenID: "canteen-1", Name: "Soba", Price: 4.00, Available: false},
	)
	invites := &fakeInvites{}
	return NewHandler(orderSvc, resolver, invites, nil), eventStore, invites
}

func TestHandler_CreateGroupOrder_RegistersInviteToken(t *testing.T) {
	handler, _, invites := newTestHandler()
	ctx := context.Background()

	order, err := handler.CreateGroupOrder(ctx, CreateGroupOrder{
		CreatorID:   "user-1",
		CreatorName: "Aki",
		CanteenID:   "canteen-1",
	})

	require.NoError(t, err)
	assert.Equal(t, order.ID, invites.tokens[order.InviteToken])
}

func TestHandler_CreateGroupOrder_InviteIndexFailureIsNotFatal(t *testing.T) {
	handler, _, invites := newTestHandler()
	ctx := context.Background()
	invites.err = errors.New("redis down")

	order, err := handler.CreateGroupOrder(ctx, CreateGroupOrder{
		CreatorID:   "user-1",
		CreatorName: "Aki",
		CanteenID:   "canteen-1",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
}

func TestHandler_SetItem_ResolvesCatalogItem(t *testing.T) {
	handler, _, _ := newTestHandler()
	ctx := context.Background()

	order, err := handler.CreateGroupOrder(ctx, CreateGroupOrder{CreatorID: "user-1", CreatorName: "Aki", CanteenID: "canteen-1"})
	require.NoError(t, err)

	order, err = handler.SetItem(ctx, SetItem{
		GroupOrderID: order.ID,
		UserID:       "user-1",
		MenuItemID:   "item-1",
		Quantity:     2,
	})

	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Udon", order.Items[0].NameAtPurchase)
	assert.Equal(t, 4.50, order.Items[0].PriceAtPurchase)
}

func TestHandler_SetItem_UnknownItem(t *testing.T) {
	handler, _, _ := newTestHandler()
	ctx := context.Background()

	order, err := handler.CreateGroupOrder(ctx, CreateGroupOrder{CreatorID: "user-1", CreatorName: "Aki", CanteenID: "canteen-1"})
	require.NoError(t, err)

	_, err = handler.SetItem(ctx, SetItem{GroupOrderID: order.ID, UserID: "user-1", MenuItemID: "item-99", Quantity: 1})

	assert.ErrorIs(t, err, grouporder.ErrItemNotFound)
}

func TestHandler_SetItem_UnavailableItem(t *testing.T) {
	handler, _, _ := newTestHandler()
	ctx := context.Background()

	order, err := handler.CreateGroupOrder(ctx, CreateGroupOrder{CreatorID: "user-1", CreatorName: "Aki", CanteenID: "canteen-1"})
	require.NoError(t, err)

	_, err = handler.SetItem(ctx, SetItem{GroupOrderID: order.ID, UserID: "user-1", MenuItemID: "item-2", Quantity: 1})

	assert.ErrorIs(t, err, grouporder.ErrItemNotFound)
}

func TestHandler_FullOrderFlow(t *testing.T) {
	handler, _, _ := newTestHandler()
	ctx := context.Background()

	// 1. Creator opens the order
	order, err := handler.CreateGroupOrder(ctx, CreateGroupOrder{CreatorID: "user-1", CreatorName: "Aki", CanteenID: "canteen-1"})
	require.NoError(t, err)

	// 2. A friend joins with the invite token
	order, err = handler.JoinGroupOrder(ctx, JoinGroupOrder{
		GroupOrderID: order.ID,
		Token:        order.InviteToken,
		UserID:       "user-2",
		UserName:     "Ben",
	})
	require.NoError(t, err)
	assert.Len(t, order.Members, 2)

	// 3. Items go in
	order, err = handler.SetItem(ctx, SetItem{GroupOrderID: order.ID, UserID: "user-1", MenuItemID: "item-1", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 9.00, order.TotalAmount)

	// 4. Payer assigned, equal split stands
	order, err = handler.SetPayer(ctx, SetPayer{GroupOrderID: order.ID, CallerID: "user-1", PayerID: "user-2"})
	require.NoError(t, err)
	assert.Equal(t, grouporder.StatusReady, order.EffectiveStatus())

	// 5. Payment
	order, err = handler.InitiatePayment(ctx, InitiatePayment{GroupOrderID: order.ID, UserID: "user-2"})
	require.NoError(t, err)
	assert.Equal(t, grouporder.StatusPaying, order.Status)

	order, err = handler.RecordTransactionResult(ctx, RecordTransactionResult{
		GroupOrderID:  order.ID,
		TransactionID: "txn-1",
		Result:        grouporder.TxnSuccess,
	})
	require.NoError(t, err)
	assert.Equal(t, grouporder.StatusCompleted, order.Status)
}
