package grouporder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/canteen-order/internal/calculator"
	"github.com/example/canteen-order/internal/catalog"
	"github.com/example/canteen-order/internal/domain/aggregate"
	"github.com/example/canteen-order/internal/infrastructure/store"
	"github.com/example/canteen-order/internal/payment"
)

// maxRetries bounds the optimistic concurrency retry loop. A command that
// keeps losing the version race is reported as a concurrent update rather
// than spinning.
const maxRetries = 3

type Service struct {
	eventStore store.EventStoreInterface
	gateway    payment.Gateway
	currency   string
}

func NewService(es store.EventStoreInterface, gateway payment.Gateway, currency string) *Service {
	return &Service{eventStore: es, gateway: gateway, currency: currency}
}

// loadOrder loads a group order by replaying events, using snapshot if available
func (s *Service) loadOrder(ctx context.Context, orderID string) (*GroupOrder, error) {
	order, found, err := aggregate.LoadAggregate(ctx, s.eventStore, orderID, func() *GroupOrder {
		return &GroupOrder{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// mutate runs one read-validate-append cycle against the order. fn inspects
// the freshly loaded state and returns the event to append; returning an
// empty event type makes the command a no-op. A version conflict on append
// restarts the whole cycle, so validation always runs against the state the
// event will be appended to.
func (s *Service) mutate(ctx context.Context, orderID string, fn func(*GroupOrder) (string, any, error)) (*GroupOrder, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		order, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}

		eventType, data, err := fn(order)
		if err != nil {
			return nil, err
		}
		if eventType == "" {
			return order, nil
		}

		storedEvent, err := s.eventStore.Append(ctx, orderID, AggregateType, eventType, order.Version, data)
		if errors.Is(err, store.ErrVersionConflict) {
			slog.Debug("version conflict, retrying", "group_order_id", orderID, "event_type", eventType, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := order.ApplyEvent(*storedEvent); err != nil {
			return nil, err
		}
		s.maybeSnapshot(ctx, order)
		return order, nil
	}
	return nil, ErrConcurrentUpdate
}

func (s *Service) maybeSnapshot(ctx context.Context, order *GroupOrder) {
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, order, AggregateType); err != nil {
		slog.Warn("failed to create snapshot", "group_order_id", order.ID, "error", err)
	}
}

func (s *Service) Create(ctx context.Context, creatorID, creatorName, canteenID string) (*GroupOrder, error) {
	orderID := uuid.New().String()
	token := uuid.New().String()

	event := GroupOrderCreated{
		GroupOrderID: orderID,
		CanteenID:    canteenID,
		CreatorID:    creatorID,
		CreatorName:  creatorName,
		InviteToken:  token,
		CreatedAt:    time.Now(),
	}

	storedEvent, err := s.eventStore.Append(ctx, orderID, AggregateType, EventGroupOrderCreated, 0, event)
	if err != nil {
		return nil, err
	}

	order := &GroupOrder{}
	if err := order.ApplyEvent(*storedEvent); err != nil {
		return nil, err
	}
	return order, nil
}

// Join adds a user to the group order. Joining twice is a no-op; the member
// keeps their original position in the join order.
func (s *Service) Join(ctx context.Context, orderID, token, userID, userName string) (*GroupOrder, error) {
	return s.mutate(ctx, orderID, func(order *GroupOrder) (string, any, error) {
		if token != order.InviteToken {
			return "", nil, ErrInvalidToken
		}
		if order.HasMember(userID) {
			return "", nil, nil
		}
		if order.Status == StatusCompleted {
			return "", nil, ErrAlreadyStarted
		}
		return EventMemberJoined, MemberJoined{
			GroupOrderID: orderID,
			UserID:       userID,
			Name:         userName,
			JoinedAt:     time.Now(),
		}, nil
	})
}

// SetItem sets the quantity for a menu item, adding the line if it is new.
// Name and price are snapshotted from the resolved item on first add and
// kept on later quantity changes.
func (s *Service) SetItem(ctx context.Context, orderID, userID string, item *catalog.Item, quantity int) (*GroupOrder, error) {
	if quantity <= 0 {
		return nil, ErrNegativeAmount
	}
	return s.mutate(ctx, orderID, func(order *GroupOrder) (string, any, error) {
		if err := order.checkItemMutation(userID); err != nil {
			return "", nil, err
		}
		if item.CanteenID != order.CanteenID {
			return "", nil, ErrVendorMismatch
		}

		name, price := item.Name, item.Price
		if i := order.findLine(item.ID); i >= 0 {
			name, price = order.Items[i].NameAtPurchase, order.Items[i].PriceAtPurchase
		}
		return EventItemSet, ItemSet{
			GroupOrderID:    orderID,
			SetBy:           userID,
			MenuItemID:      item.ID,
			NameAtPurchase:  name,
			PriceAtPurchase: price,
			Quantity:        quantity,
			SetAt:           time.Now(),
		}, nil
	})
}

// UpdateQuantity changes the quantity of an existing line. Zero removes the
// line.
func (s *Service) UpdateQuantity(ctx context.Context, orderID, userID, menuItemID string, quantity int) (*GroupOrder, error) {
	if quantity < 0 {
		return nil, ErrNegativeAmount
	}
	return s.mutate(ctx, orderID, func(order *GroupOrder) (string, any, error) {
		if err := order.checkItemMutation(userID); err != nil {
			return "", nil, err
		}
		i := order.findLine(menuItemID)
		if i < 0 {
			return "", nil, ErrItemNotFound
		}
		if quantity == 0 {
			return EventItemRemoved, ItemRemoved{
				GroupOrderID: orderID,
				RemovedBy:    userID,
				MenuItemID:   menuItemID,
				RemovedAt:    time.Now(),
			}, nil
		}
		line := order.Items[i]
		return EventItemSet, ItemSet{
			GroupOrderID:    orderID,
			SetBy:           userID,
			MenuItemID:      menuItemID,
			NameAtPurchase:  line.NameAtPurchase,
			PriceAtPurchase: line.PriceAtPurchase,
			Quantity:        quantity,
			SetAt:           time.Now(),
		}, nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, orderID, userID, menuItemID string) (*GroupOrder, error) {
	return s.mutate(ctx, orderID, func(order *GroupOrder) (string, any, error) {
		if err := order.checkItemMutation(userID); err != nil {
			return "", nil, err
		}
		if order.findLine(menuItemID) < 0 {
			// Deleting a line that is already gone is a no-op, so a
			// duplicate delete click does not surface an error.
			return "", nil, nil
		}
		return EventItemRemoved, ItemRemoved{
			GroupOrderID: orderID,
			RemovedBy:    userID,
			MenuItemID:   menuItemID,
			RemovedAt:    time.Now(),
		}, nil
	})
}

// SetSplitType switches between equal and custom splits. Switching to custom
// seeds the per-member amounts from the current equal split so the order
// starts reconciled.
func (s *Service) SetSplitType(ctx context.Context, orderID, userID string, splitType SplitType) (*GroupOrder, error) {
	if splitType != SplitEqual && splitType != SplitCustom {
		return nil, ErrInvalidSplitType
	}
	return s.mutate(ctx, orderID, func(order *GroupOrder) (string, any, error) {
		if !order.HasMember(userID) {
			return "", nil, ErrNotAMember
		}
		if !order.Mutable() {
			return "", nil, ErrOrderLocked
		}

		event := SplitTypeSet{
			GroupOrderID: orderID,
			SplitType:    splitType,
			SetBy:        userID,
			SetAt:        time.Now(),
		}
		if splitType == SplitCustom {
			amounts, err := calculator.EqualSplit(order.TotalAmount, order.MemberIDs())
			if err != nil {
				return "", nil, err
			}
			event.Amounts = amounts
		}
		return EventSplitTypeSet, event, nil
	})
}

// SetAmount records a member's custom share. The amount is stored even
// while the split type is equal; it only takes effect under the custom
// split.
func (s *Service) SetAmount(ctx context.Context, orderID, callerID, targetUserID string, amount float64) (*GroupOrder, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	return s.mutate(ctx, orderID, func(order *GroupOrder) (string, any, error) {
		if !order.HasMember(callerID) {
			return "", nil, ErrNotAMember
		}
		if !order.HasMember(targetUserID) {
			return "", nil, ErrNotAMember
		}
		if !order.Mutable() {
			return "", nil, ErrOrderLocked
		}
		return EventAmountSet, AmountSet{
			GroupOrderID: orderID,
			UserID:       targetUserID,
			Amount:       amount,
			SetBy:        callerID,
			SetAt:        time.Now(),
		}, nil
	})
}

func (s *Service) SetPayer(ctx context.Context, orderID, callerID, payerID string) (*GroupOrder, error) {
	return s.mutate(ctx, orderID, func(order *GroupOrder) (string, any, error) {
		if !order.HasMember(callerID) {
			return "", nil, ErrNotAMember
		}
		if !order.HasMember(payerID) {
			return "", nil, ErrNotAMember
		}
		if !order.Mutable() {
			return "", nil, ErrOrderLocked
		}
		return EventPayerSet, PayerSet{
			GroupOrderID: orderID,
			PayerID:      payerID,
			SetBy:        callerID,
			SetAt:        time.Now(),
		}, nil
	})
}

// InitiatePayment validates the order, reserves it for payment and then
// dispatches the charge. Preconditions are checked in a fixed order: empty
// order, then missing payer, then split mismatch, then the status
// transition. The reservation is appended before the gateway is called, so
// of two racing calls only one can dispatch a charge: the loser's append
// conflicts, revalidates against the reserved order and sees it locked.
func (s *Service) InitiatePayment(ctx context.Context, orderID, callerID string) (*GroupOrder, error) {
	intentID := uuid.New().String()
	order, err := s.mutate(ctx, orderID, func(order *GroupOrder) (string, any, error) {
		if !order.HasMember(callerID) {
			return "", nil, ErrNotAMember
		}
		if len(order.Items) == 0 {
			return "", nil, ErrEmptyOrder
		}
		if order.PayerID == "" {
			return "", nil, ErrNoPayer
		}
		if order.SplitType == SplitCustom {
			if err := calculator.ValidateCustomSplit(order.TotalAmount, order.Amounts); err != nil {
				return "", nil, err
			}
		}
		if !order.CanTransitionTo(StatusPaying) {
			return "", nil, order.transitionError(StatusPaying)
		}
		return EventPaymentInitiated, PaymentInitiated{
			GroupOrderID: orderID,
			IntentID:     intentID,
			PayerID:      order.PayerID,
			Amount:       order.TotalAmount,
			InitiatedAt:  time.Now(),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	txnID, err := s.gateway.CreateCharge(ctx, payment.Intent{
		IntentID:     intentID,
		GroupOrderID: orderID,
		PayerID:      order.PayerID,
		Amount:       order.TotalAmount,
		Currency:     s.currency,
	})
	switch {
	case err == nil:
		return s.recordChargeAccepted(ctx, order, intentID, txnID)
	case errors.Is(err, context.DeadlineExceeded):
		// The charge was dispatched but the answer never arrived. The order
		// stays parked in paying with the pending transaction instead of
		// risking a duplicate charge.
		slog.Warn("gateway response timed out, parking order in paying",
			"group_order_id", orderID, "payer_id", order.PayerID)
		return order, nil
	default:
		// Nothing was charged. Fail the pending transaction so the order
		// reopens for another attempt, then surface the gateway error.
		if _, recErr := s.RecordTransactionResult(ctx, orderID, intentID, TxnFailure); recErr != nil {
			slog.Error("failed to reopen order after gateway error",
				"group_order_id", orderID, "error", recErr)
		}
		return nil, err
	}
}

// recordChargeAccepted attaches the gateway's transaction id to the pending
// transaction. The charge already exists on the gateway side, so a version
// conflict here is resolved by reloading and appending again rather than
// surfaced.
func (s *Service) recordChargeAccepted(ctx context.Context, order *GroupOrder, intentID, txnID string) (*GroupOrder, error) {
	event := ChargeAccepted{
		GroupOrderID:  order.ID,
		IntentID:      intentID,
		TransactionID: txnID,
		AcceptedAt:    time.Now(),
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		storedEvent, err := s.eventStore.Append(ctx, order.ID, AggregateType, EventChargeAccepted, order.Version, event)
		if errors.Is(err, store.ErrVersionConflict) {
			var loadErr error
			if order, loadErr = s.loadOrder(ctx, order.ID); loadErr != nil {
				return nil, loadErr
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := order.ApplyEvent(*storedEvent); err != nil {
			return nil, err
		}
		s.maybeSnapshot(ctx, order)
		return order, nil
	}
	return nil, ErrConcurrentUpdate
}

// RecordTransactionResult applies the gateway's verdict for a dispatched
// charge. Success completes the order; failure reopens it for changes and
// another payment attempt.
func (s *Service) RecordTransactionResult(ctx context.Context, orderID, transactionID string, result TxnResult) (*GroupOrder, error) {
	if result != TxnSuccess && result != TxnFailure {
		return nil, ErrInvalidTxnResult
	}
	return s.mutate(ctx, orderID, func(order *GroupOrder) (string, any, error) {
		if order.Status != StatusPaying {
			return "", nil, ErrNotInPayment
		}
		return EventTransactionRecorded, TransactionRecorded{
			GroupOrderID:  orderID,
			TransactionID: transactionID,
			Result:        result,
			RecordedAt:    time.Now(),
		}, nil
	})
}

func (s *Service) Get(ctx context.Context, orderID string) (*GroupOrder, error) {
	return s.loadOrder(ctx, orderID)
}
