package grouporder

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/canteen-order/internal/calculator"
	"github.com/example/canteen-order/internal/infrastructure/store"
)

const AggregateType = "GroupOrder"

type Status string

const (
	StatusForming   Status = "forming"
	StatusReady     Status = "ready" // derived, never stored
	StatusPaying    Status = "paying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type SplitType string

const (
	SplitEqual  SplitType = "equal"
	SplitCustom SplitType = "custom"
)

type TxnResult string

const (
	TxnSuccess TxnResult = "success"
	TxnFailure TxnResult = "failed"
)

var (
	ErrOrderNotFound    = errors.New("group order not found")
	ErrInvalidToken     = errors.New("invalid invite token")
	ErrAlreadyStarted   = errors.New("group order is already settled")
	ErrItemNotFound     = errors.New("item not found in group order")
	ErrVendorMismatch   = errors.New("item belongs to a different canteen")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrNotAMember       = errors.New("user is not a member of this group order")
	ErrEmptyOrder       = errors.New("group order has no items")
	ErrNoPayer          = errors.New("group order has no payer assigned")
	ErrOrderLocked      = errors.New("group order is locked for changes")
	ErrConcurrentUpdate = errors.New("group order was modified concurrently")
	ErrInvalidSplitType = errors.New("split type must be equal or custom")
	ErrInvalidTxnResult = errors.New("transaction result must be success or failure")
	ErrNotInPayment     = errors.New("group order has no payment in flight")
)

// validTransitions defines allowed state transitions for stored statuses
var validTransitions = map[Status][]Status{
	StatusForming:   {StatusPaying},
	StatusPaying:    {StatusCompleted, StatusFailed},
	StatusFailed:    {StatusPaying},
	StatusCompleted: {}, // terminal state
}

type Member struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

type OrderLine struct {
	MenuItemID      string  `json:"menu_item_id"`
	NameAtPurchase  string  `json:"name_at_purchase"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
	Quantity        int     `json:"quantity"`
}

// Transaction tracks one payment attempt. ID is the gateway's transaction
// id and stays empty until the charge is accepted.
type Transaction struct {
	IntentID    string    `json:"intent_id"`
	ID          string    `json:"id,omitempty"`
	PayerID     string    `json:"payer_id"`
	Result      TxnResult `json:"result,omitempty"`
	InitiatedAt time.Time `json:"initiated_at"`
	RecordedAt  time.Time `json:"recorded_at,omitempty"`
}

type GroupOrder struct {
	ID          string             `json:"id"`
	CanteenID   string             `json:"canteen_id"`
	CreatorID   string             `json:"creator_id"`
	InviteToken string             `json:"invite_token"`
	Members     []Member           `json:"members"` // join order
	Items       []OrderLine        `json:"items"`
	TotalAmount float64            `json:"total_amount"`
	SplitType   SplitType          `json:"split_type"`
	Amounts     map[string]float64 `json:"amounts,omitempty"`
	// AmountsStale marks custom amounts that predate an item change and no
	// longer necessarily sum to the total.
	AmountsStale bool          `json:"amounts_stale,omitempty"`
	PayerID      string        `json:"payer_id,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
	Status       Status        `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Version      int           `json:"version"` // Current event version
}

// Aggregate interface implementation
func (g *GroupOrder) GetID() string    { return g.ID }
func (g *GroupOrder) GetVersion() int  { return g.Version }
func (g *GroupOrder) SetVersion(v int) { g.Version = v }

// CanTransitionTo checks if the order can transition to the target status
func (g *GroupOrder) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[g.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// HasMember reports whether the user has joined this group order.
func (g *GroupOrder) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the member user ids in join order.
func (g *GroupOrder) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.UserID
	}
	return ids
}

func (g *GroupOrder) findLine(menuItemID string) int {
	for i, line := range g.Items {
		if line.MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}

// Mutable reports whether membership, items, split and payer can still change.
// Orders stay editable after a failed payment so the group can fix amounts
// and retry.
func (g *GroupOrder) Mutable() bool {
	return g.Status == StatusForming || g.Status == StatusFailed
}

// EffectiveStatus derives the observed status: a forming order whose items,
// payer and split are all settled is reported as ready.
func (g *GroupOrder) EffectiveStatus() Status {
	if g.Status == StatusForming && len(g.Items) > 0 && g.PayerID != "" && g.splitReconciled() {
		return StatusReady
	}
	return g.Status
}

func (g *GroupOrder) splitReconciled() bool {
	if g.SplitType != SplitCustom {
		return true
	}
	if g.AmountsStale {
		return false
	}
	return calculator.ValidateCustomSplit(g.TotalAmount, g.Amounts) == nil
}

// Shares returns the amount owed per member. Under the equal split the
// remainder cents go to the earliest joiners; under the custom split the
// stored amounts are returned as-is.
func (g *GroupOrder) Shares() (map[string]float64, error) {
	if g.SplitType == SplitCustom {
		shares := make(map[string]float64, len(g.Amounts))
		for userID, amount := range g.Amounts {
			shares[userID] = amount
		}
		return shares, nil
	}
	return calculator.EqualSplit(g.TotalAmount, g.MemberIDs())
}

func (g *GroupOrder) recomputeTotal() {
	var cents int64
	for _, line := range g.Items {
		cents += int64(math.Round(line.PriceAtPurchase*100)) * int64(line.Quantity)
	}
	g.TotalAmount = float64(cents) / 100
}

// ApplyEvent applies a single event to the order state (implements aggregate.Aggregate)
func (g *GroupOrder) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventGroupOrderCreated:
		var data GroupOrderCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		g.ID = data.GroupOrderID
		g.CanteenID = data.CanteenID
		g.CreatorID = data.CreatorID
		g.InviteToken = data.InviteToken
		g.Members = []Member{{UserID: data.CreatorID, Name: data.CreatorName, JoinedAt: data.CreatedAt}}
		g.SplitType = SplitEqual
		g.Status = StatusForming
		g.CreatedAt = data.CreatedAt
		g.UpdatedAt = data.CreatedAt
	case EventMemberJoined:
		var data MemberJoined
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if !g.HasMember(data.UserID) {
			g.Members = append(g.Members, Member{UserID: data.UserID, Name: data.Name, JoinedAt: data.JoinedAt})
		}
		g.UpdatedAt = data.JoinedAt
	case EventItemSet:
		var data ItemSet
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		line := OrderLine{
			MenuItemID:      data.MenuItemID,
			NameAtPurchase:  data.NameAtPurchase,
			PriceAtPurchase: data.PriceAtPurchase,
			Quantity:        data.Quantity,
		}
		if i := g.findLine(data.MenuItemID); i >= 0 {
			g.Items[i] = line
		} else {
			g.Items = append(g.Items, line)
		}
		g.recomputeTotal()
		g.markAmountsStale()
		g.UpdatedAt = data.SetAt
	case EventItemRemoved:
		var data ItemRemoved
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if i := g.findLine(data.MenuItemID); i >= 0 {
			g.Items = append(g.Items[:i], g.Items[i+1:]...)
		}
		g.recomputeTotal()
		g.markAmountsStale()
		g.UpdatedAt = data.RemovedAt
	case EventSplitTypeSet:
		var data SplitTypeSet
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		g.SplitType = data.SplitType
		g.Amounts = nil
		if len(data.Amounts) > 0 {
			g.Amounts = make(map[string]float64, len(data.Amounts))
			for userID, amount := range data.Amounts {
				g.Amounts[userID] = amount
			}
		}
		g.AmountsStale = false
		g.UpdatedAt = data.SetAt
	case EventAmountSet:
		var data AmountSet
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if g.Amounts == nil {
			g.Amounts = make(map[string]float64)
		}
		g.Amounts[data.UserID] = data.Amount
		g.AmountsStale = false
		g.UpdatedAt = data.SetAt
	case EventPayerSet:
		var data PayerSet
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		g.PayerID = data.PayerID
		g.UpdatedAt = data.SetAt
	case EventPaymentInitiated:
		var data PaymentInitiated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		g.Transactions = append(g.Transactions, Transaction{
			IntentID:    data.IntentID,
			PayerID:     data.PayerID,
			InitiatedAt: data.InitiatedAt,
		})
		g.Status = StatusPaying
		g.UpdatedAt = data.InitiatedAt
	case EventChargeAccepted:
		var data ChargeAccepted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		for i := range g.Transactions {
			if g.Transactions[i].IntentID == data.IntentID && g.Transactions[i].Result == "" {
				g.Transactions[i].ID = data.TransactionID
				break
			}
		}
		g.UpdatedAt = data.AcceptedAt
	case EventTransactionRecorded:
		var data TransactionRecorded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		// Match by the gateway id, falling back to the intent id and then to
		// the oldest pending transaction for results with an unknown id.
		idx := -1
		for i := range g.Transactions {
			if g.Transactions[i].Result != "" {
				continue
			}
			if g.Transactions[i].ID == data.TransactionID || g.Transactions[i].IntentID == data.TransactionID {
				idx = i
				break
			}
			if idx < 0 {
				idx = i
			}
		}
		if idx >= 0 {
			g.Transactions[idx].Result = data.Result
			g.Transactions[idx].RecordedAt = data.RecordedAt
		}
		if data.Result == TxnSuccess {
			g.Status = StatusCompleted
		} else {
			g.Status = StatusFailed
		}
		g.UpdatedAt = data.RecordedAt
	}
	g.Version = event.Version
	return nil
}

// checkItemMutation gates item changes: caller must be a member and the
// order must still be editable.
func (g *GroupOrder) checkItemMutation(userID string) error {
	if !g.HasMember(userID) {
		return ErrNotAMember
	}
	if !g.Mutable() {
		return ErrOrderLocked
	}
	return nil
}

func (g *GroupOrder) markAmountsStale() {
	if g.SplitType == SplitCustom && len(g.Amounts) > 0 {
		g.AmountsStale = true
	}
}

func (g *GroupOrder) transitionError(target Status) error {
	switch {
	case g.Status == StatusCompleted:
		return ErrAlreadyStarted
	case g.Status == StatusPaying:
		return ErrOrderLocked
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrOrderLocked, g.Status, target)
	}
}
