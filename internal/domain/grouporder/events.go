package grouporder

import "time"

const (
	EventGroupOrderCreated   = "GroupOrderCreated"
	EventMemberJoined        = "MemberJoined"
	EventItemSet             = "ItemSet"
	EventItemRemoved         = "ItemRemoved"
	EventSplitTypeSet        = "SplitTypeSet"
	EventAmountSet           = "AmountSet"
	EventPayerSet            = "PayerSet"
	EventPaymentInitiated    = "PaymentInitiated"
	EventChargeAccepted      = "ChargeAccepted"
	EventTransactionRecorded = "TransactionRecorded"
)

type GroupOrderCreated struct {
	GroupOrderID string    `json:"group_order_id"`
	CanteenID    string    `json:"canteen_id"`
	CreatorID    string    `json:"creator_id"`
	CreatorName  string    `json:"creator_name"`
	InviteToken  string    `json:"invite_token"`
	CreatedAt    time.Time `json:"created_at"`
}

type MemberJoined struct {
	GroupOrderID string    `json:"group_order_id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	JoinedAt     time.Time `json:"joined_at"`
}

// ItemSet carries the full line state: setting a quantity for a menu item
// that already has a line replaces that line. Name and price are snapshotted
// at the time the line was first added.
type ItemSet struct {
	GroupOrderID    string    `json:"group_order_id"`
	SetBy           string    `json:"set_by"`
	MenuItemID      string    `json:"menu_item_id"`
	NameAtPurchase  string    `json:"name_at_purchase"`
	PriceAtPurchase float64   `json:"price_at_purchase"`
	Quantity        int       `json:"quantity"`
	SetAt           time.Time `json:"set_at"`
}

type ItemRemoved struct {
	GroupOrderID string    `json:"group_order_id"`
	RemovedBy    string    `json:"removed_by"`
	MenuItemID   string    `json:"menu_item_id"`
	RemovedAt    time.Time `json:"removed_at"`
}

// SplitTypeSet carries the amounts in effect after the change. Switching to
// the custom split seeds them from the equal split, so replay stays
// deterministic even though the seed depends on membership at the time.
type SplitTypeSet struct {
	GroupOrderID string             `json:"group_order_id"`
	SplitType    SplitType          `json:"split_type"`
	Amounts      map[string]float64 `json:"amounts,omitempty"`
	SetBy        string             `json:"set_by"`
	SetAt        time.Time          `json:"set_at"`
}

type AmountSet struct {
	GroupOrderID string    `json:"group_order_id"`
	UserID       string    `json:"user_id"`
	Amount       float64   `json:"amount"`
	SetBy        string    `json:"set_by"`
	SetAt        time.Time `json:"set_at"`
}

type PayerSet struct {
	GroupOrderID string    `json:"group_order_id"`
	PayerID      string    `json:"payer_id"`
	SetBy        string    `json:"set_by"`
	SetAt        time.Time `json:"set_at"`
}

// PaymentInitiated reserves the order for payment before any charge is
// dispatched. IntentID identifies the attempt until the gateway hands back
// its own transaction id.
type PaymentInitiated struct {
	GroupOrderID string    `json:"group_order_id"`
	IntentID     string    `json:"intent_id"`
	PayerID      string    `json:"payer_id"`
	Amount       float64   `json:"amount"`
	InitiatedAt  time.Time `json:"initiated_at"`
}

// ChargeAccepted records the gateway's transaction id for a dispatched
// charge. It never arrives when the gateway response timed out; the pending
// transaction then keeps only its intent id.
type ChargeAccepted struct {
	GroupOrderID  string    `json:"group_order_id"`
	IntentID      string    `json:"intent_id"`
	TransactionID string    `json:"transaction_id"`
	AcceptedAt    time.Time `json:"accepted_at"`
}

type TransactionRecorded struct {
	GroupOrderID  string    `json:"group_order_id"`
	TransactionID string    `json:"transaction_id"`
	Result        TxnResult `json:"result"`
	RecordedAt    time.Time `json:"recorded_at"`
}
