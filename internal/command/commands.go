package command

import "github.com/example/canteen-order/internal/domain/grouporder"

// Group Order Commands
type CreateGroupOrder struct {
	CreatorID   string `json:"creator_id"`
	CreatorName string `json:"creator_name"`
	CanteenID   string `json:"canteen_id"`
}

type JoinGroupOrder struct {
	GroupOrderID string `json:"group_order_id"`
	Token        string `json:"token"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
}

// Item Commands
type SetItem struct {
	GroupOrderID string `json:"group_order_id"`
	UserID       string `json:"user_id"`
	MenuItemID   string `json:"menu_item_id"`
	Quantity     int    `json:"quantity"`
}

type UpdateItemQuantity struct {
	GroupOrderID string `json:"group_order_id"`
	UserID       string `json:"user_id"`
	MenuItemID   string `json:"menu_item_id"`
	Quantity     int    `json:"quantity"`
}

type RemoveItem struct {
	GroupOrderID string `json:"group_order_id"`
	UserID       string `json:"user_id"`
	MenuItemID   string `json:"menu_item_id"`
}

// Split Commands
type SetSplitType struct {
	GroupOrderID string               `json:"group_order_id"`
	UserID       string               `json:"user_id"`
	SplitType    grouporder.SplitType `json:"split_type"`
}

type SetAmount struct {
	GroupOrderID string  `json:"group_order_id"`
	CallerID     string  `json:"-"`
	UserID       string  `json:"user_id"`
	Amount       float64 `json:"amount"`
}

// Payment Commands
type SetPayer struct {
	GroupOrderID string `json:"group_order_id"`
	CallerID     string `json:"-"`
	PayerID      string `json:"payer_id"`
}

type InitiatePayment struct {
	GroupOrderID string `json:"group_order_id"`
	UserID       string `json:"user_id"`
}

type RecordTransactionResult struct {
	GroupOrderID  string               `json:"group_order_id"`
	TransactionID string               `json:"transaction_id"`
	Result        grouporder.TxnResult `json:"result"`
}
