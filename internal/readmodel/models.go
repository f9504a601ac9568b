// Package readmodel defines the denormalized models the projector maintains
// for the query side. They are summaries for list/poll endpoints; the
// authoritative per-order snapshot is always rebuilt from the event stream.
package readmodel

import "time"

// CollectionGroupOrders is the read store collection for group order summaries.
const CollectionGroupOrders = "group_orders"

// OrderLineReadModel is one projected order line.
type OrderLineReadModel struct {
	MenuItemID      string  `json:"menu_item_id"`
	NameAtPurchase  string  `json:"name_at_purchase"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
	Quantity        int     `json:"quantity"`
}

// GroupOrderReadModel is the projected summary of one group order.
type GroupOrderReadModel struct {
	ID          string               `json:"id"`
	CanteenID   string               `json:"canteen_id"`
	CreatorID   string               `json:"creator_id"`
	Status      string               `json:"status"`
	SplitType   string               `json:"split_type"`
	PayerID     string               `json:"payer_id,omitempty"`
	TotalAmount float64              `json:"total_amount"`
	Items       []OrderLineReadModel `json:"items"`
	MemberIDs   []string             `json:"member_ids"`
	MemberNames []string             `json:"member_names"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// HasMember reports whether the given member id is on the order's roster.
func (g *GroupOrderReadModel) HasMember(memberID string) bool {
	for _, id := range g.MemberIDs {
		if id == memberID {
			return true
		}
	}
	return false
}
