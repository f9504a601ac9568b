// Package catalog resolves menu items. The menu itself is owned by the
// vendor-management side of the platform; this package only reads it, always
// through the Resolver interface so the group-order core never depends on
// where the menu lives.
package catalog

import (
	"context"
	"errors"
)

// ErrItemNotFound is returned when a menu item id cannot be resolved.
var ErrItemNotFound = errors.New("menu item not found")

// Item is a resolved menu item. Price is in currency units.
type Item struct {
	ID        string  `json:"id"`
	CanteenID string  `json:"canteen_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

// Resolver looks up menu items.
type Resolver interface {
	// Resolve returns the item for the given id, or ErrItemNotFound.
	Resolve(ctx context.Context, itemID string) (*Item, error)

	// ListByCanteen returns all available items for one canteen.
	ListByCanteen(ctx context.Context, canteenID string) ([]*Item, error)
}

// StaticResolver serves a fixed item set. Used in tests and demo runs.
type StaticResolver struct {
	items map[string]*Item
}

func NewStaticResolver(items ...*Item) *StaticResolver {
	m := make(map[string]*Item, len(items))
	for _, item := range items {
		m[item.ID] = item
	}
	return &StaticResolver{items: m}
}

func (r *StaticResolver) Resolve(ctx context.Context, itemID string) (*Item, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (r *StaticResolver) ListByCanteen(ctx context.Context, canteenID string) ([]*Item, error) {
	var items []*Item
	for _, item := range r.items {
		if item.CanteenID == canteenID && item.Available {
			items = append(items, item)
		}
	}
	return items, nil
}
