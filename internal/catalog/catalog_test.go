package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticResolver_Resolve(t *testing.T) {
	resolver := NewStaticResolver(
		&Item{ID: "item-1", CanteenID: "canteen-1", Name: "Udon", Price: 4.50, Available: true},
		&Item{ID: "item-2", CanteenID: "canteen-1", Name: "Curry Rice", Price: 5.00, Available: true},
	)

	item, err := resolver.Resolve(context.Background(), "item-1")
	assert.NoError(t, err)
	assert.Equal(t, "Udon", item.Name)
	assert.Equal(t, 4.50, item.Price)

	_, err = resolver.Resolve(context.Background(), "item-999")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestStaticResolver_ListByCanteen(t *testing.T) {
	resolver := NewStaticResolver(
		&Item{ID: "item-1", CanteenID: "canteen-1", Name: "Udon", Price: 4.50, Available: true},
		&Item{ID: "item-2", CanteenID: "canteen-1", Name: "Soba", Price: 4.00, Available: false},
		&Item{ID: "item-3", CanteenID: "canteen-2", Name: "Ramen", Price: 6.00, Available: true},
	)

	items, err := resolver.ListByCanteen(context.Background(), "canteen-1")
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "item-1", items[0].ID)
}
