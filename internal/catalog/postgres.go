package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresResolver reads the menu_items table. The table is written by the
// vendor-management service; we never insert or update here.
type PostgresResolver struct {
	db *sql.DB
}

func NewPostgresResolver(db *sql.DB) *PostgresResolver {
	return &PostgresResolver{db: db}
}

func (r *PostgresResolver) Resolve(ctx context.Context, itemID string) (*Item, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, canteen_id, name, price, available FROM menu_items WHERE id = $1`,
		itemID)

	var item Item
	err := row.Scan(&item.ID, &item.CanteenID, &item.Name, &item.Price, &item.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query menu item: %w", err)
	}
	return &item, nil
}

func (r *PostgresResolver) ListByCanteen(ctx context.Context, canteenID string) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, canteen_id, name, price, available
		 FROM menu_items WHERE canteen_id = $1 AND available ORDER BY name`,
		canteenID)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.CanteenID, &item.Name, &item.Price, &item.Available); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
