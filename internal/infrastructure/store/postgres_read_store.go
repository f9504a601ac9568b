package store

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/example/canteen-order/internal/readmodel"
)

// PostgresReadStore implements ReadStoreInterface on PostgreSQL. Group order
// summaries are stored as one JSONB document per order so the projector can
// replace them wholesale on every event.
type PostgresReadStore struct {
	db *sql.DB
}

// NewPostgresReadStore creates a new PostgreSQL-based read store
func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{db: db}
}

// Set stores a read model
func (rs *PostgresReadStore) Set(collection, id string, data any) {
	if collection != readmodel.CollectionGroupOrders {
		slog.Warn("read store: unknown collection", "collection", collection)
		return
	}
	doc, err := json.Marshal(data)
	if err != nil {
		slog.Error("read store: marshal failed", "id", id, "error", err)
		return
	}
	_, err = rs.db.Exec(
		`INSERT INTO read_group_orders (id, data, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		id, doc, time.Now(),
	)
	if err != nil {
		slog.Error("read store: upsert failed", "id", id, "error", err)
	}
}

// Get retrieves a read model by id
func (rs *PostgresReadStore) Get(collection, id string) (any, bool) {
	if collection != readmodel.CollectionGroupOrders {
		return nil, false
	}
	var doc []byte
	err := rs.db.QueryRow(`SELECT data FROM read_group_orders WHERE id = $1`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		slog.Error("read store: get failed", "id", id, "error", err)
		return nil, false
	}
	var model readmodel.GroupOrderReadModel
	if err := json.Unmarshal(doc, &model); err != nil {
		slog.Error("read store: unmarshal failed", "id", id, "error", err)
		return nil, false
	}
	return &model, true
}

// GetAll retrieves all items in a collection
func (rs *PostgresReadStore) GetAll(collection string) []any {
	if collection != readmodel.CollectionGroupOrders {
		return nil
	}
	rows, err := rs.db.Query(`SELECT data FROM read_group_orders ORDER BY updated_at DESC`)
	if err != nil {
		slog.Error("read store: list failed", "error", err)
		return nil
	}
	defer rows.Close()

	var items []any
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			continue
		}
		var model readmodel.GroupOrderReadModel
		if err := json.Unmarshal(doc, &model); err != nil {
			continue
		}
		items = append(items, &model)
	}
	return items
}

// Delete removes a read model
func (rs *PostgresReadStore) Delete(collection, id string) {
	if collection != readmodel.CollectionGroupOrders {
		return
	}
	if _, err := rs.db.Exec(`DELETE FROM read_group_orders WHERE id = $1`, id); err != nil {
		slog.Error("read store: delete failed", "id", id, "error", err)
	}
}

// Update modifies a read model using an update function
func (rs *PostgresReadStore) Update(collection, id string, updateFn func(current any) any) bool {
	current, ok := rs.Get(collection, id)
	if !ok {
		return false
	}
	rs.Set(collection, id, updateFn(current))
	return true
}
