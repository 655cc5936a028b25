package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/xxng1/searchpilot/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_items (
    id          BIGINT PRIMARY KEY,
    title       VARCHAR(255) NOT NULL,
    description TEXT,
    category    VARCHAR(100),
    tags        VARCHAR(500),
    price       DOUBLE PRECISION,
    popularity  BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_search_items_category ON search_items (category);
`

// Repository persists items in PostgreSQL. The in-memory engine remains the
// query path; the repository only loads the corpus at startup and mirrors
// writes so the catalog survives restarts.
type Repository struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewRepository creates a Repository and ensures the catalog schema exists.
func NewRepository(ctx context.Context, db *postgres.Client) (*Repository, error) {
	if _, err := db.DB.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensuring catalog schema: %w", err)
	}
	return &Repository{
		db:     db,
		logger: slog.Default().With("component", "catalog-repository"),
	}, nil
}

// LoadAll streams every item from the database, invoking fn per row.
func (r *Repository) LoadAll(ctx context.Context, fn func(*Item) error) error {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, title, description, category, tags, price, popularity, created_at, updated_at
		FROM search_items ORDER BY id`)
	if err != nil {
		return fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating items: %w", err)
	}
	r.logger.Info("catalog loaded", "items", count)
	return nil
}

// Save upserts a single item.
func (r *Repository) Save(ctx context.Context, item *Item) error {
	_, err := r.db.DB.ExecContext(ctx, `
		INSERT INTO search_items (id, title, description, category, tags, price, popularity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			tags = EXCLUDED.tags,
			price = EXCLUDED.price,
			popularity = EXCLUDED.popularity,
			updated_at = EXCLUDED.updated_at`,
		item.ID, item.Title, item.Description, item.Category, item.Tags,
		item.Price, item.Popularity, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving item %d: %w", item.ID, err)
	}
	return nil
}

// SaveBatch upserts items inside a single transaction.
func (r *Repository) SaveBatch(ctx context.Context, items []*Item) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO search_items (id, title, description, category, tags, price, popularity, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				category = EXCLUDED.category,
				tags = EXCLUDED.tags,
				price = EXCLUDED.price,
				popularity = EXCLUDED.popularity,
				updated_at = EXCLUDED.updated_at`)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for _, item := range items {
			if _, err := stmt.ExecContext(ctx,
				item.ID, item.Title, item.Description, item.Category, item.Tags,
				item.Price, item.Popularity, item.CreatedAt, item.UpdatedAt,
			); err != nil {
				return fmt.Errorf("upserting item %d: %w", item.ID, err)
			}
		}
		return nil
	})
}

func scanItem(rows *sql.Rows) (*Item, error) {
	var item Item
	var description, category, tags sql.NullString
	var price sql.NullFloat64
	if err := rows.Scan(
		&item.ID, &item.Title, &description, &category, &tags,
		&price, &item.Popularity, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scanning item row: %w", err)
	}
	if description.Valid {
		item.Description = &description.String
	}
	if category.Valid {
		item.Category = &category.String
	}
	if tags.Valid {
		item.Tags = &tags.String
	}
	if price.Valid {
		item.Price = &price.Float64
	}
	return &item, nil
}
