package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagecrew/backend-offers/internal/common"
)

// Store persists catalog items and presets in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

const itemColumns = `id, category, subcategory, name, unit_price, stock_quantity, created_at, updated_at`

// ListItems returns catalog items, optionally filtered by category, ordered for display.
func (s *Store) ListItems(ctx context.Context, category string) ([]Item, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog: pool not configured")
	}
	query := `SELECT ` + itemColumns + ` FROM catalog_items`
	args := []any{}
	if strings.TrimSpace(category) != "" {
		query += ` WHERE category = $1`
		args = append(args, strings.TrimSpace(category))
	}
	query += ` ORDER BY category, subcategory, name`

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItem loads a single catalog item.
func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	if s == nil || s.Pool == nil {
		return Item{}, errors.New("catalog: pool not configured")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM catalog_items WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true})
	return scanItem(row)
}

// CreateItem inserts a catalog item and returns the stored row.
func (s *Store) CreateItem(ctx context.Context, item Item) (Item, error) {
	if s == nil || s.Pool == nil {
		return Item{}, errors.New("catalog: pool not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO catalog_items (category, subcategory, name, unit_price, stock_quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+itemColumns,
		item.Category, item.Subcategory, item.Name, item.UnitPrice, item.StockQuantity)
	return scanItem(row)
}

// ListPresets returns all presets without their items.
func (s *Store) ListPresets(ctx context.Context) ([]Preset, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog: pool not configured")
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, name, description FROM presets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		var (
			id          pgtype.UUID
			p           Preset
			description pgtype.Text
		)
		if err := rows.Scan(&id, &p.Name, &description); err != nil {
			return nil, err
		}
		p.ID = uuid.UUID(id.Bytes)
		p.Description = description.String
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// GetPreset loads a preset including its item lines joined with current catalog prices.
func (s *Store) GetPreset(ctx context.Context, id uuid.UUID) (Preset, error) {
	if s == nil || s.Pool == nil {
		return Preset{}, errors.New("catalog: pool not configured")
	}
	var (
		presetID    pgtype.UUID
		preset      Preset
		description pgtype.Text
	)
	err := s.Pool.QueryRow(ctx, `SELECT id, name, description FROM presets WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true}).Scan(&presetID, &preset.Name, &description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Preset{}, common.ErrNotFound
		}
		return Preset{}, err
	}
	preset.ID = uuid.UUID(presetID.Bytes)
	preset.Description = description.String

	rows, err := s.Pool.Query(ctx, `
		SELECT ci.id, ci.category, ci.subcategory, ci.name, ci.unit_price,
		       pi.quantity, pi.duration, pi.sort_order
		FROM preset_items pi
		JOIN catalog_items ci ON ci.id = pi.catalog_item_id
		WHERE pi.preset_id = $1
		ORDER BY pi.sort_order`,
		pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		return Preset{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			itemID      pgtype.UUID
			line        PresetItem
			subcategory pgtype.Text
		)
		if err := rows.Scan(&itemID, &line.Category, &subcategory, &line.Name,
			&line.UnitPrice, &line.Quantity, &line.Duration, &line.SortOrder); err != nil {
			return Preset{}, err
		}
		line.CatalogItemID = uuid.UUID(itemID.Bytes)
		line.Subcategory = subcategory.String
		preset.Items = append(preset.Items, line)
	}
	return preset, rows.Err()
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		id          pgtype.UUID
		item        Item
		subcategory pgtype.Text
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(&id, &item.Category, &subcategory, &item.Name,
		&item.UnitPrice, &item.StockQuantity, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, common.ErrNotFound
		}
		return Item{}, err
	}
	item.ID = uuid.UUID(id.Bytes)
	item.Subcategory = subcategory.String
	item.CreatedAt = createdAt.Time
	item.UpdatedAt = updatedAt.Time
	return item, nil
}
