package offer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stagecrew/backend-offers/internal/common"
	"github.com/stagecrew/backend-offers/internal/pricing"
)

// Store persists offers and their items in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

const offerColumns = `id, title, customer_name, status, event_date, discount_percent, is_vat_payer,
	group_id, owner_id, subtotal_equipment, subtotal_personnel, subtotal_transport,
	discount_amount, total_amount, vat_amount, total_with_vat, created_at, updated_at`

const itemColumns = `id, offer_id, category, subcategory, name, unit_price, quantity, duration,
	sort_order, created_at, updated_at`

// CreateOffer inserts the offer header and any initial items in one transaction.
func (s *Store) CreateOffer(ctx context.Context, o Offer, items []Item) (Offer, error) {
	if s == nil || s.Pool == nil {
		return Offer{}, errors.New("offer: pool not configured")
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Offer{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO offers (title, customer_name, status, event_date, discount_percent, is_vat_payer, group_id, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+offerColumns,
		o.Title, textOrNull(o.CustomerName), string(o.Status), o.EventDate,
		o.DiscountPercent, o.IsVatPayer, uuidOrNull(o.GroupID), pgtype.UUID{Bytes: o.OwnerID, Valid: true})
	created, err := scanOffer(row)
	if err != nil {
		return Offer{}, err
	}

	for _, item := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO offer_items (offer_id, category, subcategory, name, unit_price, quantity, duration, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			pgtype.UUID{Bytes: created.ID, Valid: true},
			item.Category, textOrNull(item.Subcategory), item.Name,
			item.UnitPrice, item.Quantity, item.Duration, item.SortOrder)
		if err != nil {
			return Offer{}, fmt.Errorf("insert offer item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Offer{}, err
	}
	return created, nil
}

// GetOffer loads an offer header by id.
func (s *Store) GetOffer(ctx context.Context, id uuid.UUID) (Offer, error) {
	if s == nil || s.Pool == nil {
		return Offer{}, errors.New("offer: pool not configured")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true})
	return scanOffer(row)
}

// ListOffers returns a page of offers ordered by creation time, newest first.
func (s *Store) ListOffers(ctx context.Context, status string, page, perPage int) ([]Offer, int64, error) {
	if s == nil || s.Pool == nil {
		return nil, 0, errors.New("offer: pool not configured")
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	where := ""
	args := []any{}
	if strings.TrimSpace(status) != "" {
		where = ` WHERE status = $1`
		args = append(args, strings.TrimSpace(status))
	}

	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM offers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + offerColumns + ` FROM offers` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var offers []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, 0, err
		}
		offers = append(offers, o)
	}
	return offers, total, rows.Err()
}

// UpdateOffer applies the non-nil patch fields and returns the updated header.
func (s *Store) UpdateOffer(ctx context.Context, id uuid.UUID, patch Patch) (Offer, error) {
	if s == nil || s.Pool == nil {
		return Offer{}, errors.New("offer: pool not configured")
	}
	sets := []string{"updated_at = now()"}
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if patch.Title != nil {
		sets = append(sets, "title = "+next(*patch.Title))
	}
	if patch.CustomerName != nil {
		sets = append(sets, "customer_name = "+next(textOrNull(*patch.CustomerName)))
	}
	if patch.Status != nil {
		sets = append(sets, "status = "+next(string(*patch.Status)))
	}
	if patch.EventDate != nil {
		sets = append(sets, "event_date = "+next(*patch.EventDate))
	}
	if patch.DiscountPercent != nil {
		sets = append(sets, "discount_percent = "+next(*patch.DiscountPercent))
	}
	if patch.IsVatPayer != nil {
		sets = append(sets, "is_vat_payer = "+next(*patch.IsVatPayer))
	}
	if patch.GroupID != nil {
		sets = append(sets, "group_id = "+next(uuidOrNull(patch.GroupID)))
	}

	query := `UPDATE offers SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + next(pgtype.UUID{Bytes: id, Valid: true}) +
		` RETURNING ` + offerColumns
	return scanOffer(s.Pool.QueryRow(ctx, query, args...))
}

// SaveTotals persists the computed pricing columns for an offer.
func (s *Store) SaveTotals(ctx context.Context, id uuid.UUID, sum pricing.Summary, vat pricing.VatSummary) error {
	if s == nil || s.Pool == nil {
		return errors.New("offer: pool not configured")
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE offers SET
			subtotal_equipment = $2,
			subtotal_personnel = $3,
			subtotal_transport = $4,
			discount_amount = $5,
			total_amount = $6,
			vat_amount = $7,
			total_with_vat = $8,
			updated_at = now()
		WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true},
		sum.SubtotalEquipment, sum.SubtotalPersonnel, sum.SubtotalTransport,
		sum.DiscountAmount, sum.TotalAmount, vat.VatAmount, vat.TotalWithVat)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteOffer removes the offer. Items cascade at the database level.
func (s *Store) DeleteOffer(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Pool == nil {
		return errors.New("offer: pool not configured")
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ListItems returns the offer's items in display order.
func (s *Store) ListItems(ctx context.Context, offerID uuid.UUID) ([]Item, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("offer: pool not configured")
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+itemColumns+` FROM offer_items WHERE offer_id = $1 ORDER BY sort_order, created_at`,
		pgtype.UUID{Bytes: offerID, Valid: true})
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

// GetItem loads one item by id.
func (s *Store) GetItem(ctx context.Context, itemID uuid.UUID) (Item, error) {
	if s == nil || s.Pool == nil {
		return Item{}, errors.New("offer: pool not configured")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM offer_items WHERE id = $1`,
		pgtype.UUID{Bytes: itemID, Valid: true})
	return scanItem(row)
}

// CreateItem inserts an item and returns the stored row.
func (s *Store) CreateItem(ctx context.Context, item Item) (Item, error) {
	if s == nil || s.Pool == nil {
		return Item{}, errors.New("offer: pool not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO offer_items (offer_id, category, subcategory, name, unit_price, quantity, duration, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+itemColumns,
		pgtype.UUID{Bytes: item.OfferID, Valid: true},
		item.Category, textOrNull(item.Subcategory), item.Name,
		item.UnitPrice, item.Quantity, item.Duration, item.SortOrder)
	return scanItem(row)
}

// UpdateItem applies the non-nil patch fields and returns the updated row.
func (s *Store) UpdateItem(ctx context.Context, itemID uuid.UUID, patch ItemPatch) (Item, error) {
	if s == nil || s.Pool == nil {
		return Item{}, errors.New("offer: pool not configured")
	}
	sets := []string{"updated_at = now()"}
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if patch.Name != nil {
		sets = append(sets, "name = "+next(*patch.Name))
	}
	if patch.UnitPrice != nil {
		sets = append(sets, "unit_price = "+next(*patch.UnitPrice))
	}
	if patch.Quantity != nil {
		sets = append(sets, "quantity = "+next(*patch.Quantity))
	}
	if patch.Duration != nil {
		sets = append(sets, "duration = "+next(*patch.Duration))
	}
	if patch.SortOrder != nil {
		sets = append(sets, "sort_order = "+next(*patch.SortOrder))
	}

	query := `UPDATE offer_items SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + next(pgtype.UUID{Bytes: itemID, Valid: true}) +
		` RETURNING ` + itemColumns
	return scanItem(s.Pool.QueryRow(ctx, query, args...))
}

// DeleteItem removes one item.
func (s *Store) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	if s == nil || s.Pool == nil {
		return errors.New("offer: pool not configured")
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM offer_items WHERE id = $1`, pgtype.UUID{Bytes: itemID, Valid: true})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanOffer(row pgx.Row) (Offer, error) {
	var (
		id           pgtype.UUID
		o            Offer
		customerName pgtype.Text
		status       string
		eventDate    pgtype.Timestamptz
		groupID      pgtype.UUID
		ownerID      pgtype.UUID
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)
	err := row.Scan(&id, &o.Title, &customerName, &status, &eventDate,
		&o.DiscountPercent, &o.IsVatPayer, &groupID, &ownerID,
		&o.SubtotalEquipment, &o.SubtotalPersonnel, &o.SubtotalTransport,
		&o.DiscountAmount, &o.TotalAmount, &o.VatAmount, &o.TotalWithVat,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Offer{}, common.ErrNotFound
		}
		return Offer{}, err
	}
	o.ID = uuid.UUID(id.Bytes)
	o.CustomerName = customerName.String
	o.Status = Status(status)
	if eventDate.Valid {
		t := eventDate.Time
		o.EventDate = &t
	}
	if groupID.Valid {
		g := uuid.UUID(groupID.Bytes)
		o.GroupID = &g
	}
	o.OwnerID = uuid.UUID(ownerID.Bytes)
	o.CreatedAt = createdAt.Time
	o.UpdatedAt = updatedAt.Time
	return o, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		id          pgtype.UUID
		offerID     pgtype.UUID
		item        Item
		subcategory pgtype.Text
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(&id, &offerID, &item.Category, &subcategory, &item.Name,
		&item.UnitPrice, &item.Quantity, &item.Duration, &item.SortOrder,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, common.ErrNotFound
		}
		return Item{}, err
	}
	item.ID = uuid.UUID(id.Bytes)
	item.OfferID = uuid.UUID(offerID.Bytes)
	item.Subcategory = subcategory.String
	item.CreatedAt = createdAt.Time
	item.UpdatedAt = updatedAt.Time
	return item, nil
}

func textOrNull(v string) pgtype.Text {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func uuidOrNull(id *uuid.UUID) pgtype.UUID {
	if id == nil || *id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}
