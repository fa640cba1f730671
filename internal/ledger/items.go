package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/sledljivost/internal/model"
)

const itemColumns = `upc, sku, owner_id, origin_farmer_id, origin_farm_name, origin_farm_information,
	origin_farm_latitude, origin_farm_longitude, product_notes, product_price, item_state,
	distributor_id, retailer_id, consumer_id, harvested_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item  model.Item
		upc   int64
		sku   int64
		price int64
		state int
	)
	err := row.Scan(&upc, &sku, &item.OwnerID, &item.OriginFarmerID, &item.OriginFarmName,
		&item.OriginFarmInformation, &item.OriginFarmLatitude, &item.OriginFarmLongitude,
		&item.ProductNotes, &price, &state,
		&item.DistributorID, &item.RetailerID, &item.ConsumerID,
		&item.HarvestedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.UPC = uint64(upc)
	item.SKU = uint64(sku)
	item.ProductPrice = model.Amount(price)
	item.ItemState = model.State(state)
	return &item, nil
}

// getItem returns nil when no item has the UPC.
func (l *Ledger) getItem(ctx context.Context, q querier, upc uint64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		l.q(`SELECT `+itemColumns+` FROM items WHERE upc = ?`), int64(upc),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

func (l *Ledger) insertItem(ctx context.Context, tx *sql.Tx, item *model.Item) error {
	_, err := tx.ExecContext(ctx,
		l.q(`INSERT INTO items (`+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		int64(item.UPC), int64(item.SKU), item.OwnerID, item.OriginFarmerID, item.OriginFarmName,
		item.OriginFarmInformation, item.OriginFarmLatitude, item.OriginFarmLongitude,
		item.ProductNotes, int64(item.ProductPrice), int(item.ItemState),
		item.DistributorID, item.RetailerID, item.ConsumerID,
		item.HarvestedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating item: %w", err)
	}
	return nil
}

// updateItem writes the mutable columns only. Provenance columns never
// appear in an UPDATE.
func (l *Ledger) updateItem(ctx context.Context, tx *sql.Tx, item *model.Item) error {
	_, err := tx.ExecContext(ctx,
		l.q(`UPDATE items SET owner_id = ?, product_price = ?, item_state = ?,
		        distributor_id = ?, retailer_id = ?, consumer_id = ?, updated_at = ?
		 WHERE upc = ?`),
		item.OwnerID, int64(item.ProductPrice), int(item.ItemState),
		item.DistributorID, item.RetailerID, item.ConsumerID, item.UpdatedAt,
		int64(item.UPC),
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// ListItems returns items in SKU order, optionally filtered by state or owner.
func (l *Ledger) ListItems(ctx context.Context, filter model.ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var (
		where []string
		args  []any
	)
	if filter.State != nil {
		where = append(where, `item_state = ?`)
		args = append(args, int(*filter.State))
	}
	if filter.Owner != "" {
		where = append(where, `owner_id = ?`)
		args = append(args, filter.Owner)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY sku`

	rows, err := l.db.QueryContext(ctx, l.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
