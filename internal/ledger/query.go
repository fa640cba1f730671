package ledger

import (
	"context"
	"fmt"

	"github.com/erazemk/sledljivost/internal/model"
)

// FetchItem returns the full record for upc.
func (l *Ledger) FetchItem(ctx context.Context, upc uint64) (*model.Item, error) {
	item, err := l.getItem(ctx, l.db, upc)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, newError(KindNotFound, "fetchItem", upc, "no item with this upc")
	}
	return item, nil
}

// FetchItemViewOne returns the custody and provenance view of an item.
func (l *Ledger) FetchItemViewOne(ctx context.Context, upc uint64) (*model.ItemViewOne, error) {
	item, err := l.FetchItem(ctx, upc)
	if err != nil {
		return nil, err
	}
	v := item.ViewOne()
	return &v, nil
}

// FetchItemViewTwo returns the product and trade view of an item.
func (l *Ledger) FetchItemViewTwo(ctx context.Context, upc uint64) (*model.ItemViewTwo, error) {
	item, err := l.FetchItem(ctx, upc)
	if err != nil {
		return nil, err
	}
	v := item.ViewTwo()
	return &v, nil
}

func (l *Ledger) ItemOwner(ctx context.Context, upc uint64) (string, error) {
	item, err := l.FetchItem(ctx, upc)
	if err != nil {
		return "", err
	}
	return item.OwnerID, nil
}

func (l *Ledger) ItemState(ctx context.Context, upc uint64) (model.State, error) {
	item, err := l.FetchItem(ctx, upc)
	if err != nil {
		return 0, err
	}
	return item.ItemState, nil
}

func (l *Ledger) ItemPrice(ctx context.Context, upc uint64) (model.Amount, error) {
	item, err := l.FetchItem(ctx, upc)
	if err != nil {
		return 0, err
	}
	return item.ProductPrice, nil
}

func (l *Ledger) ItemDistributor(ctx context.Context, upc uint64) (string, error) {
	item, err := l.FetchItem(ctx, upc)
	if err != nil {
		return "", err
	}
	return item.DistributorID, nil
}

func (l *Ledger) ItemRetailer(ctx context.Context, upc uint64) (string, error) {
	item, err := l.FetchItem(ctx, upc)
	if err != nil {
		return "", err
	}
	return item.RetailerID, nil
}

func (l *Ledger) ItemConsumer(ctx context.Context, upc uint64) (string, error) {
	item, err := l.FetchItem(ctx, upc)
	if err != nil {
		return "", err
	}
	return item.ConsumerID, nil
}

// ItemPayments returns the payment receipts recorded for an item.
func (l *Ledger) ItemPayments(ctx context.Context, upc uint64) ([]model.Payment, error) {
	if _, err := l.FetchItem(ctx, upc); err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx,
		l.q(`SELECT id, upc, payer, payee, price, paid, refund, paid_at
		 FROM payments WHERE upc = ? ORDER BY id`), int64(upc),
	)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var (
			p                           model.Payment
			rowUPC, price, paid, refund int64
		)
		if err := rows.Scan(&p.ID, &rowUPC, &p.Payer, &p.Payee, &price, &paid, &refund, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		p.UPC = uint64(rowUPC)
		p.Price = model.Amount(price)
		p.Paid = model.Amount(paid)
		p.Refund = model.Amount(refund)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
