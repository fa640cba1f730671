package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/erazemk/sledljivost/internal/model"
)

// transition is one row of the lifecycle table.
type transition struct {
	op    string
	event model.EventName
	role  model.Role
	from  model.State
	to    model.State

	// ownerOnly requires the caller to be the current custodian.
	ownerOnly bool
	// custody hands the item to the caller and records it in the field that
	// matches role.
	custody bool
}

var (
	processItem = transition{op: "processItem", event: model.EventProcessed, role: model.RoleFarmer,
		from: model.StateHarvested, to: model.StateProcessed, ownerOnly: true}
	packItem = transition{op: "packItem", event: model.EventPacked, role: model.RoleFarmer,
		from: model.StateProcessed, to: model.StatePacked, ownerOnly: true}
	sellItem = transition{op: "sellItem", event: model.EventForSale, role: model.RoleFarmer,
		from: model.StatePacked, to: model.StateForSale, ownerOnly: true}
	buyItem = transition{op: "buyItem", event: model.EventSold, role: model.RoleDistributor,
		from: model.StateForSale, to: model.StateSold, custody: true}
	shipItem = transition{op: "shipItem", event: model.EventShipped, role: model.RoleDistributor,
		from: model.StateSold, to: model.StateShipped, ownerOnly: true}
	receiveItem = transition{op: "receiveItem", event: model.EventReceived, role: model.RoleRetailer,
		from: model.StateShipped, to: model.StateReceived, custody: true}
	purchaseItem = transition{op: "purchaseItem", event: model.EventPurchased, role: model.RoleConsumer,
		from: model.StateReceived, to: model.StatePurchased, custody: true}
)

// effect runs once every precondition holds and before the item is written.
// It may adjust the item and returns the event payload.
type effect func(ctx context.Context, tx *sql.Tx, item *model.Item) (any, error)

type noPayload struct{}

// apply runs one transition as a single transaction under the item's lock.
// Checks run in order: role, existence, state, ownership, effect.
func (l *Ledger) apply(ctx context.Context, t transition, caller string, upc uint64, fx effect) (err error) {
	defer func() {
		if err != nil {
			l.rejected(t.op, caller, upc, err)
		}
	}()

	unlock := l.locks.lock(upc)
	defer unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := l.hasRole(ctx, tx, t.role, caller)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindUnauthorized, t.op, upc, "%q does not hold the %s role", caller, t.role)
	}

	item, err := l.getItem(ctx, tx, upc)
	if err != nil {
		return err
	}
	if item == nil {
		return newError(KindNotFound, t.op, upc, "no item with this upc")
	}
	if item.ItemState != t.from {
		return newError(KindInvalidState, t.op, upc, "item is %s, needs to be %s", item.ItemState, t.from)
	}
	if t.ownerOnly && item.OwnerID != caller {
		return newError(KindNotOwner, t.op, upc, "%q is not the current owner", caller)
	}

	var payload any = noPayload{}
	if fx != nil {
		if payload, err = fx(ctx, tx, item); err != nil {
			return err
		}
	}

	now := l.now()
	item.ItemState = t.to
	item.UpdatedAt = now
	if t.custody {
		item.OwnerID = caller
		switch t.role {
		case model.RoleDistributor:
			item.DistributorID = caller
		case model.RoleRetailer:
			item.RetailerID = caller
		case model.RoleConsumer:
			item.ConsumerID = caller
		}
	}

	if err := l.updateItem(ctx, tx, item); err != nil {
		return err
	}
	ev, err := l.appendEvent(ctx, tx, t.event, upc, caller, payload, now)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", t.op, err)
	}

	l.committed(ev)
	return nil
}

// WithItem runs fn with the current record of upc while holding the item's
// lock, so no transition can interleave with it. fn must not call back into
// ledger operations on the same item. Errors from fn are returned unchanged.
func (l *Ledger) WithItem(ctx context.Context, upc uint64, fn func(item *model.Item) error) error {
	unlock := l.locks.lock(upc)
	defer unlock()

	item, err := l.getItem(ctx, l.db, upc)
	if err != nil {
		return err
	}
	if item == nil {
		return newError(KindNotFound, "withItem", upc, "no item with this upc")
	}
	return fn(item)
}

// HarvestItem creates the record for a new produce lot. The caller must be a
// farmer; the supplied farmer ID becomes both the origin farmer and the first
// owner.
func (l *Ledger) HarvestItem(ctx context.Context, caller string, h model.Harvest) (item *model.Item, err error) {
	const op = "harvestItem"
	defer func() {
		if err != nil {
			l.rejected(op, caller, h.UPC, err)
		}
	}()

	unlock := l.locks.lock(h.UPC)
	defer unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := l.hasRole(ctx, tx, model.RoleFarmer, caller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(KindUnauthorized, op, h.UPC, "%q does not hold the %s role", caller, model.RoleFarmer)
	}
	if h.UPC == 0 || h.UPC > math.MaxInt64 {
		return nil, newError(KindInvalidArgument, op, h.UPC, "upc must be between 1 and %d", int64(math.MaxInt64))
	}
	if h.FarmerID == "" {
		return nil, newError(KindInvalidArgument, op, h.UPC, "farmer id required")
	}

	existing, err := l.getItem(ctx, tx, h.UPC)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(KindDuplicateKey, op, h.UPC, "item already harvested as sku %d", existing.SKU)
	}

	sku, err := l.nextCounter(ctx, tx, "sku")
	if err != nil {
		return nil, err
	}

	now := l.now()
	item = &model.Item{
		SKU:                   sku,
		UPC:                   h.UPC,
		OwnerID:               h.FarmerID,
		OriginFarmerID:        h.FarmerID,
		OriginFarmName:        h.FarmName,
		OriginFarmInformation: h.FarmInformation,
		OriginFarmLatitude:    h.FarmLatitude,
		OriginFarmLongitude:   h.FarmLongitude,
		ProductNotes:          h.ProductNotes,
		ItemState:             model.StateHarvested,
		HarvestedAt:           now,
		UpdatedAt:             now,
	}
	if err := l.insertItem(ctx, tx, item); err != nil {
		return nil, err
	}
	ev, err := l.appendEvent(ctx, tx, model.EventHarvested, h.UPC, caller, item, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %s: %w", op, err)
	}

	l.committed(ev)
	return item, nil
}

// ProcessItem moves a harvested item to Processed.
func (l *Ledger) ProcessItem(ctx context.Context, caller string, upc uint64) error {
	return l.apply(ctx, processItem, caller, upc, nil)
}

// PackItem moves a processed item to Packed.
func (l *Ledger) PackItem(ctx context.Context, caller string, upc uint64) error {
	return l.apply(ctx, packItem, caller, upc, nil)
}

type forSalePayload struct {
	Price model.Amount `json:"price"`
}

// SellItem lists a packed item at price.
func (l *Ledger) SellItem(ctx context.Context, caller string, upc uint64, price model.Amount) error {
	return l.apply(ctx, sellItem, caller, upc, func(_ context.Context, _ *sql.Tx, item *model.Item) (any, error) {
		if price <= 0 {
			return nil, newError(KindInvalidArgument, sellItem.op, upc, "price must be positive")
		}
		item.ProductPrice = price
		return forSalePayload{Price: price}, nil
	})
}

// BuyItem sells a listed item to the calling distributor. Payment must cover
// the price; the price is recorded as paid to the farmer who listed the item
// and any excess as returned to the caller.
func (l *Ledger) BuyItem(ctx context.Context, caller string, upc uint64, payment model.Amount) (*model.Payment, error) {
	var receipt *model.Payment
	err := l.apply(ctx, buyItem, caller, upc, func(ctx context.Context, tx *sql.Tx, item *model.Item) (any, error) {
		if payment < 0 {
			return nil, newError(KindInvalidArgument, buyItem.op, upc, "payment must not be negative")
		}
		if payment < item.ProductPrice {
			return nil, newError(KindInsufficientPayment, buyItem.op, upc,
				"paid %d, price is %d", payment, item.ProductPrice)
		}

		p := &model.Payment{
			UPC:    upc,
			Payer:  caller,
			Payee:  item.OwnerID,
			Price:  item.ProductPrice,
			Paid:   payment,
			Refund: payment - item.ProductPrice,
			PaidAt: l.now(),
		}
		if err := l.insertPayment(ctx, tx, p); err != nil {
			return nil, err
		}
		receipt = p
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ShipItem marks a sold item as shipped by its distributor.
func (l *Ledger) ShipItem(ctx context.Context, caller string, upc uint64) error {
	return l.apply(ctx, shipItem, caller, upc, nil)
}

// ReceiveItem hands a shipped item to the calling retailer.
func (l *Ledger) ReceiveItem(ctx context.Context, caller string, upc uint64) error {
	return l.apply(ctx, receiveItem, caller, upc, nil)
}

// PurchaseItem hands a received item to the calling consumer. Purchased is
// terminal.
func (l *Ledger) PurchaseItem(ctx context.Context, caller string, upc uint64) error {
	return l.apply(ctx, purchaseItem, caller, upc, nil)
}

func (l *Ledger) insertPayment(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	err := tx.QueryRowContext(ctx,
		l.q(`INSERT INTO payments (upc, payer, payee, price, paid, refund, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		int64(p.UPC), p.Payer, p.Payee, int64(p.Price), int64(p.Paid), int64(p.Refund), p.PaidAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("recording payment: %w", err)
	}
	return nil
}
