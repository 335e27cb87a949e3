package services

import (
	"context"
	"errors"
	"fmt"

	"wmscore/internal/common"
	"wmscore/internal/locking"
	"wmscore/internal/models"
	"wmscore/internal/repositories"
)

// InventoryLedger is the single authority for stock quantities per (SKU, bin).
// Mutations on the same key are serialized through the locker and each
// mutation is one atomic statement in the repository. Writes that raise a
// bin's total also hold the bin key, since capacity spans every SKU in it.
type InventoryLedger interface {
	Get(ctx context.Context, skuID, binID int64) (quantity int, found bool, err error)
	ListBySku(ctx context.Context, skuID int64) ([]*models.InventoryStock, error)
	Add(ctx context.Context, skuID, binID int64, delta int) error
	Set(ctx context.Context, skuID, binID int64, quantity int) error
	Deduct(ctx context.Context, skuID, binID int64, quantity int) error
	Transfer(ctx context.Context, fromBinID, toBinID, skuID int64, quantity int) error
}

type inventoryLedger struct {
	inventoryRepo repositories.InventoryRepository
	locker        locking.Locker
}

func NewInventoryLedger(inventoryRepo repositories.InventoryRepository, locker locking.Locker) InventoryLedger {
	return &inventoryLedger{
		inventoryRepo: inventoryRepo,
		locker:        locker,
	}
}

func (l *inventoryLedger) Get(ctx context.Context, skuID, binID int64) (int, bool, error) {
	stock, err := l.inventoryRepo.Get(ctx, skuID, binID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return stock.Quantity, true, nil
}

func (l *inventoryLedger) ListBySku(ctx context.Context, skuID int64) ([]*models.InventoryStock, error) {
	return l.inventoryRepo.ListBySku(ctx, skuID)
}

// Add merges delta into the row, creating it when absent. A zero delta is a
// no-op. Fails with a BinCapacityError when the bin cannot take delta more.
func (l *inventoryLedger) Add(ctx context.Context, skuID, binID int64, delta int) error {
	if delta < 0 {
		return fmt.Errorf("add %d: %w", delta, common.ErrInvalidQuantity)
	}
	if delta == 0 {
		return nil
	}
	unlock, err := locking.LockAll(ctx, l.locker, locking.StockKey(skuID, binID), locking.BinKey(binID))
	if err != nil {
		return err
	}
	defer unlock()
	return l.inventoryRepo.Add(ctx, skuID, binID, delta)
}

// Set overwrites the quantity. Setting zero removes the row.
func (l *inventoryLedger) Set(ctx context.Context, skuID, binID int64, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("set %d: %w", quantity, common.ErrInvalidQuantity)
	}
	unlock, err := locking.LockAll(ctx, l.locker, locking.StockKey(skuID, binID), locking.BinKey(binID))
	if err != nil {
		return err
	}
	defer unlock()
	return l.inventoryRepo.Set(ctx, skuID, binID, quantity)
}

// Deduct fails with an InsufficientStockError and changes nothing when the
// bin holds less than quantity.
func (l *inventoryLedger) Deduct(ctx context.Context, skuID, binID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("deduct %d: %w", quantity, common.ErrInvalidQuantity)
	}
	unlock, err := l.locker.Lock(ctx, locking.StockKey(skuID, binID))
	if err != nil {
		return err
	}
	defer unlock()
	_, err = l.inventoryRepo.Deduct(ctx, skuID, binID, quantity)
	return err
}

// Transfer moves quantity between bins, all or nothing. The destination must
// have room for the whole quantity.
func (l *inventoryLedger) Transfer(ctx context.Context, fromBinID, toBinID, skuID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("transfer %d: %w", quantity, common.ErrInvalidQuantity)
	}
	if fromBinID == toBinID {
		return fmt.Errorf("transfer within bin %d: %w", fromBinID, common.ErrInvalidQuantity)
	}
	unlock, err := locking.LockAll(ctx, l.locker, locking.StockKey(skuID, fromBinID), locking.StockKey(skuID, toBinID), locking.BinKey(toBinID))
	if err != nil {
		return err
	}
	defer unlock()
	return l.inventoryRepo.Transfer(ctx, skuID, fromBinID, toBinID, quantity)
}
