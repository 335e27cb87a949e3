package repositories

import (
	"context"
	"errors"
	"fmt"

	"wmscore/internal/common"
	"wmscore/internal/models"
)

// InventoryRepository persists InventoryStock rows. Every mutation is a single
// statement so concurrent writers on the same (sku, bin) row never lose updates.
type InventoryRepository interface {
	Get(ctx context.Context, skuID, binID int64) (*models.InventoryStock, error)
	ListBySku(ctx context.Context, skuID int64) ([]*models.InventoryStock, error)
	Add(ctx context.Context, skuID, binID int64, delta int) error
	Set(ctx context.Context, skuID, binID int64, quantity int) error
	Deduct(ctx context.Context, skuID, binID int64, quantity int) (int, error)
	Transfer(ctx context.Context, skuID, fromBinID, toBinID int64, quantity int) error
}

type inventoryRepo struct {
	db Database
}

func NewInventoryRepo(db Database) InventoryRepository {
	return &inventoryRepo{db: db}
}

func (r *inventoryRepo) Get(ctx context.Context, skuID, binID int64) (*models.InventoryStock, error) {
	stock := &models.InventoryStock{}
	query := `
		SELECT sku_id, bin_id, quantity, updated_at
		FROM inventory_stock
		WHERE sku_id = $1 AND bin_id = $2
	`
	err := r.db.QueryRow(ctx, query, skuID, binID).Scan(&stock.SkuID, &stock.BinID, &stock.Quantity, &stock.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, common.NewNotFound("stock", binID)
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return stock, nil
}

// ListBySku returns the SKU's stock rows ordered by bin id.
func (r *inventoryRepo) ListBySku(ctx context.Context, skuID int64) ([]*models.InventoryStock, error) {
	query := `
		SELECT sku_id, bin_id, quantity, updated_at
		FROM inventory_stock
		WHERE sku_id = $1
		ORDER BY bin_id ASC
	`
	rows, err := r.db.Query(ctx, query, skuID)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()

	var stocks []*models.InventoryStock
	for rows.Next() {
		stock := &models.InventoryStock{}
		if err := rows.Scan(&stock.SkuID, &stock.BinID, &stock.Quantity, &stock.UpdatedAt); err != nil {
			return nil, err
		}
		stocks = append(stocks, stock)
	}
	return stocks, rows.Err()
}

// Add merges delta into the row. The insert only happens while the bin's total
// across all SKUs stays within its capacity.
func (r *inventoryRepo) Add(ctx context.Context, skuID, binID int64, delta int) error {
	query := `
		INSERT INTO inventory_stock (sku_id, bin_id, quantity, updated_at)
		SELECT $1::bigint, b.id, $3::integer, NOW()
		FROM bins b
		WHERE b.id = $2 AND (b.capacity IS NULL OR
			(SELECT COALESCE(SUM(s.quantity), 0) FROM inventory_stock s WHERE s.bin_id = b.id) + $3::integer <= b.capacity)
		ON CONFLICT (sku_id, bin_id) DO UPDATE SET quantity = inventory_stock.quantity + EXCLUDED.quantity, updated_at = NOW()
	`
	tag, err := r.db.Exec(ctx, query, skuID, binID, delta)
	if err != nil {
		return fmt.Errorf("add stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.binFull(ctx, binID, delta)
	}
	return nil
}

// Set overwrites the quantity. The bin's other rows count against capacity.
func (r *inventoryRepo) Set(ctx context.Context, skuID, binID int64, quantity int) error {
	if quantity == 0 {
		return r.deleteRow(ctx, skuID, binID, false)
	}
	query := `
		INSERT INTO inventory_stock (sku_id, bin_id, quantity, updated_at)
		SELECT $1::bigint, b.id, $3::integer, NOW()
		FROM bins b
		WHERE b.id = $2 AND (b.capacity IS NULL OR
			(SELECT COALESCE(SUM(s.quantity), 0) FROM inventory_stock s WHERE s.bin_id = b.id AND s.sku_id <> $1) + $3::integer <= b.capacity)
		ON CONFLICT (sku_id, bin_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
	`
	tag, err := r.db.Exec(ctx, query, skuID, binID, quantity)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current := 0
		if stock, err := r.Get(ctx, skuID, binID); err == nil {
			current = stock.Quantity
		}
		return r.binFull(ctx, binID, quantity-current)
	}
	return nil
}

// Deduct removes quantity from the row and returns what is left. The row is
// deleted when it reaches zero.
func (r *inventoryRepo) Deduct(ctx context.Context, skuID, binID int64, quantity int) (int, error) {
	query := `
		UPDATE inventory_stock
		SET quantity = quantity - $3, updated_at = NOW()
		WHERE sku_id = $1 AND bin_id = $2 AND quantity >= $3
		RETURNING quantity
	`
	var remaining int
	err := r.db.QueryRow(ctx, query, skuID, binID, quantity).Scan(&remaining)
	if err != nil {
		if isNoRows(err) {
			return 0, r.insufficient(ctx, skuID, binID, quantity)
		}
		return 0, fmt.Errorf("deduct stock: %w", err)
	}
	if remaining == 0 {
		if err := r.deleteRow(ctx, skuID, binID, true); err != nil {
			return 0, err
		}
	}
	return remaining, nil
}

// Transfer moves quantity between bins in one statement: the source update
// only runs when the destination has room, and the destination upsert only
// runs when the source update matched.
func (r *inventoryRepo) Transfer(ctx context.Context, skuID, fromBinID, toBinID int64, quantity int) error {
	query := `
		WITH dest AS (
			SELECT b.id
			FROM bins b
			WHERE b.id = $3 AND (b.capacity IS NULL OR
				(SELECT COALESCE(SUM(s.quantity), 0) FROM inventory_stock s WHERE s.bin_id = b.id) + $4 <= b.capacity)
		), src AS (
			UPDATE inventory_stock
			SET quantity = quantity - $4, updated_at = NOW()
			WHERE sku_id = $1 AND bin_id = $2 AND quantity >= $4 AND EXISTS (SELECT 1 FROM dest)
			RETURNING sku_id
		)
		INSERT INTO inventory_stock (sku_id, bin_id, quantity, updated_at)
		SELECT sku_id, $3, $4, NOW() FROM src
		ON CONFLICT (sku_id, bin_id) DO UPDATE SET quantity = inventory_stock.quantity + EXCLUDED.quantity, updated_at = NOW()
	`
	tag, err := r.db.Exec(ctx, query, skuID, fromBinID, toBinID, quantity)
	if err != nil {
		return fmt.Errorf("transfer stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err := r.insufficient(ctx, skuID, fromBinID, quantity)
		var short *common.InsufficientStockError
		if !errors.As(err, &short) || short.Available < quantity {
			return err
		}
		return r.binFull(ctx, toBinID, quantity)
	}
	return r.deleteRow(ctx, skuID, fromBinID, true)
}

func (r *inventoryRepo) deleteRow(ctx context.Context, skuID, binID int64, onlyEmpty bool) error {
	query := `DELETE FROM inventory_stock WHERE sku_id = $1 AND bin_id = $2`
	if onlyEmpty {
		query += ` AND quantity = 0`
	}
	if _, err := r.db.Exec(ctx, query, skuID, binID); err != nil {
		return fmt.Errorf("delete stock row: %w", err)
	}
	return nil
}

func (r *inventoryRepo) insufficient(ctx context.Context, skuID, binID int64, required int) error {
	available := 0
	stock, err := r.Get(ctx, skuID, binID)
	switch {
	case err == nil:
		available = stock.Quantity
	case !isNotFound(err):
		return err
	}
	return &common.InsufficientStockError{
		SKU:       fmt.Sprintf("%d", skuID),
		Available: available,
		Required:  required,
	}
}

// binFull explains a rejected write into binID: the bin is missing or full.
func (r *inventoryRepo) binFull(ctx context.Context, binID int64, requested int) error {
	query := `
		SELECT b.code, b.capacity, COALESCE((SELECT SUM(s.quantity) FROM inventory_stock s WHERE s.bin_id = b.id), 0)
		FROM bins b
		WHERE b.id = $1
	`
	var (
		code     string
		capacity *int
		used     int
	)
	if err := r.db.QueryRow(ctx, query, binID).Scan(&code, &capacity, &used); err != nil {
		if isNoRows(err) {
			return common.NewNotFound("bin", binID)
		}
		return fmt.Errorf("load bin %d: %w", binID, err)
	}
	full := &common.BinCapacityError{BinID: binID, BinCode: code, Used: used, Requested: requested}
	if capacity != nil {
		full.Capacity = *capacity
	}
	return full
}
