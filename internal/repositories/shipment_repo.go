package repositories

import (
	"context"
	"fmt"

	"wmscore/internal/common"
	"wmscore/internal/models"
)

type ShipmentRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Shipment, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	ListOpen(ctx context.Context) ([]*models.Shipment, error)

	GetItem(ctx context.Context, id int64) (*models.ShipmentItem, error)
	ListItems(ctx context.Context, shipmentID int64) ([]*models.ShipmentItem, error)
	// TransitionItemStatus moves the item to status to only if it is still in
	// status from. It reports false when the item was not in from.
	TransitionItemStatus(ctx context.Context, id int64, from, to string) (bool, error)
	CountItems(ctx context.Context, shipmentType models.ShipmentType, status string) (int, error)
}

type shipmentRepo struct {
	db Database
}

func NewShipmentRepo(db Database) ShipmentRepository {
	return &shipmentRepo{db: db}
}

func (r *shipmentRepo) GetByID(ctx context.Context, id int64) (*models.Shipment, error) {
	s := &models.Shipment{}
	query := `SELECT id, reference, shipment_type, status, created_at FROM shipments WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.Reference, &s.ShipmentType, &s.Status, &s.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, common.NewNotFound("shipment", id)
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return s, nil
}

func (r *shipmentRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE shipments SET status = $1 WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update shipment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFound("shipment", id)
	}
	return nil
}

// ListOpen returns shipments that have not reached COMPLETED.
func (r *shipmentRepo) ListOpen(ctx context.Context) ([]*models.Shipment, error) {
	query := `
		SELECT id, reference, shipment_type, status, created_at
		FROM shipments
		WHERE status <> 'COMPLETED'
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list open shipments: %w", err)
	}
	defer rows.Close()

	var shipments []*models.Shipment
	for rows.Next() {
		s := &models.Shipment{}
		if err := rows.Scan(&s.ID, &s.Reference, &s.ShipmentType, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		shipments = append(shipments, s)
	}
	return shipments, rows.Err()
}

func (r *shipmentRepo) GetItem(ctx context.Context, id int64) (*models.ShipmentItem, error) {
	item := &models.ShipmentItem{}
	query := `SELECT id, shipment_id, sku_id, quantity, status FROM shipment_items WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&item.ID, &item.ShipmentID, &item.SkuID, &item.Quantity, &item.Status)
	if err != nil {
		if isNoRows(err) {
			return nil, common.NewNotFound("shipment item", id)
		}
		return nil, fmt.Errorf("get shipment item: %w", err)
	}
	return item, nil
}

func (r *shipmentRepo) ListItems(ctx context.Context, shipmentID int64) ([]*models.ShipmentItem, error) {
	query := `
		SELECT id, shipment_id, sku_id, quantity, status
		FROM shipment_items
		WHERE shipment_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list shipment items: %w", err)
	}
	defer rows.Close()

	var items []*models.ShipmentItem
	for rows.Next() {
		item := &models.ShipmentItem{}
		if err := rows.Scan(&item.ID, &item.ShipmentID, &item.SkuID, &item.Quantity, &item.Status); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *shipmentRepo) TransitionItemStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	query := `UPDATE shipment_items SET status = $3 WHERE id = $1 AND status = $2`
	tag, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("update shipment item status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *shipmentRepo) CountItems(ctx context.Context, shipmentType models.ShipmentType, status string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM shipment_items i
		JOIN shipments s ON s.id = i.shipment_id
		WHERE s.shipment_type = $1 AND i.status = $2
	`
	var count int
	if err := r.db.QueryRow(ctx, query, shipmentType, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("count shipment items: %w", err)
	}
	return count, nil
}
