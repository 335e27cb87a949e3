package repositories

import (
	"context"
	"fmt"

	"wmscore/internal/common"
	"wmscore/internal/models"
)

type SkuRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Sku, error)
}

type skuRepo struct {
	db Database
}

func NewSkuRepo(db Database) SkuRepository {
	return &skuRepo{db: db}
}

func (r *skuRepo) GetByID(ctx context.Context, id int64) (*models.Sku, error) {
	sku := &models.Sku{}
	query := `
		SELECT s.id, s.product_id, s.sku_code, s.weight, s.color, s.dimensions, p.code, p.name
		FROM skus s
		JOIN products p ON p.id = s.product_id
		WHERE s.id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&sku.ID, &sku.ProductID, &sku.SkuCode, &sku.Weight, &sku.Color,
		&sku.Dimensions, &sku.ProductCode, &sku.ProductName)
	if err != nil {
		if isNoRows(err) {
			return nil, common.NewNotFound("sku", id)
		}
		return nil, fmt.Errorf("get sku: %w", err)
	}
	return sku, nil
}
