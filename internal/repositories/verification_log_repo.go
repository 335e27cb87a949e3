package repositories

import (
	"context"
	"fmt"

	"wmscore/internal/models"
)

type VerificationLogRepository interface {
	Create(ctx context.Context, entry *models.VerificationLog) error
}

type verificationLogRepo struct {
	db Database
}

func NewVerificationLogRepo(db Database) VerificationLogRepository {
	return &verificationLogRepo{db: db}
}

func (r *verificationLogRepo) Create(ctx context.Context, entry *models.VerificationLog) error {
	query := `
		INSERT INTO verification_logs (shipment_item_id, worker_id, image_object, extracted_data, expected_data, confidence, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, entry.ShipmentItemID, entry.WorkerID, entry.ImageObject, rawJSON(entry.ExtractedData),
		rawJSON(entry.ExpectedData), entry.Confidence, entry.Result).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("create verification log: %w", err)
	}
	return nil
}
