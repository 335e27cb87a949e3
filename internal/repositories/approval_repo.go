package repositories

import (
	"context"
	"fmt"
	"time"

	"wmscore/internal/common"
	"wmscore/internal/models"

	"github.com/jackc/pgx/v5"
)

type ApprovalRepository interface {
	Create(ctx context.Context, approval *models.Approval) error
	GetByID(ctx context.Context, id int64) (*models.Approval, error)
	ListPending(ctx context.Context, requestedBefore time.Time) ([]*models.Approval, error)
	// GetPendingForItem returns the item's PENDING approval or NotFound.
	GetPendingForItem(ctx context.Context, itemID int64) (*models.Approval, error)
	// Decide sets a terminal status only if the approval is still in status
	// from. It reports false when another decision won.
	Decide(ctx context.Context, id int64, from, to models.ApprovalStatus, reviewerID *int64, reviewedAt *time.Time, reason string) (bool, error)
}

type approvalRepo struct {
	db Database
}

func NewApprovalRepo(db Database) ApprovalRepository {
	return &approvalRepo{db: db}
}

const approvalColumns = `
		SELECT id, shipment_item_id, requested_by_id, type, status, reason, extracted_data, expected_data,
			requested_at, reviewed_by_id, reviewed_at
		FROM approvals
`

func (r *approvalRepo) Create(ctx context.Context, approval *models.Approval) error {
	query := `
		INSERT INTO approvals (shipment_item_id, requested_by_id, type, status, reason, extracted_data, expected_data, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, requested_at
	`
	err := r.db.QueryRow(ctx, query, approval.ShipmentItemID, approval.RequestedByID, approval.Type, approval.Status,
		approval.Reason, rawJSON(approval.ExtractedData), rawJSON(approval.ExpectedData)).Scan(&approval.ID, &approval.RequestedAt)
	if err != nil {
		return fmt.Errorf("create approval: %w", err)
	}
	return nil
}

func (r *approvalRepo) GetByID(ctx context.Context, id int64) (*models.Approval, error) {
	approval, err := scanApproval(r.db.QueryRow(ctx, approvalColumns+` WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, common.NewNotFound("approval", id)
		}
		return nil, fmt.Errorf("get approval: %w", err)
	}
	return approval, nil
}

func (r *approvalRepo) GetPendingForItem(ctx context.Context, itemID int64) (*models.Approval, error) {
	query := approvalColumns + ` WHERE shipment_item_id = $1 AND status = 'PENDING' ORDER BY id ASC LIMIT 1`
	approval, err := scanApproval(r.db.QueryRow(ctx, query, itemID))
	if err != nil {
		if isNoRows(err) {
			return nil, common.NewNotFound("pending approval for item", itemID)
		}
		return nil, fmt.Errorf("get pending approval: %w", err)
	}
	return approval, nil
}

// ListPending returns PENDING approvals requested before the given time, oldest first.
func (r *approvalRepo) ListPending(ctx context.Context, requestedBefore time.Time) ([]*models.Approval, error) {
	query := approvalColumns + ` WHERE status = 'PENDING' AND requested_at < $1 ORDER BY requested_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, requestedBefore)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var approvals []*models.Approval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, approval)
	}
	return approvals, rows.Err()
}

func (r *approvalRepo) Decide(ctx context.Context, id int64, from, to models.ApprovalStatus, reviewerID *int64, reviewedAt *time.Time, reason string) (bool, error) {
	query := `
		UPDATE approvals
		SET status = $1, reviewed_by_id = $2, reviewed_at = $3, reason = $4
		WHERE id = $5 AND status = $6
	`
	tag, err := r.db.Exec(ctx, query, to, reviewerID, reviewedAt, reason, id, from)
	if err != nil {
		return false, fmt.Errorf("decide approval: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanApproval(row pgx.Row) (*models.Approval, error) {
	a := &models.Approval{}
	var extracted, expected []byte
	err := row.Scan(&a.ID, &a.ShipmentItemID, &a.RequestedByID, &a.Type, &a.Status, &a.Reason, &extracted, &expected,
		&a.RequestedAt, &a.ReviewedByID, &a.ReviewedAt)
	if err != nil {
		return nil, err
	}
	a.ExtractedData = extracted
	a.ExpectedData = expected
	return a, nil
}

// rawJSON passes a JSON document to a jsonb column, mapping empty to NULL.
func rawJSON(data []byte) *string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	return &s
}
