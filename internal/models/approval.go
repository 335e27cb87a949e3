package models

import (
	"encoding/json"
	"time"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

const ApprovalTypeVerificationMismatch = "VERIFICATION_MISMATCH"

type Approval struct {
	ID             int64           `json:"id" db:"id"`
	ShipmentItemID int64           `json:"shipment_item_id" db:"shipment_item_id"`
	RequestedByID  int64           `json:"requested_by_id" db:"requested_by_id"`
	Type           string          `json:"type" db:"type"`
	Status         ApprovalStatus  `json:"status" db:"status"`
	Reason         string          `json:"reason" db:"reason"`
	ExtractedData  json.RawMessage `json:"extracted_data,omitempty" db:"extracted_data"`
	ExpectedData   json.RawMessage `json:"expected_data,omitempty" db:"expected_data"`
	RequestedAt    time.Time       `json:"requested_at" db:"requested_at"`
	ReviewedByID   *int64          `json:"reviewed_by_id,omitempty" db:"reviewed_by_id"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
}
