package models

import (
	"encoding/json"
	"time"
)

// LabelFields are the attributes read from, or expected on, a package label.
type LabelFields struct {
	ProductCode string `json:"productCode,omitempty"`
	SkuCode     string `json:"skuCode,omitempty"`
	Weight      string `json:"weight,omitempty"`
	Color       string `json:"color,omitempty"`
	Dimensions  string `json:"dimensions,omitempty"`
}

// VerificationResult is what the external verification engine reports.
type VerificationResult struct {
	Matched    bool        `json:"matched"`
	Confidence float64     `json:"confidence"`
	Extracted  LabelFields `json:"extracted"`
	Issues     []string    `json:"issues"`
}

const (
	VerificationMatch    = "MATCH"
	VerificationMismatch = "MISMATCH"
)

type VerificationLog struct {
	ID             int64           `json:"id" db:"id"`
	ShipmentItemID int64           `json:"shipment_item_id" db:"shipment_item_id"`
	WorkerID       int64           `json:"worker_id" db:"worker_id"`
	ImageObject    *string         `json:"image_object,omitempty" db:"image_object"`
	ExtractedData  json.RawMessage `json:"extracted_data" db:"extracted_data"`
	ExpectedData   json.RawMessage `json:"expected_data" db:"expected_data"`
	Confidence     float64         `json:"confidence" db:"confidence"`
	Result         string          `json:"result" db:"result"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Verification response statuses.
const (
	ResponseSuccess  = "SUCCESS"
	ResponseMismatch = "MISMATCH"
	ResponseError    = "ERROR"
)

type FieldPair struct {
	Extracted string `json:"extracted"`
	Expected  string `json:"expected"`
}

type VerificationDetails struct {
	ProductCode FieldPair `json:"product_code"`
	Sku         FieldPair `json:"sku"`
	Weight      FieldPair `json:"weight"`
	Color       FieldPair `json:"color"`
	Dimensions  FieldPair `json:"dimensions"`
	Confidence  float64   `json:"confidence"`
	Issues      []string  `json:"issues"`
	BinLocation string    `json:"bin_location,omitempty"`
}

// VerificationResponse is returned by the verification router for every branch.
type VerificationResponse struct {
	Status            string              `json:"status"`
	Message           string              `json:"message"`
	Matched           bool                `json:"matched"`
	AutoAssigned      bool                `json:"auto_assigned"`
	TaskID            *int64              `json:"task_id,omitempty"`
	ApprovalRequestID *int64              `json:"approval_request_id,omitempty"`
	ImageURL          *string             `json:"image_url,omitempty"`
	Details           VerificationDetails `json:"details"`
}
