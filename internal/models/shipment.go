package models

import "time"

type ShipmentType string

const (
	ShipmentInbound  ShipmentType = "INBOUND"
	ShipmentOutbound ShipmentType = "OUTBOUND"
)

const (
	ShipmentStatusPending   = "PENDING"
	ShipmentStatusCompleted = "COMPLETED"
)

// Shipment item statuses.
const (
	ItemStatusPending    = "PENDING"
	ItemStatusReceived   = "RECEIVED"
	ItemStatusVerified   = "VERIFIED"
	ItemStatusDispatched = "DISPATCHED"
)

type Shipment struct {
	ID           int64        `json:"id" db:"id"`
	Reference    string       `json:"reference" db:"reference"`
	ShipmentType ShipmentType `json:"shipment_type" db:"shipment_type"`
	Status       string       `json:"status" db:"status"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// TerminalItemStatus is the item status that completes a shipment of type t.
func (t ShipmentType) TerminalItemStatus() string {
	if t == ShipmentOutbound {
		return ItemStatusDispatched
	}
	return ItemStatusReceived
}

type ShipmentItem struct {
	ID         int64  `json:"id" db:"id"`
	ShipmentID int64  `json:"shipment_id" db:"shipment_id"`
	SkuID      int64  `json:"sku_id" db:"sku_id"`
	Quantity   int    `json:"quantity" db:"quantity"`
	Status     string `json:"status" db:"status"`
}
