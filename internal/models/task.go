package models

import "time"

type TaskType string

const (
	TaskPutaway TaskType = "PUTAWAY"
	TaskPicking TaskType = "PICKING"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// BinAllocation is one leg of an allocation plan.
type BinAllocation struct {
	BinID             int64  `json:"binId"`
	BinCode           string `json:"binCode,omitempty"`
	BinName           string `json:"binName,omitempty"`
	Quantity          int    `json:"quantity"`
	AvailableCapacity *int   `json:"availableCapacity,omitempty"`
}

// AllocationPlan describes where a quantity of a SKU should be stored.
// Callers must compare AllocatedQuantity with the requested quantity: an
// overflow that cannot be placed in the zone yields a partial plan.
type AllocationPlan struct {
	PrimaryBin        *Bin            `json:"primary_bin"`
	ZoneID            int64           `json:"zone_id"`
	SuggestedLocation string          `json:"suggested_location"`
	Allocations       []BinAllocation `json:"allocations"`
	Requested         int             `json:"requested"`
	Overflow          bool            `json:"overflow"`
}

func (p *AllocationPlan) AllocatedQuantity() int {
	total := 0
	for _, a := range p.Allocations {
		total += a.Quantity
	}
	return total
}

// FullyCovered reports whether the plan places the whole requested quantity.
func (p *AllocationPlan) FullyCovered() bool {
	return p.AllocatedQuantity() == p.Requested
}

type Task struct {
	ID                int64           `json:"id" db:"id"`
	UserID            int64           `json:"user_id" db:"user_id"`
	ShipmentItemID    int64           `json:"shipment_item_id" db:"shipment_item_id"`
	TaskType          TaskType        `json:"task_type" db:"task_type"`
	Status            TaskStatus      `json:"status" db:"status"`
	SuggestedBinID    *int64          `json:"suggested_bin_id,omitempty" db:"suggested_bin_id"`
	SuggestedZoneID   *int64          `json:"suggested_zone_id,omitempty" db:"suggested_zone_id"`
	SuggestedLocation string          `json:"suggested_location" db:"suggested_location"`
	AllocationPlan    []BinAllocation `json:"allocation_plan,omitempty" db:"allocation_plan"`
	InProgress        bool            `json:"in_progress" db:"in_progress"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

type PutawayStats struct {
	Pending        int `json:"pending"`
	InProgress     int `json:"in_progress"`
	CompletedToday int `json:"completed_today"`
}

type PickingStats struct {
	ActivePickLists int `json:"active_pick_lists"`
	ItemsToPick     int `json:"items_to_pick"`
	PickedToday     int `json:"picked_today"`
	ReadyToShip     int `json:"ready_to_ship"`
}
