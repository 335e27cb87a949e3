package models

// Zone is a top-level storage region of the warehouse.
type Zone struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
}

type Rack struct {
	ID     int64  `json:"id" db:"id"`
	ZoneID int64  `json:"zone_id" db:"zone_id"`
	Name   string `json:"name" db:"name"`
}

// Bin is the smallest storage unit. A nil Capacity means the bin is unbounded.
type Bin struct {
	ID       int64  `json:"id" db:"id"`
	RackID   int64  `json:"rack_id" db:"rack_id"`
	ZoneID   int64  `json:"zone_id" db:"zone_id"`
	Code     string `json:"code" db:"code"`
	Name     string `json:"name" db:"name"`
	Capacity *int   `json:"capacity,omitempty" db:"capacity"`

	// Joined from the owning rack and zone.
	RackName string `json:"rack_name,omitempty" db:"rack_name"`
	ZoneName string `json:"zone_name,omitempty" db:"zone_name"`
}

// Label returns the code, or the name when no code was assigned.
func (b *Bin) Label() string {
	if b.Code != "" {
		return b.Code
	}
	return b.Name
}

// ShortLocation is "<zone> / <bin>", the form used for putaway suggestions.
func (b *Bin) ShortLocation() string {
	return b.ZoneName + " / " + b.Label()
}

// FullLocation is "<zone> / <rack> / <bin> (<code>)", the form used for picking.
func (b *Bin) FullLocation() string {
	name := b.Name
	if name == "" {
		name = b.Code
	}
	return b.ZoneName + " / " + b.RackName + " / " + name + " (" + b.Code + ")"
}

// BinUsage is a bin together with its current occupancy across all SKUs.
type BinUsage struct {
	Bin
	Used     int  `json:"used"`
	HoldsSKU bool `json:"holds_sku"`
}

// Available returns the free capacity of the bin. ok is false for unbounded bins.
func (u *BinUsage) Available() (available int, ok bool) {
	if u.Capacity == nil {
		return 0, false
	}
	free := *u.Capacity - u.Used
	if free < 0 {
		free = 0
	}
	return free, true
}
