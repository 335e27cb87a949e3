package models

import "time"

// InventoryStock is the quantity of one SKU held in one bin.
// Rows never hold a zero quantity; an emptied row is deleted.
type InventoryStock struct {
	SkuID     int64     `json:"sku_id" db:"sku_id"`
	BinID     int64     `json:"bin_id" db:"bin_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Sku struct {
	ID         int64   `json:"id" db:"id"`
	ProductID  int64   `json:"product_id" db:"product_id"`
	SkuCode    string  `json:"sku_code" db:"sku_code"`
	Weight     *string `json:"weight,omitempty" db:"weight"`
	Color      *string `json:"color,omitempty" db:"color"`
	Dimensions *string `json:"dimensions,omitempty" db:"dimensions"`

	// ProductCode and ProductName are joined from the owning product.
	ProductCode string `json:"product_code" db:"product_code"`
	ProductName string `json:"product_name" db:"product_name"`
}

// ZoneCapacity summarises the capacity of every bin in a zone.
type ZoneCapacity struct {
	ZoneID         int64 `json:"zone_id"`
	TotalCapacity  int   `json:"total_capacity"`
	TotalUsed      int   `json:"total_used"`
	TotalAvailable int   `json:"total_available"`
	Unbounded      bool  `json:"unbounded"`
}
