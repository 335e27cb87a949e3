package repositories

import (
	"context"
	"fmt"

	"wmscore/internal/common"
	"wmscore/internal/models"
)

// TopologyRepository reads the Zone -> Rack -> Bin hierarchy.
type TopologyRepository interface {
	GetZone(ctx context.Context, id int64) (*models.Zone, error)
	GetBin(ctx context.Context, id int64) (*models.Bin, error)
	FirstBin(ctx context.Context) (*models.Bin, error)
	ListZoneBinUsage(ctx context.Context, zoneID, skuID int64) ([]*models.BinUsage, error)
}

type topologyRepo struct {
	db Database
}

func NewTopologyRepo(db Database) TopologyRepository {
	return &topologyRepo{db: db}
}

const binColumns = `
		SELECT b.id, b.rack_id, r.zone_id, b.code, b.name, b.capacity, r.name, z.name
		FROM bins b
		JOIN racks r ON r.id = b.rack_id
		JOIN zones z ON z.id = r.zone_id
`

func (r *topologyRepo) GetZone(ctx context.Context, id int64) (*models.Zone, error) {
	zone := &models.Zone{}
	query := `SELECT id, name, description FROM zones WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&zone.ID, &zone.Name, &zone.Description)
	if err != nil {
		if isNoRows(err) {
			return nil, common.NewNotFound("zone", id)
		}
		return nil, fmt.Errorf("get zone: %w", err)
	}
	return zone, nil
}

func (r *topologyRepo) GetBin(ctx context.Context, id int64) (*models.Bin, error) {
	bin := &models.Bin{}
	err := r.db.QueryRow(ctx, binColumns+` WHERE b.id = $1`, id).Scan(
		&bin.ID, &bin.RackID, &bin.ZoneID, &bin.Code, &bin.Name, &bin.Capacity, &bin.RackName, &bin.ZoneName)
	if err != nil {
		if isNoRows(err) {
			return nil, common.NewNotFound("bin", id)
		}
		return nil, fmt.Errorf("get bin: %w", err)
	}
	return bin, nil
}

// FirstBin returns the bin with the lowest id, or ErrNoBinAvailable.
func (r *topologyRepo) FirstBin(ctx context.Context) (*models.Bin, error) {
	bin := &models.Bin{}
	err := r.db.QueryRow(ctx, binColumns+` ORDER BY b.id ASC LIMIT 1`).Scan(
		&bin.ID, &bin.RackID, &bin.ZoneID, &bin.Code, &bin.Name, &bin.Capacity, &bin.RackName, &bin.ZoneName)
	if err != nil {
		if isNoRows(err) {
			return nil, common.ErrNoBinAvailable
		}
		return nil, fmt.Errorf("first bin: %w", err)
	}
	return bin, nil
}

// ListZoneBinUsage returns every bin of the zone with its occupancy across
// all SKUs and whether it already holds skuID, ordered by bin id.
func (r *topologyRepo) ListZoneBinUsage(ctx context.Context, zoneID, skuID int64) ([]*models.BinUsage, error) {
	query := `
		SELECT b.id, b.rack_id, r.zone_id, b.code, b.name, b.capacity, r.name, z.name,
			COALESCE(SUM(s.quantity), 0), COALESCE(BOOL_OR(s.sku_id = $2), false)
		FROM bins b
		JOIN racks r ON r.id = b.rack_id
		JOIN zones z ON z.id = r.zone_id
		LEFT JOIN inventory_stock s ON s.bin_id = b.id
		WHERE r.zone_id = $1
		GROUP BY b.id, r.zone_id, r.name, z.name
		ORDER BY b.id ASC
	`
	rows, err := r.db.Query(ctx, query, zoneID, skuID)
	if err != nil {
		return nil, fmt.Errorf("list zone bins: %w", err)
	}
	defer rows.Close()

	var usages []*models.BinUsage
	for rows.Next() {
		u := &models.BinUsage{}
		if err := rows.Scan(&u.ID, &u.RackID, &u.ZoneID, &u.Code, &u.Name, &u.Capacity, &u.RackName, &u.ZoneName,
			&u.Used, &u.HoldsSKU); err != nil {
			return nil, err
		}
		usages = append(usages, u)
	}
	return usages, rows.Err()
}
