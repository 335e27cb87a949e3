package services

import (
	"context"
	"fmt"
	"sort"

	"wmscore/internal/common"
	"wmscore/internal/models"
)

// LocationAllocator decides which bins receive an inbound quantity of a SKU.
type LocationAllocator interface {
	// Allocate never fails on an overflow the zone cannot absorb: it returns
	// a partial plan and callers check plan.FullyCovered().
	Allocate(ctx context.Context, skuID int64, quantity int) (*models.AllocationPlan, error)
	CheckZoneCapacity(ctx context.Context, zoneID, skuID int64) (*models.ZoneCapacity, error)
}

type locationAllocator struct {
	ledger   InventoryLedger
	topology TopologyService
}

func NewLocationAllocator(ledger InventoryLedger, topology TopologyService) LocationAllocator {
	return &locationAllocator{
		ledger:   ledger,
		topology: topology,
	}
}

func (a *locationAllocator) Allocate(ctx context.Context, skuID int64, quantity int) (*models.AllocationPlan, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("allocate %d: %w", quantity, common.ErrInvalidQuantity)
	}

	canonical, err := a.canonicalBin(ctx, skuID)
	if err != nil {
		return nil, err
	}
	if canonical.ZoneID == 0 {
		return nil, common.ErrNoZoneAvailable
	}

	usages, err := a.topology.ListZoneBinUsage(ctx, canonical.ZoneID, skuID)
	if err != nil {
		return nil, fmt.Errorf("load zone %d bins: %w", canonical.ZoneID, err)
	}
	var primary *models.BinUsage
	for _, u := range usages {
		if u.ID == canonical.ID {
			primary = u
			break
		}
	}
	if primary == nil {
		return nil, common.ErrNoZoneAvailable
	}

	plan := &models.AllocationPlan{
		PrimaryBin:        &primary.Bin,
		ZoneID:            primary.ZoneID,
		SuggestedLocation: primary.ShortLocation(),
		Requested:         quantity,
	}

	available, bounded := primary.Available()
	if !bounded || quantity <= available {
		plan.Allocations = []models.BinAllocation{allocationFor(primary, quantity)}
		return plan, nil
	}

	// Overflow: fill the primary bin, then spill into the rest of the zone.
	plan.Overflow = true
	plan.Allocations = []models.BinAllocation{allocationFor(primary, available)}
	remaining := quantity - available

	for _, candidate := range overflowCandidates(usages, primary.ID) {
		if remaining == 0 {
			break
		}
		take := remaining
		if free, ok := candidate.Available(); ok && free < take {
			take = free
		}
		plan.Allocations = append(plan.Allocations, allocationFor(candidate, take))
		remaining -= take
	}
	return plan, nil
}

// canonicalBin is the bin of the SKU's lowest-bin-id stock row, falling back
// to the lowest-id bin in the warehouse when the SKU holds no stock.
func (a *locationAllocator) canonicalBin(ctx context.Context, skuID int64) (*models.Bin, error) {
	stocks, err := a.ledger.ListBySku(ctx, skuID)
	if err != nil {
		return nil, fmt.Errorf("load stock for sku %d: %w", skuID, err)
	}
	if len(stocks) == 0 {
		return a.topology.FirstBin(ctx)
	}
	return a.topology.GetBin(ctx, stocks[0].BinID)
}

// overflowCandidates returns the zone's other bins with room, bins already
// holding the SKU first, then by most free space, then by bin id.
func overflowCandidates(usages []*models.BinUsage, excludeID int64) []*models.BinUsage {
	var candidates []*models.BinUsage
	for _, u := range usages {
		if u.ID == excludeID {
			continue
		}
		if free, ok := u.Available(); ok && free == 0 {
			continue
		}
		candidates = append(candidates, u)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.HoldsSKU != cj.HoldsSKU {
			return ci.HoldsSKU
		}
		fi, bi := ci.Available()
		fj, bj := cj.Available()
		if bi != bj {
			return !bi
		}
		if fi != fj {
			return fi > fj
		}
		return ci.ID < cj.ID
	})
	return candidates
}

func allocationFor(u *models.BinUsage, quantity int) models.BinAllocation {
	alloc := models.BinAllocation{
		BinID:    u.ID,
		BinCode:  u.Code,
		BinName:  u.Name,
		Quantity: quantity,
	}
	if free, ok := u.Available(); ok {
		alloc.AvailableCapacity = &free
	}
	return alloc
}

func (a *locationAllocator) CheckZoneCapacity(ctx context.Context, zoneID, skuID int64) (*models.ZoneCapacity, error) {
	usages, err := a.topology.ListZoneBinUsage(ctx, zoneID, skuID)
	if err != nil {
		return nil, err
	}
	capacity := &models.ZoneCapacity{ZoneID: zoneID}
	for _, u := range usages {
		capacity.TotalUsed += u.Used
		if u.Capacity == nil {
			capacity.Unbounded = true
			continue
		}
		free, _ := u.Available()
		capacity.TotalCapacity += *u.Capacity
		capacity.TotalAvailable += free
	}
	return capacity, nil
}
