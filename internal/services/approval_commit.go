package services

import (
	"context"
	"fmt"

	"wmscore/internal/common"
	"wmscore/internal/models"
	"wmscore/internal/repositories"

	"github.com/rs/zerolog/log"
)

// receiveCommitter turns an approved mismatch into the flow a verified item
// would have taken: inbound items are stored, outbound items get a picking task.
// Either way the item must still be PENDING; an item already verified or
// stored through another path is not committed twice.
type receiveCommitter struct {
	shipmentRepo repositories.ShipmentRepository
	allocator    LocationAllocator
	ledger       InventoryLedger
	topology     TopologyService
	tasks        TaskOrchestrator
	aggregator   ShipmentAggregator
}

func NewReceiveCommitter(shipmentRepo repositories.ShipmentRepository, allocator LocationAllocator, ledger InventoryLedger,
	topology TopologyService, tasks TaskOrchestrator, aggregator ShipmentAggregator) ApprovalCommitter {
	return &receiveCommitter{
		shipmentRepo: shipmentRepo,
		allocator:    allocator,
		ledger:       ledger,
		topology:     topology,
		tasks:        tasks,
		aggregator:   aggregator,
	}
}

func (c *receiveCommitter) CommitApproved(ctx context.Context, approval *models.Approval) error {
	item, err := c.shipmentRepo.GetItem(ctx, approval.ShipmentItemID)
	if err != nil {
		return err
	}
	shipment, err := c.shipmentRepo.GetByID(ctx, item.ShipmentID)
	if err != nil {
		return err
	}
	if shipment.ShipmentType == models.ShipmentOutbound {
		return c.createPick(ctx, approval, item)
	}
	return c.receive(ctx, item)
}

func (c *receiveCommitter) receive(ctx context.Context, item *models.ShipmentItem) error {
	if item.Status != models.ItemStatusPending {
		return itemStateError(item)
	}
	plan, err := c.allocator.Allocate(ctx, item.SkuID, item.Quantity)
	if err != nil {
		return err
	}
	if !plan.FullyCovered() {
		return fmt.Errorf("zone %d can hold %d of %d units: %w", plan.ZoneID, plan.AllocatedQuantity(), item.Quantity, common.ErrNoBinAvailable)
	}

	var legs []models.BinAllocation
	for _, leg := range plan.Allocations {
		if leg.Quantity > 0 {
			legs = append(legs, leg)
		}
	}
	if err := claimItem(ctx, c.shipmentRepo, item, models.ItemStatusPending, models.ItemStatusReceived); err != nil {
		return err
	}
	if err := applyAdds(ctx, c.ledger, item.SkuID, legs); err != nil {
		releaseItem(ctx, c.shipmentRepo, item, models.ItemStatusPending)
		return err
	}
	c.aggregator.Recompute(ctx, item.ShipmentID, models.ShipmentInbound)

	log.Info().Int64("item_id", item.ID).Str("location", plan.SuggestedLocation).Msg("approved item stored")
	return nil
}

func (c *receiveCommitter) createPick(ctx context.Context, approval *models.Approval, item *models.ShipmentItem) error {
	if item.Status != models.ItemStatusPending {
		return itemStateError(item)
	}
	bin, err := pickSource(ctx, c.ledger, c.topology, item)
	if err != nil {
		return err
	}
	task := &models.Task{
		UserID:            approval.RequestedByID,
		ShipmentItemID:    item.ID,
		TaskType:          models.TaskPicking,
		SuggestedBinID:    &bin.ID,
		SuggestedZoneID:   &bin.ZoneID,
		SuggestedLocation: bin.FullLocation(),
	}
	if err := claimItem(ctx, c.shipmentRepo, item, models.ItemStatusPending, models.ItemStatusVerified); err != nil {
		return err
	}
	if err := c.tasks.CreateTask(ctx, task); err != nil {
		releaseItem(ctx, c.shipmentRepo, item, models.ItemStatusPending)
		return err
	}
	return nil
}

// pickSource picks the bin to pick item from: the first bin (by id) holding
// the full quantity, else the first bin holding any stock.
func pickSource(ctx context.Context, ledger InventoryLedger, topology TopologyService, item *models.ShipmentItem) (*models.Bin, error) {
	stocks, err := ledger.ListBySku(ctx, item.SkuID)
	if err != nil {
		return nil, err
	}
	if len(stocks) == 0 {
		sku, err := topology.GetSku(ctx, item.SkuID)
		if err != nil {
			return nil, err
		}
		return nil, &common.InsufficientStockError{
			ProductName: sku.ProductName,
			SKU:         sku.SkuCode,
			Available:   0,
			Required:    item.Quantity,
			Location:    "any bin",
		}
	}
	chosen := stocks[0]
	for _, s := range stocks {
		if s.Quantity >= item.Quantity {
			chosen = s
			break
		}
	}
	return topology.GetBin(ctx, chosen.BinID)
}
