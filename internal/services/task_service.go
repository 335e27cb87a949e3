package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wmscore/internal/common"
	"wmscore/internal/locking"
	"wmscore/internal/models"
	"wmscore/internal/repositories"

	"github.com/rs/zerolog/log"
)

// TaskOrchestrator owns the putaway and picking task lifecycle:
// PENDING -> IN_PROGRESS -> COMPLETED for putaway, PENDING -> COMPLETED
// also allowed for picking.
type TaskOrchestrator interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, taskID int64) (*models.Task, error)
	ListForUser(ctx context.Context, userID int64, taskType models.TaskType) ([]*models.Task, error)
	StartPutaway(ctx context.Context, taskID int64) (*models.Task, error)
	// CompletePutaway stores the plan through the ledger. An empty plan falls
	// back to the plan recorded on the task. The plan must store exactly the
	// item's quantity and fit the free capacity of its bins.
	CompletePutaway(ctx context.Context, taskID int64, plan []models.BinAllocation) (*models.Task, error)
	CompletePicking(ctx context.Context, taskID, userID int64) (*models.Task, error)
	// PutawayStats and PickingStats count the tasks assigned to userID.
	PutawayStats(ctx context.Context, userID int64) (*models.PutawayStats, error)
	PickingStats(ctx context.Context, userID int64) (*models.PickingStats, error)
}

type taskOrchestrator struct {
	taskRepo     repositories.TaskRepository
	shipmentRepo repositories.ShipmentRepository
	ledger       InventoryLedger
	topology     TopologyService
	aggregator   ShipmentAggregator
	locker       locking.Locker
	now          func() time.Time
}

func NewTaskOrchestrator(taskRepo repositories.TaskRepository, shipmentRepo repositories.ShipmentRepository,
	ledger InventoryLedger, topology TopologyService, aggregator ShipmentAggregator, locker locking.Locker) TaskOrchestrator {
	return &taskOrchestrator{
		taskRepo:     taskRepo,
		shipmentRepo: shipmentRepo,
		ledger:       ledger,
		topology:     topology,
		aggregator:   aggregator,
		locker:       locker,
		now:          time.Now,
	}
}

func (s *taskOrchestrator) CreateTask(ctx context.Context, task *models.Task) error {
	task.Status = models.TaskPending
	task.InProgress = false
	task.CompletedAt = nil
	return s.taskRepo.Create(ctx, task)
}

func (s *taskOrchestrator) GetTask(ctx context.Context, taskID int64) (*models.Task, error) {
	return s.taskRepo.GetByID(ctx, taskID)
}

func (s *taskOrchestrator) ListForUser(ctx context.Context, userID int64, taskType models.TaskType) ([]*models.Task, error) {
	return s.taskRepo.ListByUser(ctx, userID, taskType)
}

func (s *taskOrchestrator) StartPutaway(ctx context.Context, taskID int64) (*models.Task, error) {
	unlock, err := s.locker.Lock(ctx, locking.TaskKey(taskID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.TaskType != models.TaskPutaway {
		return nil, fmt.Errorf("start task %d of type %s: %w", taskID, task.TaskType, common.ErrWrongTaskType)
	}
	if task.Status != models.TaskPending {
		return nil, taskStateError(task)
	}
	if err := s.transition(ctx, task, models.TaskInProgress, true, nil); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskOrchestrator) CompletePutaway(ctx context.Context, taskID int64, plan []models.BinAllocation) (*models.Task, error) {
	unlock, err := s.locker.Lock(ctx, locking.TaskKey(taskID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.TaskType != models.TaskPutaway {
		return nil, fmt.Errorf("complete putaway on task %d of type %s: %w", taskID, task.TaskType, common.ErrWrongTaskType)
	}
	if task.Status == models.TaskCompleted {
		return nil, taskStateError(task)
	}

	item, err := s.shipmentRepo.GetItem(ctx, task.ShipmentItemID)
	if err != nil {
		return nil, err
	}
	legs, err := s.putawayLegs(ctx, task, item, plan)
	if err != nil {
		return nil, err
	}

	previous := task.Status
	previousInProgress := task.InProgress
	completedAt := s.now()
	if err := s.transition(ctx, task, models.TaskCompleted, false, &completedAt); err != nil {
		return nil, err
	}
	// The item is claimed before stock moves so nothing can fail once it has.
	if err := claimItem(ctx, s.shipmentRepo, item, models.ItemStatusVerified, models.ItemStatusReceived); err != nil {
		s.revert(ctx, task, previous, previousInProgress)
		return nil, fmt.Errorf("mark item %d received: %w", item.ID, err)
	}
	if err := applyAdds(ctx, s.ledger, item.SkuID, legs); err != nil {
		releaseItem(ctx, s.shipmentRepo, item, models.ItemStatusVerified)
		s.revert(ctx, task, previous, previousInProgress)
		return nil, fmt.Errorf("putaway task %d: %w", taskID, err)
	}
	task.AllocationPlan = legs
	s.aggregator.Recompute(ctx, item.ShipmentID, models.ShipmentInbound)

	log.Info().Int64("task_id", taskID).Int64("item_id", item.ID).Int("legs", len(legs)).Msg("putaway completed")
	return task, nil
}

// putawayLegs resolves the plan to store: the caller's plan, else the task's
// recorded plan, else the whole item quantity into the suggested bin.
// Zero-quantity legs are dropped, every bin must exist, the legs must add up
// to the item quantity and each bin must have room for its share.
func (s *taskOrchestrator) putawayLegs(ctx context.Context, task *models.Task, item *models.ShipmentItem, plan []models.BinAllocation) ([]models.BinAllocation, error) {
	if len(plan) == 0 {
		plan = task.AllocationPlan
	}
	if len(plan) == 0 && task.SuggestedBinID != nil {
		plan = []models.BinAllocation{{BinID: *task.SuggestedBinID, Quantity: item.Quantity}}
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("task %d has no allocation plan: %w", task.ID, common.ErrNoBinAvailable)
	}

	legs := make([]models.BinAllocation, 0, len(plan))
	bins := make(map[int64]*models.Bin)
	perBin := make(map[int64]int)
	total := 0
	for _, leg := range plan {
		if leg.Quantity < 0 {
			return nil, fmt.Errorf("bin %d quantity %d: %w", leg.BinID, leg.Quantity, common.ErrInvalidQuantity)
		}
		if leg.Quantity == 0 {
			continue
		}
		bin, err := s.topology.GetBin(ctx, leg.BinID)
		if err != nil {
			return nil, err
		}
		bins[bin.ID] = bin
		perBin[bin.ID] += leg.Quantity
		total += leg.Quantity
		leg.BinCode = bin.Code
		leg.BinName = bin.Name
		legs = append(legs, leg)
	}
	if total != item.Quantity {
		return nil, fmt.Errorf("task %d plan stores %d of %d units: %w", task.ID, total, item.Quantity, common.ErrInvalidQuantity)
	}
	if err := s.checkRoom(ctx, item.SkuID, bins, perBin); err != nil {
		return nil, err
	}
	return legs, nil
}

// checkRoom fails with a BinCapacityError when a bin cannot take its share.
// The ledger enforces the same limit on write; this reports it before any
// leg is stored.
func (s *taskOrchestrator) checkRoom(ctx context.Context, skuID int64, bins map[int64]*models.Bin, perBin map[int64]int) error {
	usage := make(map[int64]*models.BinUsage)
	zonesSeen := make(map[int64]bool)
	for _, bin := range bins {
		if bin.Capacity == nil || zonesSeen[bin.ZoneID] {
			continue
		}
		zonesSeen[bin.ZoneID] = true
		usages, err := s.topology.ListZoneBinUsage(ctx, bin.ZoneID, skuID)
		if err != nil {
			return err
		}
		for _, u := range usages {
			usage[u.ID] = u
		}
	}
	for id, bin := range bins {
		if bin.Capacity == nil {
			continue
		}
		used := 0
		if u, ok := usage[id]; ok {
			used = u.Used
		}
		if used+perBin[id] > *bin.Capacity {
			return &common.BinCapacityError{BinID: id, BinCode: bin.Code, Capacity: *bin.Capacity, Used: used, Requested: perBin[id]}
		}
	}
	return nil
}

func (s *taskOrchestrator) CompletePicking(ctx context.Context, taskID, userID int64) (*models.Task, error) {
	unlock, err := s.locker.Lock(ctx, locking.TaskKey(taskID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, fmt.Errorf("task %d: %w", taskID, common.ErrNotAssigned)
	}
	if task.TaskType != models.TaskPicking {
		return nil, fmt.Errorf("complete picking on task %d of type %s: %w", taskID, task.TaskType, common.ErrWrongTaskType)
	}
	if task.Status == models.TaskCompleted {
		return nil, taskStateError(task)
	}
	if task.SuggestedBinID == nil {
		return nil, fmt.Errorf("task %d has no pick location: %w", taskID, common.ErrNoBinAvailable)
	}
	binID := *task.SuggestedBinID

	item, err := s.shipmentRepo.GetItem(ctx, task.ShipmentItemID)
	if err != nil {
		return nil, err
	}
	sku, err := s.topology.GetSku(ctx, item.SkuID)
	if err != nil {
		return nil, err
	}
	location := task.SuggestedLocation
	if location == "" {
		if bin, err := s.topology.GetBin(ctx, binID); err == nil {
			location = bin.FullLocation()
		}
	}
	shortage := func(available int) error {
		return &common.InsufficientStockError{
			ProductName: sku.ProductName,
			SKU:         sku.SkuCode,
			Available:   available,
			Required:    item.Quantity,
			Location:    location,
		}
	}

	available, _, err := s.ledger.Get(ctx, item.SkuID, binID)
	if err != nil {
		return nil, err
	}
	if available < item.Quantity {
		return nil, shortage(available)
	}

	previous := task.Status
	previousInProgress := task.InProgress
	completedAt := s.now()
	if err := s.transition(ctx, task, models.TaskCompleted, false, &completedAt); err != nil {
		return nil, err
	}
	if err := claimItem(ctx, s.shipmentRepo, item, models.ItemStatusVerified, models.ItemStatusDispatched); err != nil {
		s.revert(ctx, task, previous, previousInProgress)
		return nil, fmt.Errorf("mark item %d dispatched: %w", item.ID, err)
	}

	// The ledger re-validates under the stock lock; a concurrent pick may
	// have drained the bin since the read above.
	if err := s.ledger.Deduct(ctx, item.SkuID, binID, item.Quantity); err != nil {
		releaseItem(ctx, s.shipmentRepo, item, models.ItemStatusVerified)
		s.revert(ctx, task, previous, previousInProgress)
		var insufficient *common.InsufficientStockError
		if errors.As(err, &insufficient) {
			return nil, shortage(insufficient.Available)
		}
		return nil, fmt.Errorf("picking task %d: %w", taskID, err)
	}

	s.aggregator.Recompute(ctx, item.ShipmentID, models.ShipmentOutbound)

	log.Info().Int64("task_id", taskID).Int64("item_id", item.ID).Int64("bin_id", binID).Int("quantity", item.Quantity).Msg("picking completed")
	return task, nil
}

func (s *taskOrchestrator) PutawayStats(ctx context.Context, userID int64) (*models.PutawayStats, error) {
	return s.taskRepo.PutawayStats(ctx, userID, startOfDay(s.now()))
}

func (s *taskOrchestrator) PickingStats(ctx context.Context, userID int64) (*models.PickingStats, error) {
	stats, err := s.taskRepo.PickingStats(ctx, userID, startOfDay(s.now()))
	if err != nil {
		return nil, err
	}
	ready, err := s.shipmentRepo.CountItems(ctx, models.ShipmentOutbound, models.ItemStatusDispatched)
	if err != nil {
		return nil, err
	}
	stats.ReadyToShip = ready
	return stats, nil
}

// transition applies a compare-and-set from the task's current status and
// updates task in place on success.
func (s *taskOrchestrator) transition(ctx context.Context, task *models.Task, to models.TaskStatus, inProgress bool, completedAt *time.Time) error {
	ok, err := s.taskRepo.Transition(ctx, task.ID, task.Status, to, inProgress, completedAt)
	if err != nil {
		return err
	}
	if !ok {
		current, err := s.taskRepo.GetByID(ctx, task.ID)
		if err != nil {
			return err
		}
		return taskStateError(current)
	}
	task.Status = to
	task.InProgress = inProgress
	task.CompletedAt = completedAt
	return nil
}

// revert undoes a completion claim after the inventory effect failed.
func (s *taskOrchestrator) revert(ctx context.Context, task *models.Task, status models.TaskStatus, inProgress bool) {
	if err := s.transition(ctx, task, status, inProgress, nil); err != nil {
		log.Error().Err(err).Int64("task_id", task.ID).Str("status", string(status)).Msg("failed to revert task completion")
	}
}

func taskStateError(task *models.Task) error {
	return &common.StateError{Entity: "task", ID: task.ID, Current: string(task.Status)}
}

// applyAdds stores every leg, deducting the legs already stored if one fails.
func applyAdds(ctx context.Context, ledger InventoryLedger, skuID int64, legs []models.BinAllocation) error {
	for i, leg := range legs {
		if err := ledger.Add(ctx, skuID, leg.BinID, leg.Quantity); err != nil {
			for _, done := range legs[:i] {
				if undoErr := ledger.Deduct(ctx, skuID, done.BinID, done.Quantity); undoErr != nil {
					log.Error().Err(undoErr).Int64("sku_id", skuID).Int64("bin_id", done.BinID).Msg("failed to undo stock add")
				}
			}
			return err
		}
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
