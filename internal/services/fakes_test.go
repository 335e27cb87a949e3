package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"wmscore/internal/common"
	"wmscore/internal/locking"
	"wmscore/internal/models"

	"github.com/stretchr/testify/mock"
)

type stockKey struct{ sku, bin int64 }

// memInventoryRepo is an in-memory stand-in for the stock table. Each call is
// atomic, like the single-statement SQL it replaces, and writes honor bin
// capacities the same way.
type memInventoryRepo struct {
	mu         sync.Mutex
	stock      map[stockKey]int
	capacities map[int64]int
	failAdd    map[int64]error
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{
		stock:      make(map[stockKey]int),
		capacities: make(map[int64]int),
		failAdd:    make(map[int64]error),
	}
}

func (r *memInventoryRepo) setCapacity(binID int64, capacity int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capacities[binID] = capacity
}

// checkRoom must be called with mu held. exceptSku's row is left out of the
// bin total, or no row when exceptSku is 0.
func (r *memInventoryRepo) checkRoom(binID, exceptSku int64, requested int) error {
	capacity, bounded := r.capacities[binID]
	if !bounded {
		return nil
	}
	used := 0
	for k, q := range r.stock {
		if k.bin == binID && k.sku != exceptSku {
			used += q
		}
	}
	if used+requested > capacity {
		return &common.BinCapacityError{BinID: binID, BinCode: fmt.Sprint(binID), Capacity: capacity, Used: used, Requested: requested}
	}
	return nil
}

func (r *memInventoryRepo) Get(_ context.Context, skuID, binID int64) (*models.InventoryStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.stock[stockKey{skuID, binID}]
	if !ok {
		return nil, common.NewNotFound("stock", binID)
	}
	return &models.InventoryStock{SkuID: skuID, BinID: binID, Quantity: q}, nil
}

func (r *memInventoryRepo) ListBySku(_ context.Context, skuID int64) ([]*models.InventoryStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.InventoryStock
	for k, q := range r.stock {
		if k.sku == skuID {
			out = append(out, &models.InventoryStock{SkuID: k.sku, BinID: k.bin, Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BinID < out[j].BinID })
	return out, nil
}

func (r *memInventoryRepo) Add(_ context.Context, skuID, binID int64, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failAdd[binID]; err != nil {
		return err
	}
	if err := r.checkRoom(binID, 0, delta); err != nil {
		return err
	}
	r.stock[stockKey{skuID, binID}] += delta
	return nil
}

func (r *memInventoryRepo) Set(_ context.Context, skuID, binID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if quantity == 0 {
		delete(r.stock, stockKey{skuID, binID})
		return nil
	}
	if err := r.checkRoom(binID, skuID, quantity); err != nil {
		return err
	}
	r.stock[stockKey{skuID, binID}] = quantity
	return nil
}

func (r *memInventoryRepo) Deduct(_ context.Context, skuID, binID int64, quantity int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := stockKey{skuID, binID}
	q := r.stock[k]
	if q < quantity {
		return 0, &common.InsufficientStockError{SKU: fmt.Sprint(skuID), Available: q, Required: quantity}
	}
	q -= quantity
	if q == 0 {
		delete(r.stock, k)
	} else {
		r.stock[k] = q
	}
	return q, nil
}

func (r *memInventoryRepo) Transfer(_ context.Context, skuID, fromBinID, toBinID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	from := stockKey{skuID, fromBinID}
	q := r.stock[from]
	if q < quantity {
		return &common.InsufficientStockError{SKU: fmt.Sprint(skuID), Available: q, Required: quantity}
	}
	if err := r.checkRoom(toBinID, 0, quantity); err != nil {
		return err
	}
	if q == quantity {
		delete(r.stock, from)
	} else {
		r.stock[from] = q - quantity
	}
	r.stock[stockKey{skuID, toBinID}] += quantity
	return nil
}

func (r *memInventoryRepo) quantity(skuID, binID int64) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.stock[stockKey{skuID, binID}]
	return q, ok
}

// fakeTopology serves bins and SKUs from maps and computes occupancy from
// the in-memory stock.
type fakeTopology struct {
	bins  map[int64]*models.Bin
	zones map[int64]*models.Zone
	skus  map[int64]*models.Sku
	stock *memInventoryRepo
}

func newFakeTopology(stock *memInventoryRepo) *fakeTopology {
	return &fakeTopology{
		bins:  make(map[int64]*models.Bin),
		zones: make(map[int64]*models.Zone),
		skus:  make(map[int64]*models.Sku),
		stock: stock,
	}
}

func (t *fakeTopology) addZone(id int64, name string) {
	t.zones[id] = &models.Zone{ID: id, Name: name}
}

func (t *fakeTopology) addBin(id, zoneID int64, code string, capacity *int) {
	t.bins[id] = &models.Bin{
		ID:       id,
		RackID:   zoneID*10 + 1,
		ZoneID:   zoneID,
		Code:     code,
		Name:     "Bin " + code,
		Capacity: capacity,
		RackName: fmt.Sprintf("Rack %d", zoneID),
		ZoneName: t.zones[zoneID].Name,
	}
	if capacity != nil {
		t.stock.setCapacity(id, *capacity)
	}
}

func (t *fakeTopology) GetBin(_ context.Context, binID int64) (*models.Bin, error) {
	bin, ok := t.bins[binID]
	if !ok {
		return nil, common.NewNotFound("bin", binID)
	}
	copied := *bin
	return &copied, nil
}

func (t *fakeTopology) GetZone(_ context.Context, zoneID int64) (*models.Zone, error) {
	zone, ok := t.zones[zoneID]
	if !ok {
		return nil, common.NewNotFound("zone", zoneID)
	}
	return zone, nil
}

func (t *fakeTopology) GetSku(_ context.Context, skuID int64) (*models.Sku, error) {
	sku, ok := t.skus[skuID]
	if !ok {
		return nil, common.NewNotFound("sku", skuID)
	}
	return sku, nil
}

func (t *fakeTopology) FirstBin(ctx context.Context) (*models.Bin, error) {
	var lowest int64
	for id := range t.bins {
		if lowest == 0 || id < lowest {
			lowest = id
		}
	}
	if lowest == 0 {
		return nil, common.ErrNoBinAvailable
	}
	return t.GetBin(ctx, lowest)
}

func (t *fakeTopology) ListZoneBinUsage(_ context.Context, zoneID, skuID int64) ([]*models.BinUsage, error) {
	t.stock.mu.Lock()
	defer t.stock.mu.Unlock()
	var usages []*models.BinUsage
	for _, bin := range t.bins {
		if bin.ZoneID != zoneID {
			continue
		}
		u := &models.BinUsage{Bin: *bin}
		for k, q := range t.stock.stock {
			if k.bin == bin.ID {
				u.Used += q
				if k.sku == skuID {
					u.HoldsSKU = true
				}
			}
		}
		usages = append(usages, u)
	}
	sort.Slice(usages, func(i, j int) bool { return usages[i].ID < usages[j].ID })
	return usages, nil
}

type memTaskRepo struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*models.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[int64]*models.Task)}
}

func (r *memTaskRepo) Create(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	task.ID = r.nextID
	task.CreatedAt = time.Now()
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id int64) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, common.NewNotFound("task", id)
	}
	copied := *task
	return &copied, nil
}

func (r *memTaskRepo) ListByUser(_ context.Context, userID int64, taskType models.TaskType) ([]*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Task
	for _, task := range r.tasks {
		if task.UserID == userID && (taskType == "" || task.TaskType == taskType) {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memTaskRepo) Transition(_ context.Context, id int64, from, to models.TaskStatus, inProgress bool, completedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.Status != from {
		return false, nil
	}
	task.Status = to
	task.InProgress = inProgress
	task.CompletedAt = completedAt
	return true, nil
}

func (r *memTaskRepo) PutawayStats(_ context.Context, userID int64, since time.Time) (*models.PutawayStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.PutawayStats{}
	for _, task := range r.tasks {
		if task.UserID != userID || task.TaskType != models.TaskPutaway {
			continue
		}
		switch {
		case task.Status == models.TaskPending:
			stats.Pending++
		case task.Status == models.TaskInProgress:
			stats.InProgress++
		case task.CompletedAt != nil && !task.CompletedAt.Before(since):
			stats.CompletedToday++
		}
	}
	return stats, nil
}

func (r *memTaskRepo) PickingStats(_ context.Context, userID int64, since time.Time) (*models.PickingStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.PickingStats{}
	for _, task := range r.tasks {
		if task.UserID == userID && task.TaskType == models.TaskPicking && task.CompletedAt != nil && !task.CompletedAt.Before(since) {
			stats.PickedToday++
		}
	}
	return stats, nil
}

func (r *memTaskRepo) get(id int64) *models.Task {
	task, _ := r.GetByID(context.Background(), id)
	return task
}

type memShipmentRepo struct {
	mu              sync.Mutex
	shipments       map[int64]*models.Shipment
	items           map[int64]*models.ShipmentItem
	failStatusWrite error
	failItemWrite   error
}

func newMemShipmentRepo() *memShipmentRepo {
	return &memShipmentRepo{
		shipments: make(map[int64]*models.Shipment),
		items:     make(map[int64]*models.ShipmentItem),
	}
}

func (r *memShipmentRepo) addShipment(id int64, t models.ShipmentType) {
	r.shipments[id] = &models.Shipment{ID: id, ShipmentType: t, Status: models.ShipmentStatusPending}
}

func (r *memShipmentRepo) addItem(id, shipmentID, skuID int64, quantity int, status string) {
	r.items[id] = &models.ShipmentItem{ID: id, ShipmentID: shipmentID, SkuID: skuID, Quantity: quantity, Status: status}
}

func (r *memShipmentRepo) GetByID(_ context.Context, id int64) (*models.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shipments[id]
	if !ok {
		return nil, common.NewNotFound("shipment", id)
	}
	copied := *s
	return &copied, nil
}

func (r *memShipmentRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStatusWrite != nil {
		return r.failStatusWrite
	}
	r.shipments[id].Status = status
	return nil
}

func (r *memShipmentRepo) ListOpen(context.Context) ([]*models.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Shipment
	for _, s := range r.shipments {
		if s.Status != models.ShipmentStatusCompleted {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memShipmentRepo) GetItem(_ context.Context, id int64) (*models.ShipmentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, common.NewNotFound("shipment item", id)
	}
	copied := *item
	return &copied, nil
}

func (r *memShipmentRepo) ListItems(_ context.Context, shipmentID int64) ([]*models.ShipmentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ShipmentItem
	for _, item := range r.items {
		if item.ShipmentID == shipmentID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memShipmentRepo) TransitionItemStatus(_ context.Context, id int64, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failItemWrite != nil {
		return false, r.failItemWrite
	}
	item, ok := r.items[id]
	if !ok || item.Status != from {
		return false, nil
	}
	item.Status = to
	return true, nil
}

func (r *memShipmentRepo) CountItems(_ context.Context, t models.ShipmentType, status string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, item := range r.items {
		if r.shipments[item.ShipmentID].ShipmentType == t && item.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *memShipmentRepo) itemStatus(id int64) string {
	item, _ := r.GetItem(context.Background(), id)
	return item.Status
}

func (r *memShipmentRepo) shipmentStatus(id int64) string {
	s, _ := r.GetByID(context.Background(), id)
	return s.Status
}

type memApprovalRepo struct {
	mu        sync.Mutex
	nextID    int64
	approvals map[int64]*models.Approval
}

func newMemApprovalRepo() *memApprovalRepo {
	return &memApprovalRepo{approvals: make(map[int64]*models.Approval)}
}

func (r *memApprovalRepo) Create(_ context.Context, a *models.Approval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	a.RequestedAt = time.Now().Add(-time.Second)
	copied := *a
	r.approvals[a.ID] = &copied
	return nil
}

func (r *memApprovalRepo) GetByID(_ context.Context, id int64) (*models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.approvals[id]
	if !ok {
		return nil, common.NewNotFound("approval", id)
	}
	copied := *a
	return &copied, nil
}

func (r *memApprovalRepo) GetPendingForItem(_ context.Context, itemID int64) (*models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.Approval
	for _, a := range r.approvals {
		if a.ShipmentItemID == itemID && a.Status == models.ApprovalPending && (found == nil || a.ID < found.ID) {
			found = a
		}
	}
	if found == nil {
		return nil, common.NewNotFound("pending approval for item", itemID)
	}
	copied := *found
	return &copied, nil
}

func (r *memApprovalRepo) ListPending(_ context.Context, before time.Time) ([]*models.Approval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Approval
	for _, a := range r.approvals {
		if a.Status == models.ApprovalPending && a.RequestedAt.Before(before) {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memApprovalRepo) Decide(_ context.Context, id int64, from, to models.ApprovalStatus, reviewerID *int64, reviewedAt *time.Time, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.approvals[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	a.ReviewedByID = reviewerID
	a.ReviewedAt = reviewedAt
	a.Reason = reason
	return true, nil
}

type MockNotificationSink struct {
	mock.Mock
}

func (m *MockNotificationSink) Notify(ctx context.Context, recipients []int64, title, message, category string, entityID *int64) {
	m.Called(ctx, recipients, title, message, category, entityID)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) ListByRole(ctx context.Context, role string) ([]*models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

type MockApprovalCommitter struct {
	mock.Mock
}

func (m *MockApprovalCommitter) CommitApproved(ctx context.Context, approval *models.Approval) error {
	args := m.Called(ctx, approval)
	return args.Error(0)
}

type MockVerificationEngine struct {
	mock.Mock
}

func (m *MockVerificationEngine) Verify(ctx context.Context, req VerifyLabelRequest) (*models.VerificationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerificationResult), args.Error(1)
}

type MockVerificationLogRepository struct {
	mock.Mock
}

func (m *MockVerificationLogRepository) Create(ctx context.Context, entry *models.VerificationLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) UploadImage(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, objectName, reader, objectSize, contentType)
	return args.Error(0)
}

func (m *MockImageStore) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// harness wires the real services over the in-memory stores.
type harness struct {
	stock      *memInventoryRepo
	topology   *fakeTopology
	tasks      *memTaskRepo
	shipments  *memShipmentRepo
	approvals  *memApprovalRepo
	notifier   *MockNotificationSink
	users      *MockUserRepository
	ledger     InventoryLedger
	allocator  LocationAllocator
	aggregator ShipmentAggregator
	orch       TaskOrchestrator
	committer  ApprovalCommitter
	workflow   ApprovalWorkflow
	router     VerificationRouter
}

func newHarness() *harness {
	h := &harness{
		stock:     newMemInventoryRepo(),
		tasks:     newMemTaskRepo(),
		shipments: newMemShipmentRepo(),
		approvals: newMemApprovalRepo(),
		notifier:  new(MockNotificationSink),
		users:     new(MockUserRepository),
	}
	h.topology = newFakeTopology(h.stock)
	locker := locking.NewLocalLocker()
	h.ledger = NewInventoryLedger(h.stock, locker)
	h.allocator = NewLocationAllocator(h.ledger, h.topology)
	h.aggregator = NewShipmentAggregator(h.shipments)
	h.orch = NewTaskOrchestrator(h.tasks, h.shipments, h.ledger, h.topology, h.aggregator, locker)
	h.committer = NewReceiveCommitter(h.shipments, h.allocator, h.ledger, h.topology, h.orch, h.aggregator)
	h.workflow = NewApprovalWorkflow(h.approvals, h.users, h.committer, h.notifier, locker)
	h.router = NewVerificationRouter(h.allocator, h.ledger, h.topology, h.orch, h.workflow, h.shipments)
	return h
}

func intPtr(v int) *int { return &v }

var errBoom = errors.New("boom")

// seed lays out Zone A with bins 1 (capacity 10) and 2 (capacity 20) and a
// single SKU 7.
func (h *harness) seed() {
	h.topology.addZone(1, "Zone A")
	h.topology.addBin(1, 1, "A-01", intPtr(10))
	h.topology.addBin(2, 1, "A-02", intPtr(20))
	color := "Blue"
	h.topology.skus[7] = &models.Sku{ID: 7, SkuCode: "SKU-7", ProductCode: "P-7", ProductName: "Widget", Color: &color}
}

// allowNotifications lets approvals notify a single supervisor without
// asserting on the calls.
func (h *harness) allowNotifications() {
	h.users.On("ListByRole", mock.Anything, models.RoleSupervisor).
		Return([]*models.User{{ID: 99, Role: models.RoleSupervisor}}, nil).Maybe()
	h.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return().Maybe()
}
