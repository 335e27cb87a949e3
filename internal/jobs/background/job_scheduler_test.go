package background

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"wmscore/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) GetByID(ctx context.Context, id int64) (*models.Shipment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockShipmentRepository) ListOpen(ctx context.Context) ([]*models.Shipment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) GetItem(ctx context.Context, id int64) (*models.ShipmentItem, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.ShipmentItem), args.Error(1)
}

func (m *MockShipmentRepository) ListItems(ctx context.Context, shipmentID int64) ([]*models.ShipmentItem, error) {
	args := m.Called(ctx, shipmentID)
	return args.Get(0).([]*models.ShipmentItem), args.Error(1)
}

func (m *MockShipmentRepository) TransitionItemStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockShipmentRepository) CountItems(ctx context.Context, shipmentType models.ShipmentType, status string) (int, error) {
	args := m.Called(ctx, shipmentType, status)
	return args.Int(0), args.Error(1)
}

type MockAggregator struct {
	mock.Mock
}

func (m *MockAggregator) Recompute(ctx context.Context, shipmentID int64, direction models.ShipmentType) bool {
	return m.Called(ctx, shipmentID, direction).Bool(0)
}

type MockApprovalRepository struct {
	mock.Mock
}

func (m *MockApprovalRepository) Create(ctx context.Context, approval *models.Approval) error {
	return m.Called(ctx, approval).Error(0)
}

func (m *MockApprovalRepository) GetByID(ctx context.Context, id int64) (*models.Approval, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Approval), args.Error(1)
}

func (m *MockApprovalRepository) ListPending(ctx context.Context, requestedBefore time.Time) ([]*models.Approval, error) {
	args := m.Called(ctx, requestedBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Approval), args.Error(1)
}

func (m *MockApprovalRepository) GetPendingForItem(ctx context.Context, itemID int64) (*models.Approval, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Approval), args.Error(1)
}

func (m *MockApprovalRepository) Decide(ctx context.Context, id int64, from, to models.ApprovalStatus, reviewerID *int64, reviewedAt *time.Time, reason string) (bool, error) {
	args := m.Called(ctx, id, from, to, reviewerID, reviewedAt, reason)
	return args.Bool(0), args.Error(1)
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

type MockNotificationSink struct {
	mock.Mock
}

func (m *MockNotificationSink) Notify(ctx context.Context, recipients []int64, title, message, category string, entityID *int64) {
	m.Called(ctx, recipients, title, message, category, entityID)
}

type schedulerMocks struct {
	shipments  *MockShipmentRepository
	aggregator *MockAggregator
	approvals  *MockApprovalRepository
	users      *MockUserRepository
	notifier   *MockNotificationSink
}

func newTestScheduler(t *testing.T, cfg SchedulerConfig) (*JobScheduler, *schedulerMocks) {
	m := &schedulerMocks{
		shipments:  new(MockShipmentRepository),
		aggregator: new(MockAggregator),
		approvals:  new(MockApprovalRepository),
		users:      new(MockUserRepository),
		notifier:   new(MockNotificationSink),
	}
	js, err := NewJobScheduler(cfg, m.shipments, m.aggregator, m.approvals, m.users, m.notifier)
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Stop() })
	return js, m
}

func TestNewJobScheduler_RegistersConfiguredJobs(t *testing.T) {
	js, _ := newTestScheduler(t, SchedulerConfig{
		ReconcileInterval:        time.Hour,
		ApprovalReminderInterval: time.Hour,
	})
	names := js.JobNames()
	sort.Strings(names)
	assert.Equal(t, []string{"approval-reminder", "shipment-reconcile"}, names)

	disabled, _ := newTestScheduler(t, SchedulerConfig{})
	assert.Empty(t, disabled.JobNames())
}

func TestReconcileShipments(t *testing.T) {
	js, m := newTestScheduler(t, SchedulerConfig{})
	m.shipments.On("ListOpen", mock.Anything).Return([]*models.Shipment{
		{ID: 1, ShipmentType: models.ShipmentInbound},
		{ID: 2, ShipmentType: models.ShipmentOutbound},
	}, nil)
	m.aggregator.On("Recompute", mock.Anything, int64(1), models.ShipmentInbound).Return(true)
	m.aggregator.On("Recompute", mock.Anything, int64(2), models.ShipmentOutbound).Return(false)

	assert.Equal(t, 1, js.ReconcileShipments(context.Background()))
	m.aggregator.AssertExpectations(t)
}

func TestReconcileShipments_ListFailure(t *testing.T) {
	js, m := newTestScheduler(t, SchedulerConfig{})
	m.shipments.On("ListOpen", mock.Anything).Return(nil, errors.New("db down"))

	assert.Equal(t, 0, js.ReconcileShipments(context.Background()))
	m.aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemindPendingApprovals(t *testing.T) {
	js, m := newTestScheduler(t, SchedulerConfig{ApprovalReminderAge: 2 * time.Hour})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	js.now = func() time.Time { return now }

	m.approvals.On("ListPending", mock.Anything, now.Add(-2*time.Hour)).Return([]*models.Approval{
		{ID: 3, ShipmentItemID: 30, Reason: "SKU mismatch", RequestedAt: now.Add(-5 * time.Hour)},
	}, nil)
	m.users.On("ListByRole", mock.Anything, models.RoleSupervisor).Return([]*models.User{{ID: 5}, {ID: 6}}, nil)
	m.notifier.On("Notify", mock.Anything, []int64{5, 6}, "Approval Request Waiting",
		"Approval 3 for shipment item 30 has been waiting since 2026-03-01T07:00:00Z: SKU mismatch",
		models.NotificationCategoryApproval, mock.Anything).Return()

	assert.Equal(t, 1, js.RemindPendingApprovals(context.Background()))
	m.notifier.AssertExpectations(t)
}

func TestRemindPendingApprovals_NothingStale(t *testing.T) {
	js, m := newTestScheduler(t, SchedulerConfig{ApprovalReminderAge: time.Hour})
	m.approvals.On("ListPending", mock.Anything, mock.Anything).Return([]*models.Approval{}, nil)

	assert.Equal(t, 0, js.RemindPendingApprovals(context.Background()))
	m.users.AssertNotCalled(t, "ListByRole", mock.Anything, mock.Anything)
}
