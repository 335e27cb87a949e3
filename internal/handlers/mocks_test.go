package handlers

import (
	"context"
	"net/http"
	"strconv"

	"wmscore/internal/common"
	"wmscore/internal/models"
	"wmscore/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
)

type MockTaskOrchestrator struct {
	mock.Mock
}

func (m *MockTaskOrchestrator) CreateTask(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskOrchestrator) GetTask(ctx context.Context, taskID int64) (*models.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskOrchestrator) ListForUser(ctx context.Context, userID int64, taskType models.TaskType) ([]*models.Task, error) {
	args := m.Called(ctx, userID, taskType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Task), args.Error(1)
}

func (m *MockTaskOrchestrator) StartPutaway(ctx context.Context, taskID int64) (*models.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskOrchestrator) CompletePutaway(ctx context.Context, taskID int64, plan []models.BinAllocation) (*models.Task, error) {
	args := m.Called(ctx, taskID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskOrchestrator) CompletePicking(ctx context.Context, taskID, userID int64) (*models.Task, error) {
	args := m.Called(ctx, taskID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskOrchestrator) PutawayStats(ctx context.Context, userID int64) (*models.PutawayStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PutawayStats), args.Error(1)
}

func (m *MockTaskOrchestrator) PickingStats(ctx context.Context, userID int64) (*models.PickingStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickingStats), args.Error(1)
}

type MockApprovalWorkflow struct {
	mock.Mock
}

func (m *MockApprovalWorkflow) Open(ctx context.Context, approval *models.Approval) (bool, error) {
	args := m.Called(ctx, approval)
	return args.Bool(0), args.Error(1)
}

func (m *MockApprovalWorkflow) Get(ctx context.Context, approvalID int64) (*models.Approval, error) {
	args := m.Called(ctx, approvalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Approval), args.Error(1)
}

func (m *MockApprovalWorkflow) ListPending(ctx context.Context) ([]*models.Approval, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Approval), args.Error(1)
}

func (m *MockApprovalWorkflow) Approve(ctx context.Context, approvalID, supervisorID int64) (*models.Approval, error) {
	args := m.Called(ctx, approvalID, supervisorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Approval), args.Error(1)
}

func (m *MockApprovalWorkflow) Reject(ctx context.Context, approvalID, supervisorID int64, reason string) (*models.Approval, error) {
	args := m.Called(ctx, approvalID, supervisorID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Approval), args.Error(1)
}

type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Verify(ctx context.Context, req services.VerifyItemRequest) (*models.VerificationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerificationResponse), args.Error(1)
}

type MockLocationAllocator struct {
	mock.Mock
}

func (m *MockLocationAllocator) Allocate(ctx context.Context, skuID int64, quantity int) (*models.AllocationPlan, error) {
	args := m.Called(ctx, skuID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AllocationPlan), args.Error(1)
}

func (m *MockLocationAllocator) CheckZoneCapacity(ctx context.Context, zoneID, skuID int64) (*models.ZoneCapacity, error) {
	args := m.Called(ctx, zoneID, skuID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ZoneCapacity), args.Error(1)
}

type MockInventoryLedger struct {
	mock.Mock
}

func (m *MockInventoryLedger) Get(ctx context.Context, skuID, binID int64) (int, bool, error) {
	args := m.Called(ctx, skuID, binID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockInventoryLedger) ListBySku(ctx context.Context, skuID int64) ([]*models.InventoryStock, error) {
	args := m.Called(ctx, skuID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.InventoryStock), args.Error(1)
}

func (m *MockInventoryLedger) Add(ctx context.Context, skuID, binID int64, delta int) error {
	args := m.Called(ctx, skuID, binID, delta)
	return args.Error(0)
}

func (m *MockInventoryLedger) Set(ctx context.Context, skuID, binID int64, quantity int) error {
	args := m.Called(ctx, skuID, binID, quantity)
	return args.Error(0)
}

func (m *MockInventoryLedger) Deduct(ctx context.Context, skuID, binID int64, quantity int) error {
	args := m.Called(ctx, skuID, binID, quantity)
	return args.Error(0)
}

func (m *MockInventoryLedger) Transfer(ctx context.Context, fromBinID, toBinID, skuID int64, quantity int) error {
	args := m.Called(ctx, fromBinID, toBinID, skuID, quantity)
	return args.Error(0)
}

type MockNotificationInbox struct {
	mock.Mock
}

func (m *MockNotificationInbox) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *MockNotificationInbox) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

type MockJobRunner struct {
	mock.Mock
}

func (m *MockJobRunner) ReconcileShipments(ctx context.Context) int {
	return m.Called(ctx).Int(0)
}

func (m *MockJobRunner) RemindPendingApprovals(ctx context.Context) int {
	return m.Called(ctx).Int(0)
}

// testAuth stands in for JWT auth: identity comes from X-Test-User and X-Test-Role.
func testAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := strconv.ParseInt(c.Request().Header.Get("X-Test-User"), 10, 64)
		if err != nil {
			return c.NoContent(http.StatusUnauthorized)
		}
		ctx := common.WithIdentity(c.Request().Context(), userID, c.Request().Header.Get("X-Test-Role"))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
