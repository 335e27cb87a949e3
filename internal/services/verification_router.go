package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"wmscore/internal/common"
	"wmscore/internal/models"
	"wmscore/internal/repositories"

	"github.com/rs/zerolog/log"
)

// RouteInput is a verification outcome for one shipment item.
type RouteInput struct {
	Item     *models.ShipmentItem
	Shipment *models.Shipment
	Sku      *models.Sku
	WorkerID int64
	Result   models.VerificationResult
}

// VerificationRouter turns a verification outcome into work: a putaway or
// picking task when the label matched, a supervisor approval when it did not.
type VerificationRouter interface {
	Route(ctx context.Context, in RouteInput) (*models.VerificationResponse, error)
}

type verificationRouter struct {
	allocator    LocationAllocator
	ledger       InventoryLedger
	topology     TopologyService
	tasks        TaskOrchestrator
	approvals    ApprovalWorkflow
	shipmentRepo repositories.ShipmentRepository
}

func NewVerificationRouter(allocator LocationAllocator, ledger InventoryLedger, topology TopologyService,
	tasks TaskOrchestrator, approvals ApprovalWorkflow, shipmentRepo repositories.ShipmentRepository) VerificationRouter {
	return &verificationRouter{
		allocator:    allocator,
		ledger:       ledger,
		topology:     topology,
		tasks:        tasks,
		approvals:    approvals,
		shipmentRepo: shipmentRepo,
	}
}

// Route only accepts items that have not been verified yet. A matched item is
// claimed PENDING -> VERIFIED before its task is created, so two concurrent
// verifications of one item cannot both create work.
func (r *verificationRouter) Route(ctx context.Context, in RouteInput) (*models.VerificationResponse, error) {
	if in.Item.Status != models.ItemStatusPending {
		return nil, itemStateError(in.Item)
	}

	if !in.Result.Matched {
		return r.routeMismatch(ctx, in)
	}
	if in.Shipment.ShipmentType == models.ShipmentOutbound {
		return r.routeOutbound(ctx, in)
	}
	return r.routeInbound(ctx, in)
}

func (r *verificationRouter) routeInbound(ctx context.Context, in RouteInput) (*models.VerificationResponse, error) {
	plan, err := r.allocator.Allocate(ctx, in.Item.SkuID, in.Item.Quantity)
	if err != nil {
		if errors.Is(err, common.ErrNoBinAvailable) || errors.Is(err, common.ErrNoZoneAvailable) {
			return unplacedResponse(in, err.Error()), nil
		}
		return nil, err
	}
	if !plan.FullyCovered() {
		msg := fmt.Sprintf("Verification matched but zone capacity is insufficient: %d of %d units can be placed near %s. Manual assignment required.",
			plan.AllocatedQuantity(), plan.Requested, plan.SuggestedLocation)
		return unplacedResponse(in, msg), nil
	}

	task := &models.Task{
		UserID:            in.WorkerID,
		ShipmentItemID:    in.Item.ID,
		TaskType:          models.TaskPutaway,
		SuggestedBinID:    &plan.PrimaryBin.ID,
		SuggestedZoneID:   &plan.ZoneID,
		SuggestedLocation: plan.SuggestedLocation,
		AllocationPlan:    plan.Allocations,
	}
	if err := r.createTaskFor(ctx, in.Item, task); err != nil {
		return nil, err
	}

	location := plan.SuggestedLocation
	if plan.Overflow {
		location = fmt.Sprintf("%s (+%d overflow bins)", location, len(plan.Allocations)-1)
	}
	resp := baseResponse(in)
	resp.Status = models.ResponseSuccess
	resp.Message = "Verification successful. Putaway task created for " + location
	resp.Matched = true
	resp.AutoAssigned = true
	resp.TaskID = &task.ID
	resp.Details.BinLocation = location

	log.Info().Int64("item_id", in.Item.ID).Int64("task_id", task.ID).Str("location", location).Msg("putaway task created")
	return resp, nil
}

func (r *verificationRouter) routeOutbound(ctx context.Context, in RouteInput) (*models.VerificationResponse, error) {
	bin, err := pickSource(ctx, r.ledger, r.topology, in.Item)
	if err != nil {
		return nil, err
	}
	location := bin.FullLocation()

	task := &models.Task{
		UserID:            in.WorkerID,
		ShipmentItemID:    in.Item.ID,
		TaskType:          models.TaskPicking,
		SuggestedBinID:    &bin.ID,
		SuggestedZoneID:   &bin.ZoneID,
		SuggestedLocation: location,
	}
	if err := r.createTaskFor(ctx, in.Item, task); err != nil {
		return nil, err
	}

	resp := baseResponse(in)
	resp.Status = models.ResponseSuccess
	resp.Message = "Verification successful. Picking task created for " + location
	resp.Matched = true
	resp.AutoAssigned = true
	resp.TaskID = &task.ID
	resp.Details.BinLocation = location

	log.Info().Int64("item_id", in.Item.ID).Int64("task_id", task.ID).Str("location", location).Msg("picking task created")
	return resp, nil
}

// createTaskFor claims the item as VERIFIED and creates its task, handing the
// item back to PENDING if the task cannot be stored.
func (r *verificationRouter) createTaskFor(ctx context.Context, item *models.ShipmentItem, task *models.Task) error {
	if err := claimItem(ctx, r.shipmentRepo, item, models.ItemStatusPending, models.ItemStatusVerified); err != nil {
		return err
	}
	if err := r.tasks.CreateTask(ctx, task); err != nil {
		releaseItem(ctx, r.shipmentRepo, item, models.ItemStatusPending)
		return err
	}
	return nil
}

func (r *verificationRouter) routeMismatch(ctx context.Context, in RouteInput) (*models.VerificationResponse, error) {
	extracted, err := json.Marshal(in.Result.Extracted)
	if err != nil {
		return nil, err
	}
	expected, err := json.Marshal(expectedFields(in.Sku))
	if err != nil {
		return nil, err
	}
	reason := strings.Join(in.Result.Issues, ", ")
	if reason == "" {
		reason = "Verification mismatch"
	}

	approval := &models.Approval{
		ShipmentItemID: in.Item.ID,
		RequestedByID:  in.WorkerID,
		Type:           models.ApprovalTypeVerificationMismatch,
		Reason:         reason,
		ExtractedData:  extracted,
		ExpectedData:   expected,
	}
	opened, err := r.approvals.Open(ctx, approval)
	if err != nil {
		return nil, err
	}

	resp := baseResponse(in)
	resp.Status = models.ResponseMismatch
	resp.ApprovalRequestID = &approval.ID
	if !opened {
		resp.Message = fmt.Sprintf("Verification mismatch. Approval %d is already waiting for a supervisor.", approval.ID)
		log.Info().Int64("item_id", in.Item.ID).Int64("approval_id", approval.ID).Msg("approval already pending")
		return resp, nil
	}
	resp.Message = "Verification mismatch. Sent to supervisor for approval."

	log.Info().Int64("item_id", in.Item.ID).Int64("approval_id", approval.ID).Str("reason", reason).Msg("approval opened")
	return resp, nil
}

// unplacedResponse reports a matched label that could not be given a location.
// The item stays unverified so it can be routed again.
func unplacedResponse(in RouteInput, message string) *models.VerificationResponse {
	resp := baseResponse(in)
	resp.Status = models.ResponseMismatch
	resp.Message = message
	resp.Matched = true
	return resp
}

func baseResponse(in RouteInput) *models.VerificationResponse {
	expected := expectedFields(in.Sku)
	got := in.Result.Extracted
	issues := in.Result.Issues
	if issues == nil {
		issues = []string{}
	}
	return &models.VerificationResponse{
		Details: models.VerificationDetails{
			ProductCode: models.FieldPair{Extracted: got.ProductCode, Expected: expected.ProductCode},
			Sku:         models.FieldPair{Extracted: got.SkuCode, Expected: expected.SkuCode},
			Weight:      models.FieldPair{Extracted: got.Weight, Expected: expected.Weight},
			Color:       models.FieldPair{Extracted: got.Color, Expected: expected.Color},
			Dimensions:  models.FieldPair{Extracted: got.Dimensions, Expected: expected.Dimensions},
			Confidence:  in.Result.Confidence,
			Issues:      issues,
		},
	}
}

func expectedFields(sku *models.Sku) models.LabelFields {
	return models.LabelFields{
		ProductCode: sku.ProductCode,
		SkuCode:     sku.SkuCode,
		Weight:      common.SafeString(sku.Weight),
		Color:       common.SafeString(sku.Color),
		Dimensions:  common.SafeString(sku.Dimensions),
	}
}
