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

// ApprovalCommitter performs the inventory commitment that follows an approval.
type ApprovalCommitter interface {
	CommitApproved(ctx context.Context, approval *models.Approval) error
}

// ApprovalWorkflow is the supervisor review state machine:
// PENDING -> APPROVED or PENDING -> REJECTED, both terminal.
type ApprovalWorkflow interface {
	// Open stores approval as PENDING and notifies supervisors. An item has at
	// most one PENDING approval: when one exists, approval is filled with it and
	// Open reports false.
	Open(ctx context.Context, approval *models.Approval) (bool, error)
	Get(ctx context.Context, approvalID int64) (*models.Approval, error)
	ListPending(ctx context.Context) ([]*models.Approval, error)
	// Approve decides the approval and then runs the committer. If the
	// commit fails the approval returns to PENDING.
	Approve(ctx context.Context, approvalID, supervisorID int64) (*models.Approval, error)
	Reject(ctx context.Context, approvalID, supervisorID int64, reason string) (*models.Approval, error)
}

type approvalWorkflow struct {
	approvalRepo repositories.ApprovalRepository
	userRepo     repositories.UserRepository
	committer    ApprovalCommitter
	notifier     NotificationSink
	locker       locking.Locker
	now          func() time.Time
}

func NewApprovalWorkflow(approvalRepo repositories.ApprovalRepository, userRepo repositories.UserRepository,
	committer ApprovalCommitter, notifier NotificationSink, locker locking.Locker) ApprovalWorkflow {
	return &approvalWorkflow{
		approvalRepo: approvalRepo,
		userRepo:     userRepo,
		committer:    committer,
		notifier:     notifier,
		locker:       locker,
		now:          time.Now,
	}
}

func (w *approvalWorkflow) Open(ctx context.Context, approval *models.Approval) (bool, error) {
	unlock, err := w.locker.Lock(ctx, locking.ItemKey(approval.ShipmentItemID))
	if err != nil {
		return false, err
	}
	defer unlock()

	existing, err := w.approvalRepo.GetPendingForItem(ctx, approval.ShipmentItemID)
	switch {
	case err == nil:
		*approval = *existing
		return false, nil
	case !errors.Is(err, common.ErrNotFound):
		return false, err
	}

	approval.Status = models.ApprovalPending
	if approval.Type == "" {
		approval.Type = models.ApprovalTypeVerificationMismatch
	}
	if err := w.approvalRepo.Create(ctx, approval); err != nil {
		return false, err
	}
	w.notifySupervisors(ctx, approval)
	return true, nil
}

func (w *approvalWorkflow) Get(ctx context.Context, approvalID int64) (*models.Approval, error) {
	return w.approvalRepo.GetByID(ctx, approvalID)
}

func (w *approvalWorkflow) ListPending(ctx context.Context) ([]*models.Approval, error) {
	return w.approvalRepo.ListPending(ctx, w.now())
}

func (w *approvalWorkflow) Approve(ctx context.Context, approvalID, supervisorID int64) (*models.Approval, error) {
	unlock, err := w.locker.Lock(ctx, locking.ApprovalKey(approvalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Holding the item keeps Open from adding a second PENDING approval while
	// this one may still be reopened.
	current, err := w.approvalRepo.GetByID(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	unlockItem, err := w.locker.Lock(ctx, locking.ItemKey(current.ShipmentItemID))
	if err != nil {
		return nil, err
	}
	defer unlockItem()

	approval, err := w.decide(ctx, approvalID, supervisorID, models.ApprovalApproved, "")
	if err != nil {
		return nil, err
	}

	if err := w.committer.CommitApproved(ctx, approval); err != nil {
		ok, revertErr := w.approvalRepo.Decide(ctx, approval.ID, models.ApprovalApproved, models.ApprovalPending, nil, nil, approval.Reason)
		if revertErr != nil || !ok {
			log.Error().Err(revertErr).Int64("approval_id", approval.ID).Msg("failed to reopen approval after commit failure")
		}
		return nil, fmt.Errorf("commit approval %d: %w", approval.ID, err)
	}

	log.Info().Int64("approval_id", approval.ID).Int64("supervisor_id", supervisorID).Msg("approval granted")
	return approval, nil
}

func (w *approvalWorkflow) Reject(ctx context.Context, approvalID, supervisorID int64, reason string) (*models.Approval, error) {
	unlock, err := w.locker.Lock(ctx, locking.ApprovalKey(approvalID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	approval, err := w.decide(ctx, approvalID, supervisorID, models.ApprovalRejected, reason)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("approval_id", approval.ID).Int64("supervisor_id", supervisorID).Msg("approval rejected")
	return approval, nil
}

// decide moves a PENDING approval to status with a compare-and-set.
func (w *approvalWorkflow) decide(ctx context.Context, approvalID, supervisorID int64, status models.ApprovalStatus, rejection string) (*models.Approval, error) {
	approval, err := w.approvalRepo.GetByID(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if approval.Status != models.ApprovalPending {
		return nil, approvalStateError(approval)
	}

	reason := approval.Reason
	if rejection != "" {
		reason += " | Rejection reason: " + rejection
	}
	reviewedAt := w.now()
	ok, err := w.approvalRepo.Decide(ctx, approvalID, models.ApprovalPending, status, &supervisorID, &reviewedAt, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := w.approvalRepo.GetByID(ctx, approvalID)
		if err != nil {
			return nil, err
		}
		return nil, approvalStateError(current)
	}

	approval.Status = status
	approval.Reason = reason
	approval.ReviewedByID = &supervisorID
	approval.ReviewedAt = &reviewedAt
	return approval, nil
}

func (w *approvalWorkflow) notifySupervisors(ctx context.Context, approval *models.Approval) {
	supervisors, err := w.userRepo.ListByRole(ctx, models.RoleSupervisor)
	if err != nil {
		log.Warn().Err(err).Int64("approval_id", approval.ID).Msg("could not load supervisors to notify")
		return
	}
	recipients := make([]int64, 0, len(supervisors))
	for _, u := range supervisors {
		recipients = append(recipients, u.ID)
	}
	message := fmt.Sprintf("Shipment item %d needs review: %s", approval.ShipmentItemID, approval.Reason)
	w.notifier.Notify(ctx, recipients, "New Approval Request", message, models.NotificationCategoryApproval, &approval.ID)
}

func approvalStateError(approval *models.Approval) error {
	return &common.StateError{Entity: "approval", ID: approval.ID, Current: string(approval.Status)}
}
