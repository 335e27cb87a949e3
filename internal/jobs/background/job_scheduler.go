package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wmscore/internal/models"
	"wmscore/internal/repositories"
	"wmscore/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

type SchedulerConfig struct {
	ReconcileInterval        time.Duration
	ApprovalReminderInterval time.Duration
	ApprovalReminderAge      time.Duration
}

// JobScheduler runs the periodic housekeeping jobs: re-deriving shipment
// completion missed by a failed status write, and reminding supervisors of
// approvals left pending.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	shipmentRepo repositories.ShipmentRepository
	aggregator   services.ShipmentAggregator
	approvalRepo repositories.ApprovalRepository
	userRepo     repositories.UserRepository
	notifier     services.NotificationSink
	cfg          SchedulerConfig
	jobs         map[string]gocron.Job
	mu           sync.RWMutex
	now          func() time.Time
}

func NewJobScheduler(cfg SchedulerConfig, shipmentRepo repositories.ShipmentRepository, aggregator services.ShipmentAggregator,
	approvalRepo repositories.ApprovalRepository, userRepo repositories.UserRepository, notifier services.NotificationSink) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		shipmentRepo: shipmentRepo,
		aggregator:   aggregator,
		approvalRepo: approvalRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		cfg:          cfg,
		jobs:         make(map[string]gocron.Job),
		now:          time.Now,
	}
	if err := js.registerJobs(); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	log.Info().Int("jobs", len(js.JobNames())).Msg("starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	log.Info().Msg("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// JobNames lists the registered jobs.
func (js *JobScheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()
	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}

func (js *JobScheduler) registerJobs() error {
	if js.cfg.ReconcileInterval > 0 {
		if err := js.register("shipment-reconcile", js.cfg.ReconcileInterval, func() {
			js.ReconcileShipments(context.Background())
		}); err != nil {
			return err
		}
	}
	if js.cfg.ApprovalReminderInterval > 0 {
		if err := js.register("approval-reminder", js.cfg.ApprovalReminderInterval, func() {
			js.RemindPendingApprovals(context.Background())
		}); err != nil {
			return err
		}
	}
	return nil
}

func (js *JobScheduler) register(name string, every time.Duration, task func()) error {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
	return nil
}

// ReconcileShipments recomputes completion for every open shipment and
// returns how many were completed.
func (js *JobScheduler) ReconcileShipments(ctx context.Context) int {
	shipments, err := js.shipmentRepo.ListOpen(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list open shipments")
		return 0
	}

	completed := 0
	for _, s := range shipments {
		if js.aggregator.Recompute(ctx, s.ID, s.ShipmentType) {
			completed++
		}
	}
	if completed > 0 {
		log.Info().Int("completed", completed).Int("open", len(shipments)).Msg("shipment reconcile finished")
	}
	return completed
}

// RemindPendingApprovals notifies supervisors about approvals pending longer
// than the configured age and returns how many were reminded.
func (js *JobScheduler) RemindPendingApprovals(ctx context.Context) int {
	cutoff := js.now().Add(-js.cfg.ApprovalReminderAge)
	stale, err := js.approvalRepo.ListPending(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to list pending approvals")
		return 0
	}
	if len(stale) == 0 {
		return 0
	}

	supervisors, err := js.userRepo.ListByRole(ctx, models.RoleSupervisor)
	if err != nil {
		log.Error().Err(err).Msg("failed to load supervisors for approval reminder")
		return 0
	}
	recipients := make([]int64, 0, len(supervisors))
	for _, u := range supervisors {
		recipients = append(recipients, u.ID)
	}
	if len(recipients) == 0 {
		log.Warn().Int("pending", len(stale)).Msg("no supervisors to remind")
		return 0
	}

	for _, a := range stale {
		message := fmt.Sprintf("Approval %d for shipment item %d has been waiting since %s: %s",
			a.ID, a.ShipmentItemID, a.RequestedAt.Format(time.RFC3339), a.Reason)
		js.notifier.Notify(ctx, recipients, "Approval Request Waiting", message, models.NotificationCategoryApproval, &a.ID)
	}
	return len(stale)
}
