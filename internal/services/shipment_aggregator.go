package services

import (
	"context"

	"wmscore/internal/models"
	"wmscore/internal/repositories"

	"github.com/rs/zerolog/log"
)

// ShipmentAggregator derives a shipment's status from its items.
type ShipmentAggregator interface {
	// Recompute marks the shipment COMPLETED once every item reached the
	// terminal status for direction. It never returns an error: persistence
	// failures are logged so the triggering operation is not rolled back.
	Recompute(ctx context.Context, shipmentID int64, direction models.ShipmentType) bool
}

type shipmentAggregator struct {
	shipmentRepo repositories.ShipmentRepository
}

func NewShipmentAggregator(shipmentRepo repositories.ShipmentRepository) ShipmentAggregator {
	return &shipmentAggregator{shipmentRepo: shipmentRepo}
}

func (a *shipmentAggregator) Recompute(ctx context.Context, shipmentID int64, direction models.ShipmentType) bool {
	logger := log.With().Int64("shipment_id", shipmentID).Str("direction", string(direction)).Logger()

	shipment, err := a.shipmentRepo.GetByID(ctx, shipmentID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load shipment for completion check")
		return false
	}
	if shipment.Status == models.ShipmentStatusCompleted {
		return true
	}
	if shipment.ShipmentType != direction {
		logger.Warn().Str("shipment_type", string(shipment.ShipmentType)).Msg("completion check skipped for opposite direction")
		return false
	}

	items, err := a.shipmentRepo.ListItems(ctx, shipmentID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load shipment items for completion check")
		return false
	}
	if len(items) == 0 {
		return false
	}
	terminal := direction.TerminalItemStatus()
	for _, item := range items {
		if item.Status != terminal {
			return false
		}
	}

	if err := a.shipmentRepo.UpdateStatus(ctx, shipmentID, models.ShipmentStatusCompleted); err != nil {
		logger.Error().Err(err).Msg("failed to mark shipment completed")
		return false
	}
	logger.Info().Msg("shipment completed")
	return true
}
