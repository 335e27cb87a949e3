package services

import (
	"context"

	"wmscore/internal/common"
	"wmscore/internal/models"
	"wmscore/internal/repositories"

	"github.com/rs/zerolog/log"
)

// claimItem moves item from status from to status to with a compare-and-set.
// It fails with a StateError when the item is no longer in from.
func claimItem(ctx context.Context, repo repositories.ShipmentRepository, item *models.ShipmentItem, from, to string) error {
	ok, err := repo.TransitionItemStatus(ctx, item.ID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		current, err := repo.GetItem(ctx, item.ID)
		if err != nil {
			return err
		}
		return itemStateError(current)
	}
	item.Status = to
	return nil
}

// releaseItem hands a claimed item back after the work that followed the
// claim failed.
func releaseItem(ctx context.Context, repo repositories.ShipmentRepository, item *models.ShipmentItem, to string) {
	ok, err := repo.TransitionItemStatus(ctx, item.ID, item.Status, to)
	if err != nil || !ok {
		log.Error().Err(err).Int64("item_id", item.ID).Str("from", item.Status).Str("to", to).Msg("failed to release shipment item")
		return
	}
	item.Status = to
}

func itemStateError(item *models.ShipmentItem) error {
	return &common.StateError{Entity: "shipment item", ID: item.ID, Current: item.Status}
}
