package services

import (
	"context"
	"time"

	"wmscore/internal/caching"
	"wmscore/internal/models"
	"wmscore/internal/repositories"

	"github.com/rs/zerolog/log"
)

// TopologyService reads zones, bins and SKUs, consulting the cache first.
// Bin occupancy always comes from the database.
type TopologyService interface {
	GetBin(ctx context.Context, binID int64) (*models.Bin, error)
	GetZone(ctx context.Context, zoneID int64) (*models.Zone, error)
	GetSku(ctx context.Context, skuID int64) (*models.Sku, error)
	FirstBin(ctx context.Context) (*models.Bin, error)
	ListZoneBinUsage(ctx context.Context, zoneID, skuID int64) ([]*models.BinUsage, error)
}

type topologyService struct {
	topologyRepo repositories.TopologyRepository
	skuRepo      repositories.SkuRepository
	cacheService caching.CacheService
	ttl          time.Duration
}

// NewTopologyService builds the service. cacheService may be nil.
func NewTopologyService(topologyRepo repositories.TopologyRepository, skuRepo repositories.SkuRepository,
	cacheService caching.CacheService, ttl time.Duration) TopologyService {
	return &topologyService{
		topologyRepo: topologyRepo,
		skuRepo:      skuRepo,
		cacheService: cacheService,
		ttl:          ttl,
	}
}

func (s *topologyService) GetBin(ctx context.Context, binID int64) (*models.Bin, error) {
	if s.cacheService != nil {
		if bin, err := s.cacheService.GetBin(ctx, binID); err != nil {
			log.Warn().Err(err).Int64("bin_id", binID).Msg("bin cache read failed")
		} else if bin != nil {
			return bin, nil
		}
	}

	bin, err := s.topologyRepo.GetBin(ctx, binID)
	if err != nil {
		return nil, err
	}
	if s.cacheService != nil {
		if err := s.cacheService.SetBin(ctx, bin, s.ttl); err != nil {
			log.Warn().Err(err).Int64("bin_id", binID).Msg("bin cache write failed")
		}
	}
	return bin, nil
}

func (s *topologyService) GetZone(ctx context.Context, zoneID int64) (*models.Zone, error) {
	if s.cacheService != nil {
		if zone, err := s.cacheService.GetZone(ctx, zoneID); err != nil {
			log.Warn().Err(err).Int64("zone_id", zoneID).Msg("zone cache read failed")
		} else if zone != nil {
			return zone, nil
		}
	}

	zone, err := s.topologyRepo.GetZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	if s.cacheService != nil {
		if err := s.cacheService.SetZone(ctx, zone, s.ttl); err != nil {
			log.Warn().Err(err).Int64("zone_id", zoneID).Msg("zone cache write failed")
		}
	}
	return zone, nil
}

func (s *topologyService) GetSku(ctx context.Context, skuID int64) (*models.Sku, error) {
	if s.cacheService != nil {
		if sku, err := s.cacheService.GetSku(ctx, skuID); err != nil {
			log.Warn().Err(err).Int64("sku_id", skuID).Msg("sku cache read failed")
		} else if sku != nil {
			return sku, nil
		}
	}

	sku, err := s.skuRepo.GetByID(ctx, skuID)
	if err != nil {
		return nil, err
	}
	if s.cacheService != nil {
		if err := s.cacheService.SetSku(ctx, sku, s.ttl); err != nil {
			log.Warn().Err(err).Int64("sku_id", skuID).Msg("sku cache write failed")
		}
	}
	return sku, nil
}

func (s *topologyService) FirstBin(ctx context.Context) (*models.Bin, error) {
	return s.topologyRepo.FirstBin(ctx)
}

func (s *topologyService) ListZoneBinUsage(ctx context.Context, zoneID, skuID int64) ([]*models.BinUsage, error) {
	return s.topologyRepo.ListZoneBinUsage(ctx, zoneID, skuID)
}
