package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wmscore/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CacheService caches slow-changing topology and catalog records.
// Stock quantities are never cached.
type CacheService interface {
	GetBin(ctx context.Context, binID int64) (*models.Bin, error)
	SetBin(ctx context.Context, bin *models.Bin, ttl time.Duration) error
	DeleteBin(ctx context.Context, binID int64) error

	GetZone(ctx context.Context, zoneID int64) (*models.Zone, error)
	SetZone(ctx context.Context, zone *models.Zone, ttl time.Duration) error

	GetSku(ctx context.Context, skuID int64) (*models.Sku, error)
	SetSku(ctx context.Context, sku *models.Sku, ttl time.Duration) error

	InvalidateTopology(ctx context.Context) error
}

type redisCacheService struct {
	client redis.UniversalClient
}

// NewRedisClient parses a redis:// URL and checks connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info().Str("addr", opts.Addr).Msg("redis connection established")
	return client, nil
}

func NewRedisCacheService(client redis.UniversalClient) CacheService {
	return &redisCacheService{client: client}
}

func binKey(binID int64) string   { return fmt.Sprintf("wms:topology:bin:%d", binID) }
func zoneKey(zoneID int64) string { return fmt.Sprintf("wms:topology:zone:%d", zoneID) }
func skuKey(skuID int64) string   { return fmt.Sprintf("wms:catalog:sku:%d", skuID) }

func (r *redisCacheService) GetBin(ctx context.Context, binID int64) (*models.Bin, error) {
	var bin models.Bin
	found, err := r.get(ctx, binKey(binID), &bin)
	if err != nil || !found {
		return nil, err
	}
	return &bin, nil
}

func (r *redisCacheService) SetBin(ctx context.Context, bin *models.Bin, ttl time.Duration) error {
	return r.set(ctx, binKey(bin.ID), bin, ttl)
}

func (r *redisCacheService) DeleteBin(ctx context.Context, binID int64) error {
	return r.client.Del(ctx, binKey(binID)).Err()
}

func (r *redisCacheService) GetZone(ctx context.Context, zoneID int64) (*models.Zone, error) {
	var zone models.Zone
	found, err := r.get(ctx, zoneKey(zoneID), &zone)
	if err != nil || !found {
		return nil, err
	}
	return &zone, nil
}

func (r *redisCacheService) SetZone(ctx context.Context, zone *models.Zone, ttl time.Duration) error {
	return r.set(ctx, zoneKey(zone.ID), zone, ttl)
}

func (r *redisCacheService) GetSku(ctx context.Context, skuID int64) (*models.Sku, error) {
	var sku models.Sku
	found, err := r.get(ctx, skuKey(skuID), &sku)
	if err != nil || !found {
		return nil, err
	}
	return &sku, nil
}

func (r *redisCacheService) SetSku(ctx context.Context, sku *models.Sku, ttl time.Duration) error {
	return r.set(ctx, skuKey(sku.ID), sku, ttl)
}

// InvalidateTopology drops every cached bin and zone.
func (r *redisCacheService) InvalidateTopology(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, "wms:topology:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// get reports found=false on a cache miss.
func (r *redisCacheService) get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}
