package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/skyhostel/sky_hostel/models"
	"go.uber.org/zap"
)

const statusCacheKeyPrefix = "payments:status:"

// CachedGateway remembers terminal statuses (completed, failed) in Redis so
// repeated polls for a settled reference stop reaching the processor.
// Pending results always go to the processor.
type CachedGateway struct {
	Gateway
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedGateway(next Gateway, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedGateway {
	return &CachedGateway{
		Gateway: next,
		client:  client,
		ttl:     ttl,
		logger:  logger.Named("status_cache"),
	}
}

func (g *CachedGateway) QueryStatus(ctx context.Context, rrr string) (*StatusResult, error) {
	key := statusCacheKeyPrefix + rrr

	data, err := g.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached StatusResult
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			return &cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		g.logger.Warn("Status cache read failed", zap.String("rrr", rrr), zap.Error(err))
	}

	result, err := g.Gateway.QueryStatus(ctx, rrr)
	if err != nil {
		return nil, err
	}

	if result.Status != models.PaymentStatusPending {
		if payload, jsonErr := json.Marshal(result); jsonErr == nil {
			if setErr := g.client.Set(ctx, key, payload, g.ttl).Err(); setErr != nil {
				g.logger.Warn("Status cache write failed", zap.String("rrr", rrr), zap.Error(setErr))
			}
		}
	}
	return result, nil
}
