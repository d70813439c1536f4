package persistence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const ticketViewKeyPrefix = "ticket:view:"

// TicketViewCache stores serialized assembled ticket views in Redis. Every
// successful workflow write invalidates the ticket's entry, so reads never
// observe a stale status. All methods tolerate a nil receiver or missing
// client, degrading to cache-off behavior.
type TicketViewCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTicketViewCache builds the cache over an existing Redis wrapper.
func NewTicketViewCache(r *Redis, ttl time.Duration, logger *zap.Logger) *TicketViewCache {
	if r == nil {
		return &TicketViewCache{ttl: ttl, logger: logger}
	}
	return &TicketViewCache{client: r.Client, ttl: ttl, logger: logger}
}

// Get returns the cached view payload for a ticket, or nil on miss.
func (c *TicketViewCache) Get(ctx context.Context, ticketID string) []byte {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := c.client.Get(ctx, ticketViewKeyPrefix+ticketID).Bytes()
	if err != nil {
		return nil
	}
	return payload
}

// Set stores the view payload for a ticket.
func (c *TicketViewCache) Set(ctx context.Context, ticketID string, payload []byte) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, ticketViewKeyPrefix+ticketID, payload, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("ticket view cache set failed", zap.Error(err))
	}
}

// Invalidate drops the cached view for a ticket.
func (c *TicketViewCache) Invalidate(ctx context.Context, ticketID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, ticketViewKeyPrefix+ticketID).Err(); err != nil && c.logger != nil {
		c.logger.Warn("ticket view cache invalidate failed", zap.Error(err))
	}
}
