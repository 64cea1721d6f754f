package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TicketCodeSequence hands out per-day counters for ticket codes.
type TicketCodeSequence interface {
	Next(ctx context.Context, day time.Time) (int64, error)
}

type redisCodeSequence struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCodeSequence keeps one INCR key per calendar day.
func NewRedisCodeSequence(client *redis.Client) TicketCodeSequence {
	return &redisCodeSequence{client: client, ttl: 48 * time.Hour}
}

func (s *redisCodeSequence) Next(ctx context.Context, day time.Time) (int64, error) {
	if s.client == nil {
		return 0, errors.New("redis client not configured")
	}
	key := "repair:ticket-code:" + day.Format("20060102")
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
