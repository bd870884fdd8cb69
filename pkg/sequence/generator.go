package sequence

import (
	"context"
	"fmt"
	"time"

	"talentflow/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

type Generator interface {
	NextInvoiceCode(ctx context.Context) (string, error)
	NextPayoutBatchCode(ctx context.Context) (string, error)
}

type RedisGenerator struct {
	rdb *redis.Client
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
	}
}

// NextInvoiceCode returns a yearly sequenced invoice number, e.g. INV-2025-0012.
func (g *RedisGenerator) NextInvoiceCode(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()
	key := rediskey.BuildInvoiceSeqKey(year)

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("INV-%d-%04d", year, seq), nil
}

// NextPayoutBatchCode returns a daily sequenced payout batch code, e.g. PAY-250901-003.
func (g *RedisGenerator) NextPayoutBatchCode(ctx context.Context) (string, error) {
	today := time.Now().UTC().Format("060102")
	key := rediskey.BuildPayoutSeqKey(today)

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	if seq == 1 {
		expire := time.Until(time.Now().UTC().Truncate(24 * time.Hour).Add(24*time.Hour - time.Second))
		_ = g.rdb.Expire(ctx, key, expire).Err()
	}

	return fmt.Sprintf("PAY-%s-%03d", today, seq), nil
}
