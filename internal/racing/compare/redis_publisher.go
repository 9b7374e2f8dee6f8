package compare

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/racing-odds-monitor/pkg/contracts/events"
	"github.com/radieske/racing-odds-monitor/pkg/contracts/topics"
)

// RedisPublisher guarda a última comparação do dia (com TTL) e a difunde
// no canal pub/sub lido pelo monitor-api.
type RedisPublisher struct {
	Client  *redis.Client
	Channel string
	TTL     time.Duration
}

func NewRedisPublisher(c *redis.Client, channel string, ttl time.Duration) *RedisPublisher {
	if channel == "" {
		channel = topics.ComparisonBroadcast
	}
	return &RedisPublisher{Client: c, Channel: channel, TTL: ttl}
}

// LatestKey é a chave da última comparação de um dia.
func LatestKey(date string) string { return topics.ComparisonKeyPrefix + date }

func (p *RedisPublisher) PublishComparison(ctx context.Context, e events.ComparisonUpdated) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := p.Client.Set(ctx, LatestKey(e.ObservedDate), b, p.TTL).Err(); err != nil {
		return fmt.Errorf("cache comparison: %w", err)
	}
	if err := p.Client.Publish(ctx, p.Channel, b).Err(); err != nil {
		return fmt.Errorf("broadcast comparison: %w", err)
	}
	return nil
}

// LoadLatest lê a última comparação do dia; ok=false quando não existe.
func LoadLatest(ctx context.Context, c *redis.Client, date string) (events.ComparisonUpdated, bool, error) {
	var out events.ComparisonUpdated
	b, err := c.Get(ctx, LatestKey(date)).Bytes()
	if err == redis.Nil {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	return out, true, json.Unmarshal(b, &out)
}
