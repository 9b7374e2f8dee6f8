package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger guarda um SET por dia em "<prefix>:<date>".
type RedisLedger struct {
	Client *redis.Client
	Prefix string
	// TTL > 0 expira o SET do dia; 0 mantém para sempre.
	TTL time.Duration
}

func NewRedisLedger(c *redis.Client, prefix string, ttl time.Duration) *RedisLedger {
	if prefix == "" {
		prefix = "racing:ledger"
	}
	return &RedisLedger{Client: c, Prefix: prefix, TTL: ttl}
}

func (l *RedisLedger) key(date string) string { return l.Prefix + ":" + date }

func (l *RedisLedger) FilterNew(ctx context.Context, names []string, date string) ([]string, error) {
	names = dedupe(names)
	if len(names) == 0 {
		return []string{}, nil
	}
	members := make([]any, len(names))
	for i, n := range names {
		members[i] = ledgerKey(n)
	}
	present, err := l.Client.SMIsMember(ctx, l.key(date), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: smismember: %v", ErrLedgerUnavailable, err)
	}
	out := []string{}
	for i, n := range names {
		if !present[i] {
			out = append(out, n)
		}
	}
	return out, nil
}

func (l *RedisLedger) Record(ctx context.Context, names []string, date string) error {
	_, err := l.Claim(ctx, names, date)
	return err
}

// Claim executa um SADD por nome dentro de MULTI/EXEC; o retorno 1 de cada
// SADD indica que o nome foi registrado agora.
func (l *RedisLedger) Claim(ctx context.Context, names []string, date string) ([]string, error) {
	names = dedupe(names)
	if len(names) == 0 {
		return []string{}, nil
	}
	key := l.key(date)

	cmds := make([]*redis.IntCmd, len(names))
	_, err := l.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for i, n := range names {
			cmds[i] = p.SAdd(ctx, key, ledgerKey(n))
		}
		if l.TTL > 0 {
			p.Expire(ctx, key, l.TTL)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: sadd: %v", ErrLedgerUnavailable, err)
	}

	out := []string{}
	for i, c := range cmds {
		if c.Val() == 1 {
			out = append(out, names[i])
		}
	}
	return out, nil
}
