package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/racing-odds-monitor/internal/shared/kafka"
	"github.com/radieske/racing-odds-monitor/pkg/contracts/events"
)

// Recent guarda os últimos alertas recebidos, do mais novo para o mais antigo.
type Recent struct {
	mu    sync.RWMutex
	limit int
	items []events.AlertRaised
}

func NewRecent(limit int) *Recent {
	if limit <= 0 {
		limit = 50
	}
	return &Recent{limit: limit}
}

func (r *Recent) Add(a events.AlertRaised) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append([]events.AlertRaised{a}, r.items...)
	if len(r.items) > r.limit {
		r.items = r.items[:r.limit]
	}
}

// List devolve uma cópia; date != "" filtra pelo dia observado.
func (r *Recent) List(date string) []events.AlertRaised {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]events.AlertRaised, 0, len(r.items))
	for _, a := range r.items {
		if date == "" || a.ObservedDate == date {
			out = append(out, a)
		}
	}
	return out
}

// Consumer lê o tópico de alertas e alimenta Recent e os callbacks.
type Consumer struct {
	Log    *zap.Logger
	Reader *kafka.Reader
	Recent *Recent

	OnAlert func(events.AlertRaised) // broadcast WS
	OnError func(stage string)       // métricas
}

// Run consome até o contexto ser cancelado.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		var a events.AlertRaised
		_, err := kafka.ReadJSON(ctx, c.Reader, &a)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, kafka.ErrBadMessage) {
				c.Log.Warn("invalid alert message", zap.Error(err))
				c.fail("decode")
				continue
			}
			c.Log.Warn("kafka read failed", zap.Error(err))
			c.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		c.Recent.Add(a)
		if c.OnAlert != nil {
			c.OnAlert(a)
		}
	}
}

func (c *Consumer) fail(stage string) {
	if c.OnError != nil {
		c.OnError(stage)
	}
}
