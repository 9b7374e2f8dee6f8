package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrBadMessage indica payload que não decodifica no tipo esperado.
var ErrBadMessage = errors.New("kafka: bad message payload")

type Writer = kafka.Writer
type Reader = kafka.Reader

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// NewTailReader cria um reader sem consumer group na partição 0 do tópico,
// começando backlog mensagens antes do fim. Cada instância lê tudo, sem
// dividir o tópico e sem commit, e reconstrói o histórico recente ao subir.
func NewTailReader(ctx context.Context, brokers []string, topic string, backlog int64) (*kafka.Reader, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers not provided")
	}
	conn, err := kafka.DialLeader(ctx, "tcp", brokers[0], topic, 0)
	if err != nil {
		return nil, fmt.Errorf("dial leader %s: %w", topic, err)
	}
	first, last, err := conn.ReadOffsets()
	_ = conn.Close()
	if err != nil {
		return nil, fmt.Errorf("read offsets %s: %w", topic, err)
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if err := r.SetOffset(tailOffset(first, last, backlog)); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("set offset %s: %w", topic, err)
	}
	return r, nil
}

// tailOffset devolve last-backlog limitado ao primeiro offset retido.
func tailOffset(first, last, backlog int64) int64 {
	if backlog < 0 {
		backlog = 0
	}
	start := last - backlog
	if start < first {
		start = first
	}
	return start
}

// WriteJSON serializa v e envia como uma mensagem com a chave dada.
func WriteJSON(ctx context.Context, w *kafka.Writer, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode kafka message: %w", err)
	}
	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	})
}

// ReadJSON lê a próxima mensagem do reader e decodifica em dst.
// Mensagens inválidas retornam ErrBadMessage e podem ser puladas.
func ReadJSON(ctx context.Context, r *kafka.Reader, dst any) (key []byte, err error) {
	m, err := r.ReadMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("read kafka message: %w", err)
	}
	if err := json.Unmarshal(m.Value, dst); err != nil {
		return m.Key, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	return m.Key, nil
}
