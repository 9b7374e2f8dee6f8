package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedkafka "github.com/radieske/racing-odds-monitor/internal/shared/kafka"
	"github.com/radieske/racing-odds-monitor/pkg/contracts/events"
)

// KafkaPublisher entrega alertas ao tópico lido pelo notificador.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafkaPublisher cria o writer. Em ambiente local/dev garante o tópico
// via controller do cluster antes de começar.
func NewKafkaPublisher(brokers []string, topic string, env string, log *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not provided")
	}

	if env == "local" || env == "dev" {
		ensureTopic(brokers[0], topic, log)
	}

	writer := sharedkafka.NewWriter(brokers, topic)
	writer.Balancer = kafka.BalancerFunc(firstPartition)
	writer.RequiredAcks = kafka.RequireAll
	writer.BatchTimeout = 10 * time.Millisecond
	writer.WriteTimeout = 10 * time.Second
	return &KafkaPublisher{writer: writer, log: log}, nil
}

func ensureTopic(broker, topic string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		log.Warn("failed to connect to kafka", zap.Error(err))
		return
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		log.Warn("failed to get kafka controller", zap.Error(err))
		return
	}
	cconn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		log.Warn("failed to dial controller", zap.Error(err))
		return
	}
	defer cconn.Close()

	err = cconn.CreateTopics(kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	switch {
	case err == nil:
		log.Info("kafka topic created", zap.String("topic", topic))
	case !strings.Contains(err.Error(), "already exists"):
		log.Warn("failed to create kafka topic", zap.String("topic", topic), zap.Error(err))
	}
}

// firstPartition manda tudo para a partição 0, a única lida pelo feed do
// monitor-api. O volume de alertas é baixo e a ordem global fica preservada.
func firstPartition(_ kafka.Message, partitions ...int) int {
	for _, p := range partitions {
		if p == 0 {
			return 0
		}
	}
	if len(partitions) > 0 {
		return partitions[0]
	}
	return 0
}

// PublishAlert usa a data como chave.
func (p *KafkaPublisher) PublishAlert(ctx context.Context, e events.AlertRaised) error {
	if err := sharedkafka.WriteJSON(ctx, p.writer, e.ObservedDate, e); err != nil {
		p.log.Error("failed to publish alert", zap.String("alert_id", e.AlertID), zap.Error(err))
		return err
	}
	p.log.Debug("published alert", zap.String("alert_id", e.AlertID), zap.Int("horses", len(e.Horses)))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
