package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ecoshop-be/internal/logger"
	"ecoshop-be/internal/metrics"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"go.uber.org/zap"
)

const (
	eventOrderPaid  = "order.paid"
	eventBrandSale  = "brand.sale"
	eventStockAlert = "product.stock_alert"
)

// KafkaNotifier publishes notification requests to a single topic. The
// record key is the idempotency key (order or product id), so the
// consumer side can partition and dedupe deliveries.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),

		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(10 * time.Millisecond),
		kgo.ProducerBatchMaxBytes(1_000_000),
	}

	if os.Getenv("KAFKA_USERNAME") != "" && os.Getenv("KAFKA_PASSWORD") != "" {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: os.Getenv("KAFKA_USERNAME"),
			Pass: os.Getenv("KAFKA_PASSWORD"),
		}.AsMechanism()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &KafkaNotifier{client: client, topic: topic}, nil
}

func (n *KafkaNotifier) OrderPaid(ctx context.Context, event OrderPaidEvent) error {
	return n.publish(ctx, eventOrderPaid, event.OrderID, event)
}

func (n *KafkaNotifier) BrandSale(ctx context.Context, event BrandSaleEvent) error {
	return n.publish(ctx, eventBrandSale, event.OrderID, event)
}

func (n *KafkaNotifier) StockAlert(ctx context.Context, event StockAlertEvent) error {
	return n.publish(ctx, eventStockAlert, event.ProductID, event)
}

func (n *KafkaNotifier) Close() {
	n.client.Close()
}

func (n *KafkaNotifier) publish(ctx context.Context, eventType, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "version", Value: []byte("1.0")},
		},
		Timestamp: time.Now(),
	}

	log := logger.FromCtx(ctx).With(
		zap.String("event_type", eventType),
		zap.String("key", key),
	)

	// Fire-and-forget: delivery failures are logged and counted, never
	// propagated back into the transaction that raised the event.
	n.client.Produce(ctx, record, func(record *kgo.Record, err error) {
		if err != nil {
			metrics.PublishFailures.Inc()
			log.Error("failed to publish notification event", zap.Error(err))
			return
		}
		log.Debug("notification event published",
			zap.Int32("partition", record.Partition),
			zap.Int64("offset", record.Offset),
		)
	})

	return nil
}
