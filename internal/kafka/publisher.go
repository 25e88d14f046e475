package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"paystack-service/internal/message"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// WebhookPublisher hands raw webhook deliveries to the queue topic.
type WebhookPublisher struct {
	writer MessageWriter
	now    func() time.Time
}

func NewWebhookPublisher(writer MessageWriter) *WebhookPublisher {
	return &WebhookPublisher{writer: writer, now: time.Now}
}

func (p *WebhookPublisher) Publish(ctx context.Context, body []byte, signature string) error {
	delivery := message.WebhookDelivery{
		ID:         uuid.New(),
		Signature:  signature,
		Body:       body,
		ReceivedAt: p.now().UTC(),
	}

	value, err := json.Marshal(delivery)
	if err != nil {
		return errors.Wrap(err, "marshal webhook delivery")
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(delivery.ID.String()),
		Value: value,
	})
	return errors.Wrap(err, "publish webhook delivery")
}
