package messaging

import (
	"context"
	"encoding/json"
	"time"

	"example.com/annapurna/services/donations/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LifecycleEvent is the reconciliation message published when a lifecycle
// transition needs follow-up work on the listing side. Internal plumbing
// only, never a client notification.
type LifecycleEvent struct {
	Type       string    `json:"type"`
	OrderID    uuid.UUID `json:"order_id"`
	ListingID  uuid.UUID `json:"listing_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Event types.
const (
	EventOrderAccepted  = "order_accepted"
	EventOrderDelivered = "order_delivered"
)

// Publisher sends lifecycle events to the queue.
type Publisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
	Close() error
}

// NoopPublisher drops events. Used when no service bus is configured; the
// gocron sweep then carries reconciliation alone.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(ctx context.Context, event LifecycleEvent) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }

// ServiceBusPublisher implements Publisher on Azure Service Bus.
type ServiceBusPublisher struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
}

// NewPublisher creates a publisher for the configured queue. An empty
// connection string yields a NoopPublisher.
func NewPublisher(cfg config.ServiceBusConfig) (Publisher, error) {
	if cfg.ConnectionString == "" {
		log.Warn().Msg("Service bus connection string not provided, lifecycle events will not be published")
		return NoopPublisher{}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &ServiceBusPublisher{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
	}, nil
}

// Publish sends a lifecycle event to the queue.
func (p *ServiceBusPublisher) Publish(ctx context.Context, event LifecycleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal lifecycle event")
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"type": event.Type,
			"time": event.OccurredAt.UTC().Format(time.RFC3339),
		},
	}

	return p.sender.SendMessage(ctx, msg, nil)
}

// Close closes the sender and the client.
func (p *ServiceBusPublisher) Close() error {
	if p.sender != nil {
		if err := p.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if p.client != nil {
		return p.client.Close(context.Background())
	}
	return nil
}

// Processor consumes lifecycle events from the queue.
type Processor struct {
	client   *azservicebus.Client
	receiver *azservicebus.Receiver
}

// NewProcessor creates a queue consumer for the worker.
func NewProcessor(cfg config.ServiceBusConfig) (*Processor, error) {
	if cfg.ConnectionString == "" {
		return nil, errors.New("service bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	receiver, err := client.NewReceiverForQueue(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus receiver")
	}

	return &Processor{client: client, receiver: receiver}, nil
}

// ProcessMessages receives events until ctx is cancelled, invoking handler
// for each. Failed messages are abandoned so the bus redelivers them.
func (p *Processor) ProcessMessages(ctx context.Context, handler func(context.Context, LifecycleEvent) error) error {
	for {
		messages, err := p.receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to receive messages")
		}

		for _, msg := range messages {
			var event LifecycleEvent
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				log.Error().Err(err).Msg("Discarding undecodable lifecycle event")
				if err := p.receiver.DeadLetterMessage(ctx, msg, nil); err != nil {
					log.Error().Err(err).Msg("Failed to dead-letter message")
				}
				continue
			}

			if err := handler(ctx, event); err != nil {
				log.Error().Err(err).Str("type", event.Type).Str("order_id", event.OrderID.String()).
					Msg("Failed to process lifecycle event, abandoning for redelivery")
				if err := p.receiver.AbandonMessage(ctx, msg, nil); err != nil {
					log.Error().Err(err).Msg("Failed to abandon message")
				}
				continue
			}

			if err := p.receiver.CompleteMessage(ctx, msg, nil); err != nil {
				log.Error().Err(err).Msg("Failed to complete message")
			}
		}
	}
}

// Close closes the receiver and the client.
func (p *Processor) Close() error {
	if p.receiver != nil {
		if err := p.receiver.Close(context.Background()); err != nil {
			return err
		}
	}
	if p.client != nil {
		return p.client.Close(context.Background())
	}
	return nil
}
