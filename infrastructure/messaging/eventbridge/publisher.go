package eventbridge

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"outline-backend/domain/events"
	pkgerrors "outline-backend/pkg/errors"
)

// eventSource identifies this service on the bus
const eventSource = "outline-backend"

// putEventsBatchLimit is the PutEvents API maximum per call
const putEventsBatchLimit = 10

// Publisher sends domain events to an EventBridge bus
type Publisher struct {
	client  *eventbridge.Client
	busName string
	logger  *zap.Logger
}

// NewPublisher creates a publisher for the given bus
func NewPublisher(client *eventbridge.Client, busName string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client:  client,
		busName: busName,
		logger:  logger,
	}
}

// Publish sends a single event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in PutEvents-sized chunks. Partial failures are
// reported as an error so the caller can decide whether to retry.
func (p *Publisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	if len(evts) == 0 {
		return nil
	}

	for start := 0; start < len(evts); start += putEventsBatchLimit {
		end := start + putEventsBatchLimit
		if end > len(evts) {
			end = len(evts)
		}

		entries := make([]types.PutEventsRequestEntry, 0, end-start)
		for _, event := range evts[start:end] {
			detail, err := json.Marshal(event)
			if err != nil {
				return pkgerrors.NewInternalError("failed to serialize domain event").WithCause(err)
			}
			entries = append(entries, types.PutEventsRequestEntry{
				EventBusName: aws.String(p.busName),
				Source:       aws.String(eventSource),
				DetailType:   aws.String(event.GetEventType()),
				Detail:       aws.String(string(detail)),
			})
		}

		out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
		if err != nil {
			return pkgerrors.NewExternalError("eventbridge", err)
		}
		if out.FailedEntryCount > 0 {
			p.logger.Warn("some events failed to publish",
				zap.Int32("failed", out.FailedEntryCount),
				zap.Int("total", len(entries)))
			return pkgerrors.NewExternalError("eventbridge",
				pkgerrors.NewInternalError("partial publish failure"))
		}
	}

	return nil
}
