package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
)

// NotifyingGateway publishes an Event after every committed write. Publish
// failures are logged and never fail the write.
type NotifyingGateway struct {
	next      Gateway
	publisher Publisher
	logger    *slog.Logger
}

// NewNotifyingGateway wraps next.
func NewNotifyingGateway(next Gateway, publisher Publisher, logger *slog.Logger) *NotifyingGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyingGateway{next: next, publisher: publisher, logger: logger}
}

func (g *NotifyingGateway) Get(ctx context.Context, collection, id string) (Record, error) {
	return g.next.Get(ctx, collection, id)
}

func (g *NotifyingGateway) Create(ctx context.Context, collection, ownerID string, body json.RawMessage) (Record, error) {
	rec, err := g.next.Create(ctx, collection, ownerID, body)
	if err == nil {
		g.publish(ctx, Event{Type: EventCreated, Collection: collection, ID: rec.ID, LastUpdated: rec.LastUpdated})
	}
	return rec, err
}

func (g *NotifyingGateway) Update(ctx context.Context, collection, id string, patch json.RawMessage) (Record, error) {
	rec, err := g.next.Update(ctx, collection, id, patch)
	if err == nil {
		g.publish(ctx, Event{Type: EventUpdated, Collection: collection, ID: id, LastUpdated: rec.LastUpdated})
	}
	return rec, err
}

func (g *NotifyingGateway) Delete(ctx context.Context, collection, id string) error {
	err := g.next.Delete(ctx, collection, id)
	if err == nil {
		g.publish(ctx, Event{Type: EventDeleted, Collection: collection, ID: id})
	}
	return err
}

func (g *NotifyingGateway) List(ctx context.Context, collection, ownerID string) ([]Record, error) {
	return g.next.List(ctx, collection, ownerID)
}

func (g *NotifyingGateway) publish(ctx context.Context, ev Event) {
	if g.publisher == nil {
		return
	}
	if err := g.publisher.Publish(ctx, ev); err != nil {
		g.logger.Warn("publish document event failed",
			slog.String("collection", ev.Collection),
			slog.String("document_id", ev.ID),
			slog.String("event", string(ev.Type)),
			slog.Any("error", err),
		)
	}
}
