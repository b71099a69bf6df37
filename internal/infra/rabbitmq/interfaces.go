package rabbitmq

import "context"

// PublisherInterface is the event sink the services publish through. The
// Kafka publisher and Discard satisfy it too.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

var _ PublisherInterface = (*Publisher)(nil)

type discard struct{}

func (discard) Publish(context.Context, string, any) error { return nil }

// Discard drops every event; used when EVENT_BROKER=none.
var Discard PublisherInterface = discard{}
