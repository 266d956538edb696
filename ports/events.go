package ports

import (
	"context"

	"github.com/layer-3/questauth/core"
)

// EventPublisher publishes auth events to notify other services
type EventPublisher interface {
	Publish(ctx context.Context, event core.AuthEvent) error
}
