package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Bus re-exports the EventBus contract so subscribers do not import the
// library directly.
type Bus = evbus.Bus

// New creates an event bus instance. Each owning context constructs its
// own bus; there is no process-wide singleton, so independent gateways
// keep independent subscriber sets.
func New() Bus {
	return evbus.New()
}
