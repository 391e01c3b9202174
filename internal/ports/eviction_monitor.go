package ports

import (
	"context"

	"github.com/Gunvolt24/spot_drain/internal/domain"
)

// EvictionMonitor — цикл опроса EventSource.
type EvictionMonitor interface {
	Run(ctx context.Context) error
	// Started закрывается, как только монитор перешёл в Polling.
	Started() <-chan struct{}
	State() string
}

// StatusProvider — источник данных для /status и /readyz.
type StatusProvider interface {
	Status(ctx context.Context) domain.Status
}
