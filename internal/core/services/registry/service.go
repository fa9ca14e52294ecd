package registry

import (
	"context"
	"time"

	"gitlab.com/quantport.net/internal/domain"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

// IRegistryService defines the controller-side registry for satellite workers.
// Operations that answer a wire request return a response code alongside any
// payload; a non-nil error means the registry backend failed, not that the
// request was rejected.
type IRegistryService interface {
	// RegisterWorker admits a worker and allocates its port block. On success
	// the returned int is the base port the worker should listen on.
	RegisterWorker(ctx context.Context, name string, requiredPorts int, host string) (int, defs.Code, error)

	// Heartbeat stamps a registered worker as alive
	Heartbeat(ctx context.Context, name string) (defs.Code, error)

	// GetWorker retrieves a single worker record, nil when absent
	GetWorker(ctx context.Context, name string) (*domain.WorkerRecord, error)

	// ListWorkers returns all registered workers annotated with liveness
	ListWorkers(ctx context.Context) ([]*domain.WorkerRecord, error)

	// DeregisterWorker removes a worker from the registry
	DeregisterWorker(ctx context.Context, name string) (defs.Code, error)

	// ExpireStale removes workers whose last heartbeat is older than the
	// configured stale window and returns the removed names
	ExpireStale(ctx context.Context) ([]string, error)

	// AnnounceDataServer records a worker as the data server for a broker
	AnnounceDataServer(ctx context.Context, name, broker string, port int) (defs.Code, error)

	// LookupDataServer resolves the port of the data server for a broker
	LookupDataServer(ctx context.Context, broker string) (int, defs.Code, error)

	// ListDataServers returns every announced data server
	ListDataServers(ctx context.Context) ([]*domain.DataServerRecord, error)

	// StaleAfter reports the liveness window used for annotation and expiry
	StaleAfter() time.Duration
}
