package secondary

import (
	"context"
	"time"

	"gitlab.com/quantport.net/internal/domain"
)

type RegistryRepository interface {
	// SaveWorker saves a worker registration record
	SaveWorker(ctx context.Context, record *domain.WorkerRecord) error

	// GetWorker retrieves a worker record by name, nil when absent
	GetWorker(ctx context.Context, name string) (*domain.WorkerRecord, error)

	// GetAllWorkers retrieves every registered worker
	GetAllWorkers(ctx context.Context) ([]*domain.WorkerRecord, error)

	// UpdateHeartbeat stamps a worker's last heartbeat time
	UpdateHeartbeat(ctx context.Context, name string, at time.Time) error

	// RemoveWorker deletes a worker record
	RemoveWorker(ctx context.Context, name string) error

	// RemoveStaleWorkers removes workers whose last heartbeat is older than
	// cutoff and returns the removed names
	RemoveStaleWorkers(ctx context.Context, cutoff time.Time) ([]string, error)

	// SaveDataServer records which worker serves market data for a broker
	SaveDataServer(ctx context.Context, record *domain.DataServerRecord) error

	// GetDataServer retrieves the data server record for a broker, nil when absent
	GetDataServer(ctx context.Context, broker domain.Broker) (*domain.DataServerRecord, error)

	// GetAllDataServers retrieves every announced data server
	GetAllDataServers(ctx context.Context) ([]*domain.DataServerRecord, error)
}
