// Package registryport provides an in-memory registry store for tests and
// single-process deployments without Redis.
package registryport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/quantport.net/internal/core/ports/secondary"
	"gitlab.com/quantport.net/internal/domain"
)

var _ secondary.RegistryRepository = (*RegistryRepository)(nil)

// RegistryRepository implements the RegistryRepository interface in memory
type RegistryRepository struct {
	mu          sync.RWMutex
	workers     map[string]*domain.WorkerRecord
	dataServers map[domain.Broker]*domain.DataServerRecord
}

// NewRegistryRepository creates a new in-memory registry repository
func NewRegistryRepository() *RegistryRepository {
	return &RegistryRepository{
		workers:     make(map[string]*domain.WorkerRecord),
		dataServers: make(map[domain.Broker]*domain.DataServerRecord),
	}
}

// SaveWorker saves a worker record
func (r *RegistryRepository) SaveWorker(ctx context.Context, record *domain.WorkerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *record
	r.workers[record.Name] = &clone
	return nil
}

// GetWorker retrieves a worker record by name
func (r *RegistryRepository) GetWorker(ctx context.Context, name string) (*domain.WorkerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.workers[name]
	if !exists {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

// GetAllWorkers retrieves every registered worker
func (r *RegistryRepository) GetAllWorkers(ctx context.Context) ([]*domain.WorkerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workers := make([]*domain.WorkerRecord, 0, len(r.workers))
	for _, record := range r.workers {
		clone := *record
		workers = append(workers, &clone)
	}
	return workers, nil
}

// UpdateHeartbeat stamps a worker's last heartbeat time
func (r *RegistryRepository) UpdateHeartbeat(ctx context.Context, name string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.workers[name]
	if !exists {
		return fmt.Errorf("worker not found: %s", name)
	}
	record.LastHeartbeat = at
	return nil
}

// RemoveWorker deletes a worker record
func (r *RegistryRepository) RemoveWorker(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.workers, name)
	return nil
}

// RemoveStaleWorkers removes workers whose last heartbeat is older than
// cutoff, along with data server records that pointed at them
func (r *RegistryRepository) RemoveStaleWorkers(ctx context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for name, record := range r.workers {
		if record.LastHeartbeat.After(cutoff) {
			continue
		}
		delete(r.workers, name)
		removed = append(removed, name)
	}

	for broker, server := range r.dataServers {
		if _, alive := r.workers[server.WorkerName]; !alive {
			delete(r.dataServers, broker)
		}
	}

	return removed, nil
}

// SaveDataServer records which worker serves market data for a broker
func (r *RegistryRepository) SaveDataServer(ctx context.Context, record *domain.DataServerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *record
	r.dataServers[record.Broker] = &clone
	return nil
}

// GetDataServer retrieves the data server record for a broker
func (r *RegistryRepository) GetDataServer(ctx context.Context, broker domain.Broker) (*domain.DataServerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.dataServers[broker]
	if !exists {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

// GetAllDataServers retrieves every announced data server
func (r *RegistryRepository) GetAllDataServers(ctx context.Context) ([]*domain.DataServerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	servers := make([]*domain.DataServerRecord, 0, len(r.dataServers))
	for _, record := range r.dataServers {
		clone := *record
		servers = append(servers, &clone)
	}
	return servers, nil
}
