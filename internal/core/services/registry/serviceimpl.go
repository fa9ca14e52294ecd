package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/ports/secondary"
	"gitlab.com/quantport.net/internal/domain"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

var _ IRegistryService = &RegistryService{}

// RegistryService implements the IRegistryService interface
type RegistryService struct {
	repo           secondary.RegistryRepository
	logger         primary.Logger
	portRangeStart int
	portRangeEnd   int
	staleAfter     time.Duration
}

// RegistryOption configures a RegistryService
type RegistryOption func(*RegistryService)

// WithPortRange sets the half-open port range [start, end) workers are
// allocated from
func WithPortRange(start, end int) RegistryOption {
	return func(s *RegistryService) {
		s.portRangeStart = start
		s.portRangeEnd = end
	}
}

// WithStaleAfter sets how long a worker may go without a heartbeat before it
// is considered dead
func WithStaleAfter(d time.Duration) RegistryOption {
	return func(s *RegistryService) {
		s.staleAfter = d
	}
}

// NewRegistryService creates a new registry service
func NewRegistryService(repo secondary.RegistryRepository, logger primary.Logger, options ...RegistryOption) *RegistryService {
	service := &RegistryService{
		repo:           repo,
		logger:         logger,
		portRangeStart: 20000,
		portRangeEnd:   25000,
		staleAfter:     2 * time.Minute,
	}

	for _, option := range options {
		option(service)
	}

	return service
}

// RegisterWorker admits a worker and allocates its port block
func (s *RegistryService) RegisterWorker(ctx context.Context, name string, requiredPorts int, host string) (int, defs.Code, error) {
	if name == "" {
		s.logger.Warn("Registration without a worker name", "host", host)
		return 0, defs.MissingName, nil
	}
	if requiredPorts < 1 {
		s.logger.Warn("Registration without required ports", "name", name)
		return 0, defs.MissingRequiredResource, nil
	}

	existing, err := s.repo.GetWorker(ctx, name)
	if err != nil {
		s.logger.Error("Failed to check registry for worker", "name", name, "error", err)
		return 0, defs.Succeeded, fmt.Errorf("failed to check registry: %w", err)
	}
	if existing != nil {
		s.logger.Warn("Duplicate registration", "name", name)
		return 0, defs.AlreadyRegistered, nil
	}

	basePort, err := s.allocateBasePort(ctx, requiredPorts)
	if err != nil {
		s.logger.Error("Failed to allocate ports", "name", name, "required", requiredPorts, "error", err)
		return 0, defs.Succeeded, err
	}

	now := time.Now()
	record := &domain.WorkerRecord{
		Name:          name,
		RequiredPorts: requiredPorts,
		BasePort:      basePort,
		Host:          host,
		LeaseID:       uuid.NewString(),
		RegisteredAt:  now,
		LastHeartbeat: now,
	}

	if err := s.repo.SaveWorker(ctx, record); err != nil {
		s.logger.Error("Failed to save worker record", "name", name, "error", err)
		return 0, defs.Succeeded, fmt.Errorf("failed to register worker: %w", err)
	}

	s.logger.Info("Worker registered", "name", name, "basePort", basePort, "ports", requiredPorts, "lease", record.LeaseID)
	return basePort, defs.Succeeded, nil
}

// allocateBasePort finds the first free contiguous block of the requested size
// within the configured range, first-fit over the blocks already held by
// registered workers.
func (s *RegistryService) allocateBasePort(ctx context.Context, requiredPorts int) (int, error) {
	workers, err := s.repo.GetAllWorkers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list workers for port allocation: %w", err)
	}

	sort.Slice(workers, func(i, j int) bool { return workers[i].BasePort < workers[j].BasePort })

	candidate := s.portRangeStart
	for _, w := range workers {
		if candidate+requiredPorts <= w.BasePort {
			break
		}
		if end := w.BasePort + w.RequiredPorts; end > candidate {
			candidate = end
		}
	}

	if candidate+requiredPorts > s.portRangeEnd {
		return 0, fmt.Errorf("port range %d-%d exhausted, cannot allocate %d ports", s.portRangeStart, s.portRangeEnd, requiredPorts)
	}

	return candidate, nil
}

// Heartbeat stamps a registered worker as alive
func (s *RegistryService) Heartbeat(ctx context.Context, name string) (defs.Code, error) {
	if name == "" {
		return defs.MissingName, nil
	}

	worker, err := s.repo.GetWorker(ctx, name)
	if err != nil {
		s.logger.Error("Failed to get worker for heartbeat", "name", name, "error", err)
		return defs.Succeeded, fmt.Errorf("failed to get worker: %w", err)
	}
	if worker == nil {
		s.logger.Warn("Heartbeat from unregistered worker", "name", name)
		return defs.NotInRegistry, nil
	}

	if err := s.repo.UpdateHeartbeat(ctx, name, time.Now()); err != nil {
		s.logger.Error("Failed to update heartbeat", "name", name, "error", err)
		return defs.Succeeded, fmt.Errorf("failed to update heartbeat: %w", err)
	}

	s.logger.Debug("Heartbeat", "name", name)
	return defs.Succeeded, nil
}

// GetWorker retrieves a single worker record
func (s *RegistryService) GetWorker(ctx context.Context, name string) (*domain.WorkerRecord, error) {
	worker, err := s.repo.GetWorker(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	if worker != nil {
		worker.IsAlive = worker.LastHeartbeat.After(time.Now().Add(-s.staleAfter))
	}
	return worker, nil
}

// ListWorkers returns all registered workers annotated with liveness
func (s *RegistryService) ListWorkers(ctx context.Context) ([]*domain.WorkerRecord, error) {
	s.logger.Debug("Listing workers")

	workers, err := s.repo.GetAllWorkers(ctx)
	if err != nil {
		s.logger.Error("Failed to list workers", "error", err)
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}

	threshold := time.Now().Add(-s.staleAfter)
	for _, worker := range workers {
		worker.IsAlive = worker.LastHeartbeat.After(threshold)
	}

	sort.Slice(workers, func(i, j int) bool { return workers[i].Name < workers[j].Name })
	return workers, nil
}

// DeregisterWorker removes a worker from the registry
func (s *RegistryService) DeregisterWorker(ctx context.Context, name string) (defs.Code, error) {
	worker, err := s.repo.GetWorker(ctx, name)
	if err != nil {
		return defs.Succeeded, fmt.Errorf("failed to get worker: %w", err)
	}
	if worker == nil {
		return defs.NotInRegistry, nil
	}

	if err := s.repo.RemoveWorker(ctx, name); err != nil {
		s.logger.Error("Failed to remove worker", "name", name, "error", err)
		return defs.Succeeded, fmt.Errorf("failed to remove worker: %w", err)
	}

	s.logger.Info("Worker deregistered", "name", name)
	return defs.Succeeded, nil
}

// ExpireStale removes workers that stopped heartbeating
func (s *RegistryService) ExpireStale(ctx context.Context) ([]string, error) {
	cutoff := time.Now().Add(-s.staleAfter)

	removed, err := s.repo.RemoveStaleWorkers(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to remove stale workers", "error", err)
		return nil, fmt.Errorf("failed to remove stale workers: %w", err)
	}

	if len(removed) > 0 {
		s.logger.Info("Expired stale workers", "names", removed)
	}
	return removed, nil
}

// AnnounceDataServer records a worker as the data server for a broker
func (s *RegistryService) AnnounceDataServer(ctx context.Context, name, broker string, port int) (defs.Code, error) {
	if name == "" {
		return defs.MissingName, nil
	}

	parsed, ok := domain.ParseBroker(broker)
	if !ok {
		s.logger.Warn("Announcement for unknown broker", "name", name, "broker", broker)
		return defs.UnknownBroker, nil
	}
	if port < 1 {
		s.logger.Warn("Announcement missing a usable port", "name", name, "broker", broker, "port", port)
		return defs.MissingDataServerInfo, nil
	}

	worker, err := s.repo.GetWorker(ctx, name)
	if err != nil {
		return defs.Succeeded, fmt.Errorf("failed to get worker: %w", err)
	}
	if worker == nil {
		s.logger.Warn("Announcement from unregistered worker", "name", name)
		return defs.NotInRegistry, nil
	}

	record := &domain.DataServerRecord{
		Broker:      parsed,
		WorkerName:  name,
		Port:        port,
		AnnouncedAt: time.Now(),
	}
	if err := s.repo.SaveDataServer(ctx, record); err != nil {
		s.logger.Error("Failed to save data server record", "broker", broker, "error", err)
		return defs.Succeeded, fmt.Errorf("failed to save data server: %w", err)
	}

	s.logger.Info("Data server announced", "broker", parsed, "name", name, "port", port)
	return defs.Succeeded, nil
}

// LookupDataServer resolves the port of the data server for a broker
func (s *RegistryService) LookupDataServer(ctx context.Context, broker string) (int, defs.Code, error) {
	parsed, ok := domain.ParseBroker(broker)
	if !ok {
		return 0, defs.UnknownBroker, nil
	}

	record, err := s.repo.GetDataServer(ctx, parsed)
	if err != nil {
		s.logger.Error("Failed to get data server record", "broker", broker, "error", err)
		return 0, defs.Succeeded, fmt.Errorf("failed to get data server: %w", err)
	}
	if record == nil {
		return 0, defs.ServerNotOnline, nil
	}

	// The serving worker must still be alive for the record to count.
	worker, err := s.repo.GetWorker(ctx, record.WorkerName)
	if err != nil {
		return 0, defs.Succeeded, fmt.Errorf("failed to get worker: %w", err)
	}
	if worker == nil || !worker.LastHeartbeat.After(time.Now().Add(-s.staleAfter)) {
		return 0, defs.ServerNotOnline, nil
	}

	return record.Port, defs.Succeeded, nil
}

// ListDataServers returns every announced data server
func (s *RegistryService) ListDataServers(ctx context.Context) ([]*domain.DataServerRecord, error) {
	records, err := s.repo.GetAllDataServers(ctx)
	if err != nil {
		s.logger.Error("Failed to list data servers", "error", err)
		return nil, fmt.Errorf("failed to list data servers: %w", err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Broker < records[j].Broker })
	return records, nil
}

// StaleAfter reports the configured liveness window
func (s *RegistryService) StaleAfter() time.Duration {
	return s.staleAfter
}
