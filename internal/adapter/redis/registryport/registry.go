package registryport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/ports/secondary"
	"gitlab.com/quantport.net/internal/domain"
)

const (
	workerKeyPrefix     = "registry:worker:"
	dataServerKeyPrefix = "registry:dataserver:"

	// workerExpiration is a backstop only; every heartbeat rewrites the
	// record and refreshes it. Data server entries carry no TTL since
	// nothing rewrites them after the announce, they are removed when
	// their worker is swept.
	workerExpiration = 5 * time.Minute
)

var _ secondary.RegistryRepository = (*RegistryRepository)(nil)

// RegistryRepository implements the RegistryRepository interface with Redis
type RegistryRepository struct {
	redisClient *redis.Client
	logger      primary.Logger
}

// NewRegistryRepository creates a new Redis registry repository
func NewRegistryRepository(redisClient *redis.Client, logger primary.Logger) *RegistryRepository {
	return &RegistryRepository{
		redisClient: redisClient,
		logger:      logger,
	}
}

// SaveWorker saves a worker record to Redis
func (r *RegistryRepository) SaveWorker(ctx context.Context, record *domain.WorkerRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		r.logger.Error("Failed to marshal worker record", "error", err)
		return fmt.Errorf("failed to marshal worker record: %w", err)
	}

	key := workerKeyPrefix + record.Name
	if err := r.redisClient.Set(ctx, key, recordJSON, workerExpiration).Err(); err != nil {
		r.logger.Error("Failed to save worker record", "name", record.Name, "error", err)
		return fmt.Errorf("failed to save worker record: %w", err)
	}

	return nil
}

// GetWorker retrieves a worker record from Redis by name
func (r *RegistryRepository) GetWorker(ctx context.Context, name string) (*domain.WorkerRecord, error) {
	recordJSON, err := r.redisClient.Get(ctx, workerKeyPrefix+name).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to get worker record", "name", name, "error", err)
		return nil, fmt.Errorf("failed to get worker record: %w", err)
	}

	var record domain.WorkerRecord
	if err := json.Unmarshal(recordJSON, &record); err != nil {
		r.logger.Error("Failed to unmarshal worker record", "name", name, "error", err)
		return nil, fmt.Errorf("failed to unmarshal worker record: %w", err)
	}

	return &record, nil
}

// GetAllWorkers retrieves all worker records from Redis
func (r *RegistryRepository) GetAllWorkers(ctx context.Context) ([]*domain.WorkerRecord, error) {
	keys, err := r.scanKeys(ctx, workerKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan worker keys: %w", err)
	}

	var workers []*domain.WorkerRecord
	if len(keys) == 0 {
		return workers, nil
	}

	// Use MGET to retrieve all records at once
	values, err := r.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve worker records: %w", err)
	}

	for _, data := range values {
		if data == nil {
			continue
		}
		var record domain.WorkerRecord
		if err := json.Unmarshal([]byte(data.(string)), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal worker record: %w", err)
		}
		workers = append(workers, &record)
	}

	return workers, nil
}

// UpdateHeartbeat stamps a worker's last heartbeat time in Redis
func (r *RegistryRepository) UpdateHeartbeat(ctx context.Context, name string, at time.Time) error {
	record, err := r.GetWorker(ctx, name)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("worker not found: %s", name)
	}

	record.LastHeartbeat = at
	return r.SaveWorker(ctx, record)
}

// RemoveWorker deletes a worker record from Redis
func (r *RegistryRepository) RemoveWorker(ctx context.Context, name string) error {
	if err := r.redisClient.Del(ctx, workerKeyPrefix+name).Err(); err != nil {
		r.logger.Error("Failed to remove worker record", "name", name, "error", err)
		return fmt.Errorf("failed to remove worker record: %w", err)
	}
	return nil
}

// RemoveStaleWorkers removes workers whose last heartbeat is older than
// cutoff, along with data server records that pointed at them
func (r *RegistryRepository) RemoveStaleWorkers(ctx context.Context, cutoff time.Time) ([]string, error) {
	workers, err := r.GetAllWorkers(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, worker := range workers {
		if worker.LastHeartbeat.After(cutoff) {
			continue
		}
		if err := r.RemoveWorker(ctx, worker.Name); err != nil {
			return removed, err
		}
		removed = append(removed, worker.Name)
	}

	if len(removed) == 0 {
		return removed, nil
	}

	// Drop directory entries served by removed workers
	servers, err := r.GetAllDataServers(ctx)
	if err != nil {
		return removed, err
	}
	gone := make(map[string]bool, len(removed))
	for _, name := range removed {
		gone[name] = true
	}
	for _, server := range servers {
		if !gone[server.WorkerName] {
			continue
		}
		if err := r.redisClient.Del(ctx, dataServerKeyPrefix+string(server.Broker)).Err(); err != nil {
			r.logger.Error("Failed to remove data server record", "broker", server.Broker, "error", err)
			return removed, fmt.Errorf("failed to remove data server record: %w", err)
		}
	}

	return removed, nil
}

// SaveDataServer records which worker serves market data for a broker
func (r *RegistryRepository) SaveDataServer(ctx context.Context, record *domain.DataServerRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		r.logger.Error("Failed to marshal data server record", "error", err)
		return fmt.Errorf("failed to marshal data server record: %w", err)
	}

	key := dataServerKeyPrefix + string(record.Broker)
	if err := r.redisClient.Set(ctx, key, recordJSON, 0).Err(); err != nil {
		r.logger.Error("Failed to save data server record", "broker", record.Broker, "error", err)
		return fmt.Errorf("failed to save data server record: %w", err)
	}

	return nil
}

// GetDataServer retrieves the data server record for a broker
func (r *RegistryRepository) GetDataServer(ctx context.Context, broker domain.Broker) (*domain.DataServerRecord, error) {
	recordJSON, err := r.redisClient.Get(ctx, dataServerKeyPrefix+string(broker)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to get data server record", "broker", broker, "error", err)
		return nil, fmt.Errorf("failed to get data server record: %w", err)
	}

	var record domain.DataServerRecord
	if err := json.Unmarshal(recordJSON, &record); err != nil {
		r.logger.Error("Failed to unmarshal data server record", "broker", broker, "error", err)
		return nil, fmt.Errorf("failed to unmarshal data server record: %w", err)
	}

	return &record, nil
}

// GetAllDataServers retrieves every announced data server from Redis
func (r *RegistryRepository) GetAllDataServers(ctx context.Context) ([]*domain.DataServerRecord, error) {
	keys, err := r.scanKeys(ctx, dataServerKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan data server keys: %w", err)
	}

	var servers []*domain.DataServerRecord
	if len(keys) == 0 {
		return servers, nil
	}

	values, err := r.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve data server records: %w", err)
	}

	for _, data := range values {
		if data == nil {
			continue
		}
		var record domain.DataServerRecord
		if err := json.Unmarshal([]byte(data.(string)), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data server record: %w", err)
		}
		servers = append(servers, &record)
	}

	return servers, nil
}

// scanKeys iterates over keys matching pattern with SCAN
func (r *RegistryRepository) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var cursor uint64
	var allKeys []string
	var err error

	for {
		var keys []string
		keys, cursor, err = r.redisClient.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		allKeys = append(allKeys, keys...)
		if cursor == 0 {
			break
		}
	}

	return allKeys, nil
}
