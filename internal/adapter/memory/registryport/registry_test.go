package registryport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/quantport.net/internal/domain"
)

func TestWorkerRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistryRepository()

	record := &domain.WorkerRecord{
		Name:          "w",
		RequiredPorts: 3,
		BasePort:      20000,
		Host:          "10.0.0.5",
		LeaseID:       "lease-1",
		RegisteredAt:  time.Now(),
		LastHeartbeat: time.Now(),
	}
	require.NoError(t, repo.SaveWorker(ctx, record))

	got, err := repo.GetWorker(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "w", got.Name)
	assert.Equal(t, 3, got.RequiredPorts)
	assert.Equal(t, 20000, got.BasePort)
	assert.Equal(t, "lease-1", got.LeaseID)

	missing, err := repo.GetWorker(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWorkerCloneIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistryRepository()

	record := &domain.WorkerRecord{Name: "w", BasePort: 20000}
	require.NoError(t, repo.SaveWorker(ctx, record))

	// Mutating the caller's record after save must not leak into the store.
	record.BasePort = 99999
	got, err := repo.GetWorker(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, 20000, got.BasePort)

	// Mutating a returned record must not leak either.
	got.Name = "tampered"
	again, err := repo.GetWorker(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, "w", again.Name)
}

func TestUpdateHeartbeat(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistryRepository()

	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerRecord{Name: "w"}))

	at := time.Now().Add(time.Hour)
	require.NoError(t, repo.UpdateHeartbeat(ctx, "w", at))

	got, err := repo.GetWorker(ctx, "w")
	require.NoError(t, err)
	assert.True(t, got.LastHeartbeat.Equal(at))

	err = repo.UpdateHeartbeat(ctx, "ghost", at)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRemoveWorker(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistryRepository()

	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerRecord{Name: "w"}))
	require.NoError(t, repo.RemoveWorker(ctx, "w"))

	got, err := repo.GetWorker(ctx, "w")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Removing a missing worker is not an error.
	require.NoError(t, repo.RemoveWorker(ctx, "w"))
}

func TestGetAllWorkers(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistryRepository()

	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerRecord{Name: "a"}))
	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerRecord{Name: "b"}))

	all, err := repo.GetAllWorkers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	names := map[string]bool{}
	for _, w := range all {
		names[w.Name] = true
	}
	assert.True(t, names["a"])
	assert.True(t, names["b"])
}

func TestRemoveStaleWorkers(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistryRepository()
	now := time.Now()

	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerRecord{Name: "fresh", LastHeartbeat: now}))
	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerRecord{Name: "stale", LastHeartbeat: now.Add(-2 * time.Minute)}))
	require.NoError(t, repo.SaveDataServer(ctx, &domain.DataServerRecord{
		Broker:     domain.BrokerMock,
		WorkerName: "stale",
		Port:       20010,
	}))

	removed, err := repo.RemoveStaleWorkers(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, removed)

	got, err := repo.GetWorker(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, got)

	// The data server pointing at the evicted worker goes with it.
	server, err := repo.GetDataServer(ctx, domain.BrokerMock)
	require.NoError(t, err)
	assert.Nil(t, server)
}

func TestDataServerRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistryRepository()

	record := &domain.DataServerRecord{
		Broker:      domain.BrokerMock,
		WorkerName:  "feed",
		Port:        20011,
		AnnouncedAt: time.Now(),
	}
	require.NoError(t, repo.SaveDataServer(ctx, record))

	got, err := repo.GetDataServer(ctx, domain.BrokerMock)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "feed", got.WorkerName)
	assert.Equal(t, 20011, got.Port)

	missing, err := repo.GetDataServer(ctx, domain.BrokerIB)
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.GetAllDataServers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDataServerReannounceOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistryRepository()

	require.NoError(t, repo.SaveDataServer(ctx, &domain.DataServerRecord{
		Broker: domain.BrokerMock, WorkerName: "feed-a", Port: 20011,
	}))
	require.NoError(t, repo.SaveDataServer(ctx, &domain.DataServerRecord{
		Broker: domain.BrokerMock, WorkerName: "feed-b", Port: 20021,
	}))

	got, err := repo.GetDataServer(ctx, domain.BrokerMock)
	require.NoError(t, err)
	assert.Equal(t, "feed-b", got.WorkerName)
	assert.Equal(t, 20021, got.Port)
}
