package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memoryregistry "gitlab.com/quantport.net/internal/adapter/memory/registryport"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, args ...interface{})  {}
func (noopLogger) Error(msg string, args ...interface{}) {}
func (noopLogger) Debug(msg string, args ...interface{}) {}
func (noopLogger) Warn(msg string, args ...interface{})  {}

func newTestService(options ...RegistryOption) (*RegistryService, *memoryregistry.RegistryRepository) {
	repo := memoryregistry.NewRegistryRepository()
	opts := append([]RegistryOption{WithPortRange(20000, 20100)}, options...)
	return NewRegistryService(repo, noopLogger{}, opts...), repo
}

func TestRegisterWorker(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	basePort, code, err := svc.RegisterWorker(ctx, "w", 3, "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, defs.Succeeded, code)
	assert.Equal(t, 20000, basePort)

	worker, err := svc.GetWorker(ctx, "w")
	require.NoError(t, err)
	require.NotNil(t, worker)
	assert.Equal(t, "w", worker.Name)
	assert.Equal(t, 3, worker.RequiredPorts)
	assert.Equal(t, 20000, worker.BasePort)
	assert.Equal(t, "10.0.0.5", worker.Host)
	assert.NotEmpty(t, worker.LeaseID)
	assert.True(t, worker.IsAlive)
}

func TestRegisterWorker_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, code, err := svc.RegisterWorker(ctx, "", 3, "h")
	require.NoError(t, err)
	assert.Equal(t, defs.MissingName, code)

	_, code, err = svc.RegisterWorker(ctx, "w", 0, "h")
	require.NoError(t, err)
	assert.Equal(t, defs.MissingRequiredResource, code)
}

func TestRegisterWorker_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, code, err := svc.RegisterWorker(ctx, "w", 1, "h")
	require.NoError(t, err)
	require.Equal(t, defs.Succeeded, code)

	_, code, err = svc.RegisterWorker(ctx, "w", 1, "h")
	require.NoError(t, err)
	assert.Equal(t, defs.AlreadyRegistered, code)
}

func TestRegisterWorker_PortPacking(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	base, _, err := svc.RegisterWorker(ctx, "a", 3, "h")
	require.NoError(t, err)
	assert.Equal(t, 20000, base)

	base, _, err = svc.RegisterWorker(ctx, "b", 2, "h")
	require.NoError(t, err)
	assert.Equal(t, 20003, base)

	base, _, err = svc.RegisterWorker(ctx, "c", 1, "h")
	require.NoError(t, err)
	assert.Equal(t, 20005, base)

	// Deregistering b opens a two-port gap that the next fitting block
	// reuses.
	code, err := svc.DeregisterWorker(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, defs.Succeeded, code)

	base, _, err = svc.RegisterWorker(ctx, "d", 2, "h")
	require.NoError(t, err)
	assert.Equal(t, 20003, base)

	base, _, err = svc.RegisterWorker(ctx, "e", 3, "h")
	require.NoError(t, err)
	assert.Equal(t, 20006, base)
}

func TestRegisterWorker_PortRangeExhausted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(WithPortRange(20000, 20004))

	_, code, err := svc.RegisterWorker(ctx, "a", 4, "h")
	require.NoError(t, err)
	require.Equal(t, defs.Succeeded, code)

	_, _, err = svc.RegisterWorker(ctx, "b", 1, "h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
}

func TestHeartbeat(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	code, err := svc.Heartbeat(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, defs.NotInRegistry, code)

	_, code, err = svc.RegisterWorker(ctx, "w", 1, "h")
	require.NoError(t, err)
	require.Equal(t, defs.Succeeded, code)

	registered, err := svc.GetWorker(ctx, "w")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	code, err = svc.Heartbeat(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, defs.Succeeded, code)

	refreshed, err := svc.GetWorker(ctx, "w")
	require.NoError(t, err)
	assert.True(t, refreshed.LastHeartbeat.After(registered.LastHeartbeat))
}

func TestListWorkers_LivenessAnnotation(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(WithStaleAfter(time.Minute))

	_, _, err := svc.RegisterWorker(ctx, "fresh", 1, "h")
	require.NoError(t, err)
	_, _, err = svc.RegisterWorker(ctx, "stale", 1, "h")
	require.NoError(t, err)

	// Backdate the second worker past the liveness window.
	require.NoError(t, repo.UpdateHeartbeat(ctx, "stale", time.Now().Add(-2*time.Minute)))

	workers, err := svc.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 2)

	assert.Equal(t, "fresh", workers[0].Name)
	assert.True(t, workers[0].IsAlive)
	assert.Equal(t, "stale", workers[1].Name)
	assert.False(t, workers[1].IsAlive)
}

func TestDeregisterWorker(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	code, err := svc.DeregisterWorker(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, defs.NotInRegistry, code)

	_, _, err = svc.RegisterWorker(ctx, "w", 1, "h")
	require.NoError(t, err)

	code, err = svc.DeregisterWorker(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, defs.Succeeded, code)

	worker, err := svc.GetWorker(ctx, "w")
	require.NoError(t, err)
	assert.Nil(t, worker)
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(WithStaleAfter(time.Minute))

	_, _, err := svc.RegisterWorker(ctx, "fresh", 1, "h")
	require.NoError(t, err)
	_, _, err = svc.RegisterWorker(ctx, "stale", 1, "h")
	require.NoError(t, err)
	require.NoError(t, repo.UpdateHeartbeat(ctx, "stale", time.Now().Add(-2*time.Minute)))

	removed, err := svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, removed)

	workers, err := svc.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "fresh", workers[0].Name)
}

func TestAnnounceDataServer(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	code, err := svc.AnnounceDataServer(ctx, "srv", "NOPE", 20001)
	require.NoError(t, err)
	assert.Equal(t, defs.UnknownBroker, code)

	code, err = svc.AnnounceDataServer(ctx, "srv", "MOCK", 0)
	require.NoError(t, err)
	assert.Equal(t, defs.MissingDataServerInfo, code)

	code, err = svc.AnnounceDataServer(ctx, "srv", "MOCK", 20001)
	require.NoError(t, err)
	assert.Equal(t, defs.NotInRegistry, code, "only registered workers may announce")

	_, _, err = svc.RegisterWorker(ctx, "srv", 2, "h")
	require.NoError(t, err)

	code, err = svc.AnnounceDataServer(ctx, "srv", "MOCK", 20001)
	require.NoError(t, err)
	assert.Equal(t, defs.Succeeded, code)

	servers, err := svc.ListDataServers(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "srv", servers[0].WorkerName)
	assert.Equal(t, 20001, servers[0].Port)
}

func TestLookupDataServer(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(WithStaleAfter(time.Minute))

	_, code, err := svc.LookupDataServer(ctx, "NOPE")
	require.NoError(t, err)
	assert.Equal(t, defs.UnknownBroker, code)

	_, code, err = svc.LookupDataServer(ctx, "MOCK")
	require.NoError(t, err)
	assert.Equal(t, defs.ServerNotOnline, code)

	_, _, err = svc.RegisterWorker(ctx, "srv", 2, "h")
	require.NoError(t, err)
	code, err = svc.AnnounceDataServer(ctx, "srv", "MOCK", 20001)
	require.NoError(t, err)
	require.Equal(t, defs.Succeeded, code)

	port, code, err := svc.LookupDataServer(ctx, "MOCK")
	require.NoError(t, err)
	assert.Equal(t, defs.Succeeded, code)
	assert.Equal(t, 20001, port)

	// A data server whose worker stopped heartbeating is not handed out.
	require.NoError(t, repo.UpdateHeartbeat(ctx, "srv", time.Now().Add(-2*time.Minute)))
	_, code, err = svc.LookupDataServer(ctx, "MOCK")
	require.NoError(t, err)
	assert.Equal(t, defs.ServerNotOnline, code)
}
