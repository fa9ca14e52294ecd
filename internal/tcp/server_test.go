package tcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memoryregistry "gitlab.com/quantport.net/internal/adapter/memory/registryport"
	"gitlab.com/quantport.net/internal/core/services/registry"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, args ...interface{})  {}
func (noopLogger) Error(msg string, args ...interface{}) {}
func (noopLogger) Debug(msg string, args ...interface{}) {}
func (noopLogger) Warn(msg string, args ...interface{})  {}

func newTestServer(t *testing.T) *ControlServer {
	t.Helper()

	repo := memoryregistry.NewRegistryRepository()
	svc := registry.NewRegistryService(repo, noopLogger{}, registry.WithPortRange(20000, 20100))
	srv := NewControlServer(svc, noopLogger{}, WithAddress("127.0.0.1:0"))
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

	return srv
}

func dialServer(t *testing.T, srv *ControlServer) *ReqChannel {
	t.Helper()

	ch, err := DialReqChannel(context.Background(), srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })
	return ch
}

func TestControlServer_RegistrationFlow(t *testing.T) {
	srv := newTestServer(t)
	ch := dialServer(t, srv)

	reply, err := ch.Request("w|3", time.Second)
	require.NoError(t, err)
	assert.False(t, reply.Rejected())
	assert.GreaterOrEqual(t, reply.Value, 20000)
	assert.Less(t, reply.Value, 20100)

	reply, err = ch.Request("w", time.Second)
	require.NoError(t, err)
	assert.Equal(t, defs.Succeeded, reply.Code)
	assert.Equal(t, 0, reply.Value)

	second := dialServer(t, srv)
	reply, err = second.Request("w|3", time.Second)
	require.NoError(t, err)
	assert.Equal(t, defs.AlreadyRegistered, reply.Code)
}

func TestControlServer_RegistrationValidation(t *testing.T) {
	srv := newTestServer(t)
	ch := dialServer(t, srv)

	reply, err := ch.Request("w|0", time.Second)
	require.NoError(t, err)
	assert.Equal(t, defs.MissingRequiredResource, reply.Code)

	reply, err = ch.Request("|3", time.Second)
	require.NoError(t, err)
	assert.Equal(t, defs.MissingName, reply.Code)
}

func TestControlServer_HeartbeatUnknownWorker(t *testing.T) {
	srv := newTestServer(t)
	ch := dialServer(t, srv)

	reply, err := ch.Request("ghost", time.Second)
	require.NoError(t, err)
	assert.Equal(t, defs.NotInRegistry, reply.Code)
}

func TestControlServer_DataServerFlow(t *testing.T) {
	srv := newTestServer(t)
	ch := dialServer(t, srv)

	reply, err := ch.Request("srv|2", time.Second)
	require.NoError(t, err)
	require.False(t, reply.Rejected())
	basePort := reply.Value

	dataPort := basePort + 1
	reply, err = ch.Request(defs.EncodeDataServerAnnounce("srv", "MOCK", dataPort), time.Second)
	require.NoError(t, err)
	assert.Equal(t, defs.Succeeded, reply.Code)

	client := dialServer(t, srv)
	reply, err = client.Request(defs.EncodeDataServerLookup("cli", "MOCK"), time.Second)
	require.NoError(t, err)
	assert.False(t, reply.Rejected())
	assert.Equal(t, dataPort, reply.Value)

	reply, err = client.Request(defs.EncodeDataServerLookup("cli", "IB"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, defs.ServerNotOnline, reply.Code)

	reply, err = client.Request(defs.EncodeDataServerLookup("cli", "NOPE"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, defs.UnknownBroker, reply.Code)
}

func TestControlServer_UnknownRequestKeepsConnection(t *testing.T) {
	srv := newTestServer(t)
	ch := dialServer(t, srv)

	reply, err := ch.Request("a|b|c|d", time.Second)
	require.NoError(t, err)
	assert.Equal(t, defs.UnknownRequest, reply.Code)

	// The connection survives an unknown request.
	reply, err = ch.Request("w|1", time.Second)
	require.NoError(t, err)
	assert.False(t, reply.Rejected())
}
