package dataservers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memoryregistry "gitlab.com/quantport.net/internal/adapter/memory/registryport"
	"gitlab.com/quantport.net/internal/core/services/registry"
	"gitlab.com/quantport.net/internal/domain"
	"gitlab.com/quantport.net/internal/tcp/defs"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, args ...interface{})  {}
func (noopLogger) Error(msg string, args ...interface{}) {}
func (noopLogger) Debug(msg string, args ...interface{}) {}
func (noopLogger) Warn(msg string, args ...interface{})  {}

func TestGetDataServers(t *testing.T) {
	ctx := context.Background()
	repo := memoryregistry.NewRegistryRepository()
	registrySvc := registry.NewRegistryService(repo, noopLogger{},
		registry.WithPortRange(20000, 20100))

	basePort, _, err := registrySvc.RegisterWorker(ctx, "feed", 2, "10.0.0.5")
	require.NoError(t, err)
	code, err := registrySvc.AnnounceDataServer(ctx, "feed", "MOCK", basePort+1)
	require.NoError(t, err)
	require.Equal(t, defs.Succeeded, code)

	router := mux.NewRouter()
	NewHandler(registrySvc).Register(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/dataservers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]*domain.DataServerRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body["dataservers"], 1)
	assert.Equal(t, domain.BrokerMock, body["dataservers"][0].Broker)
	assert.Equal(t, "feed", body["dataservers"][0].WorkerName)
	assert.Equal(t, basePort+1, body["dataservers"][0].Port)
}

func TestGetDataServers_Empty(t *testing.T) {
	repo := memoryregistry.NewRegistryRepository()
	registrySvc := registry.NewRegistryService(repo, noopLogger{},
		registry.WithPortRange(20000, 20100))

	router := mux.NewRouter()
	NewHandler(registrySvc).Register(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/dataservers", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]*domain.DataServerRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body["dataservers"])
}
