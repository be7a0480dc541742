package serve

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	supporthttp "github.com/stellar/go/support/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openg2p/g2p-bridge-backend/db"
	"github.com/openg2p/g2p-bridge-backend/db/dbtest"
	"github.com/openg2p/g2p-bridge-backend/internal/crashtracker"
	"github.com/openg2p/g2p-bridge-backend/internal/data"
	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
)

type mockHTTPServer struct {
	mock.Mock
}

func (m *mockHTTPServer) Run(conf supporthttp.Config) {
	m.Called(conf)
}

// openTestModels opens a migrationless test database and builds the data
// models on top of it.
func openTestModels(t *testing.T) *data.Models {
	t.Helper()

	dbt := dbtest.OpenWithoutMigrations(t)
	t.Cleanup(func() { dbt.Close() })

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { dbConnectionPool.Close() })

	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)
	return models
}

func Test_Serve(t *testing.T) {
	dbt := dbtest.OpenWithoutMigrations(t)
	defer dbt.Close()
	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	mockCrashTrackerClient := &crashtracker.MockCrashTrackerClient{}
	mMonitorService := &monitor.MockMonitorService{}

	opts := ServeOptions{
		CrashTrackerClient: mockCrashTrackerClient,
		DatabaseDSN:        dbt.DSN,
		Environment:        "test",
		GitCommit:          "1234567890abcdef",
		Models:             models,
		MonitorService:     mMonitorService,
		Port:               8000,
		Version:            "x.y.z",
	}

	assertServerConfig := func(conf supporthttp.Config) {
		assert.Equal(t, ":8000", conf.ListenAddr)
		assert.Equal(t, 3*time.Minute, conf.TCPKeepAlive)
		assert.Equal(t, 50*time.Second, conf.ShutdownGracePeriod)
		assert.Equal(t, 5*time.Second, conf.ReadTimeout)
		assert.Equal(t, 35*time.Second, conf.WriteTimeout)
		assert.Equal(t, 2*time.Minute, conf.IdleTimeout)
		assert.Nil(t, conf.TLS)
		assert.ObjectsAreEqualValues(handleHTTP(opts), conf.Handler)
	}

	mHTTPServer := mockHTTPServer{}
	mHTTPServer.On("Run", mock.AnythingOfType("http.Config")).Run(func(args mock.Arguments) {
		conf, ok := args.Get(0).(supporthttp.Config)
		require.True(t, ok, "should be of type supporthttp.Config")
		assertServerConfig(conf)
		conf.OnStopping()
	}).Once()
	mockCrashTrackerClient.On("FlushEvents", 2*time.Second).Return(false).Once()
	mockCrashTrackerClient.On("Recover").Once()

	err = Serve(opts, &mHTTPServer)
	require.NoError(t, err)
	mHTTPServer.AssertExpectations(t)
	mockCrashTrackerClient.AssertExpectations(t)
}

func Test_handleHTTP_Health(t *testing.T) {
	models := openTestModels(t)

	mMonitorService := &monitor.MockMonitorService{}
	mMonitorService.
		On("MonitorHttpRequestDuration", mock.AnythingOfType("time.Duration"), monitor.HttpRequestLabels{
			Status: "200",
			Route:  "/health",
			Method: "GET",
		}).
		Return(nil).
		Once()

	handlerMux := handleHTTP(ServeOptions{
		Environment:      "test",
		GitCommit:        "1234567890abcdef",
		Models:           models,
		MonitorService:   mMonitorService,
		Version:          "x.y.z",
		dbConnectionPool: models.DBConnectionPool,
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handlerMux.ServeHTTP(w, req)

	resp := w.Result()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"status": "pass",
		"version": "x.y.z",
		"service_id": "serve",
		"release_id": "1234567890abcdef",
		"services": {
			"database": "pass"
		}
	}`, string(body))
	mMonitorService.AssertExpectations(t)
}

// getServeOptionsForTests returns an instance of ServeOptions for testing purposes.
// 🚨 Don't forget to call `defer serveOptions.dbConnectionPool.Close()` in your test 🚨.
func getServeOptionsForTests(t *testing.T, databaseDSN string) ServeOptions {
	t.Helper()

	mMonitorService := &monitor.MockMonitorService{}
	mMonitorService.On("MonitorHttpRequestDuration", mock.AnythingOfType("time.Duration"), mock.Anything).Return(nil)
	mMonitorService.On("MonitorDBQueryDuration", mock.AnythingOfType("time.Duration"), mock.Anything, mock.Anything).Return(nil)

	crashTrackerClient, err := crashtracker.NewDryRunClient()
	require.NoError(t, err)

	serveOptions := ServeOptions{
		CrashTrackerClient: crashTrackerClient,
		DatabaseDSN:        databaseDSN,
		Environment:        "test",
		GitCommit:          "1234567890abcdef",
		MonitorService:     mMonitorService,
		Port:               8000,
		Version:            "x.y.z",
	}
	err = serveOptions.SetupDependencies()
	require.NoError(t, err)

	return serveOptions
}

func Test_handleHTTP_bridgeEndpoints(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	serveOptions := getServeOptionsForTests(t, dbt.DSN)
	defer serveOptions.dbConnectionPool.Close()

	handlerMux := handleHTTP(serveOptions)

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/disbursement_envelope"},
		{http.MethodPost, "/disbursement_envelope/cancel"},
		{http.MethodPost, "/create_disbursements"},
		{http.MethodPost, "/cancel_disbursements"},
		{http.MethodPost, "/upload_mt940"},
		{http.MethodGet, "/disbursement_recon/export"},
		{http.MethodGet, "/benefit_program_configurations"},
		{http.MethodPost, "/benefit_program_configurations"},
		{http.MethodGet, "/health"},
	}
	for _, endpoint := range endpoints {
		t.Run(fmt.Sprintf("%s %s", endpoint.method, endpoint.path), func(t *testing.T) {
			req := httptest.NewRequest(endpoint.method, endpoint.path, nil)
			w := httptest.NewRecorder()
			handlerMux.ServeHTTP(w, req)

			resp := w.Result()
			assert.Contains(t, []int{http.StatusOK, http.StatusBadRequest}, resp.StatusCode)
		})
	}
}
