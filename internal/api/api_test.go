package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/store"
)

const (
	testOwnerHeader = "X-Owner-ID"
	testOwner       = "u1"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	router   *gin.Engine
	registry *store.Registry
	gateway  *gateway.GormGateway
}

func newTestServer(t *testing.T, configure ...func(*Deps)) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:api_"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	gw := gateway.NewGormGateway(db)
	registry := store.NewRegistry(gw, store.RegistryConfig{Logger: discardLogger()})

	deps := Deps{
		Registry:    registry,
		Logger:      discardLogger(),
		OwnerHeader: testOwnerHeader,
	}
	for _, fn := range configure {
		fn(&deps)
	}

	router := NewRouter(discardLogger())
	RegisterRoutes(router, deps)
	return &testServer{router: router, registry: registry, gateway: gw}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	return s.doAs(testOwner, method, path, body)
}

func (s *testServer) doAs(owner, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set(testOwnerHeader, owner)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.doAs("", http.MethodGet, "/health", "")
	requireStatus(t, w, http.StatusOK)
}

func TestOwnerRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.doAs("", http.MethodGet, "/v1/resumes", "")
	requireStatus(t, w, http.StatusUnauthorized)

	w = s.doAs("../etc", http.MethodGet, "/v1/resumes", "")
	requireStatus(t, w, http.StatusUnauthorized)
}
