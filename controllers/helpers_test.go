package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yvetteluxe63/yvetteluxe/common/errors"
	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/middleware"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"github.com/yvetteluxe63/yvetteluxe/repository"
	"github.com/yvetteluxe63/yvetteluxe/services"
	"go.uber.org/zap"
)

// memoryProducts is an in-memory ProductRepository.
type memoryProducts struct {
	mu       sync.Mutex
	products []models.Product
	err      error
}

func (m *memoryProducts) List(context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.Product(nil), m.products...), nil
}

func (m *memoryProducts) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	p.ID = uuid.NewString()
	m.products = append([]models.Product{*p}, m.products...)
	return nil
}

func (m *memoryProducts) Update(_ context.Context, id string, patch models.ProductPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			if patch.Name != nil {
				m.products[i].Name = *patch.Name
			}
			if patch.Price != nil {
				m.products[i].Price = *patch.Price
			}
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *memoryProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return repository.ErrProductNotFound
}

type testEnv struct {
	router   *gin.Engine
	registry *services.SessionRegistry
	catalog  *services.AdminCatalog
	repo     *memoryProducts
	kv       *database.MemoryKV
}

func newTestEnv(t *testing.T, products ...models.Product) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := database.NewMemoryKV()
	repo := &memoryProducts{products: products}
	catalog := services.NewAdminCatalog(repo, nil, kv, "", zap.NewNop())
	require.NoError(t, catalog.FetchAll(context.Background()))

	router := gin.New()
	router.Use(apperrors.ErrorMiddleware())

	return &testEnv{
		router:   router,
		registry: services.NewSessionRegistry(kv, nil, nil, "admin123", zap.NewNop()),
		catalog:  catalog,
		repo:     repo,
		kv:       kv,
	}
}

// sessionGroup returns a route group behind the session middleware.
func (e *testEnv) sessionGroup(path string) *gin.RouterGroup {
	return e.router.Group(path, middleware.Session(e.registry))
}

func (e *testEnv) do(t *testing.T, method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) apperrors.Error {
	t.Helper()
	var e apperrors.Error
	decode(t, rec, &e)
	return e
}

func newJSONRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
