package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"realty-backend/internal/config"
	"realty-backend/internal/domain"
	"realty-backend/internal/infrastructure/database"
	"realty-backend/internal/infrastructure/pagecache"
	"realty-backend/internal/infrastructure/queue"
	"realty-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

func setupRouter(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	require.NoError(t, mr.Set("session:mgr", `{"user":{"user_id":"u-mgr","role":"manager"}}`))
	require.NoError(t, mr.Set("session:view", `{"user":{"user_id":"u-view","role":"viewer"}}`))

	cfg := &config.Config{Env: "test", PageCacheTTL: time.Minute, HealthAdminKey: "k"}
	inv := SyncInvalidator(cfg, &pagecache.Cache{Rdb: rdb, TTL: cfg.PageCacheTTL})
	return &testEnv{app: NewApp(cfg, db, rdb, inv), db: db, mr: mr}
}

func (e *testEnv) do(t *testing.T, method, path, session, body string) *http.Response {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set("Cookie", middleware.SessionCookieName+"=s:"+session+".sig")
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestPublishFlow_EndToEnd(t *testing.T) {
	env := setupRouter(t)
	require.NoError(t, env.db.Create(&domain.Listing{ID: 42, Title: "Harbour View"}).Error)

	resp := env.do(t, "GET", "/api/v1/public/listings/42", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = env.do(t, "PATCH", "/api/v1/listings/42", "mgr", `{"publishingStatus":"PUBLISHED"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.do(t, "GET", "/api/v1/public/listings/42", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	resp = env.do(t, "GET", "/api/v1/public/listings/42", "", "")
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))

	resp = env.do(t, "PATCH", "/api/v1/listings/42", "mgr", `{"publishingStatus":"PENDING"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, env.mr.Exists(pagecache.Key("/listings/42")))

	resp = env.do(t, "GET", "/api/v1/public/listings/42", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = env.do(t, "GET", "/api/v1/listing-events/42", "mgr", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out struct {
		Data struct {
			Events []domain.ListingEvent `json:"events"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Data.Events, 2)
}

func TestListingsRoutes_AuthGating(t *testing.T) {
	env := setupRouter(t)
	require.NoError(t, env.db.Create(&domain.Listing{ID: 7, Title: "Seven"}).Error)

	resp := env.do(t, "PATCH", "/api/v1/listings/7", "", `{"publishingStatus":"PUBLISHED"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, "PATCH", "/api/v1/listings/7", "view", `{"publishingStatus":"PUBLISHED"}`)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.do(t, "GET", "/api/v1/listings/7", "view", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var l domain.Listing
	require.NoError(t, env.db.First(&l, 7).Error)
	assert.Equal(t, domain.StatusPending, l.PublishingStatus)
}

func TestBatchRoute_NotShadowedByID(t *testing.T) {
	env := setupRouter(t)
	require.NoError(t, env.db.Create(&[]domain.Listing{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}).Error)

	resp := env.do(t, "PATCH", "/api/v1/listings/publishing-status", "mgr", `{"ids":[1,2],"publishingStatus":"PUBLISHED"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, env.db.Model(&domain.Listing{}).Where("publishing_status = ?", domain.StatusPublished).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestHealthRoutes_Served(t *testing.T) {
	env := setupRouter(t)
	resp := env.do(t, "GET", "/health/json", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = env.do(t, "GET", "/reset?key=k", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSyncInvalidator_AddsWebhookWhenConfigured(t *testing.T) {
	cache := &pagecache.Cache{}
	assert.Len(t, SyncInvalidator(&config.Config{}, cache), 1)
	assert.Len(t, SyncInvalidator(&config.Config{RevalidateURL: "https://front.example/api/revalidate"}, cache), 2)
}

func TestNewInvalidator_AsyncResolvesConflicts(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	inv, err := NewInvalidator(&config.Config{RevalidateAsync: true, RedisURL: "redis://" + mr.Addr(), RevalidateDebounce: time.Second}, nil)
	require.NoError(t, err)
	enq, ok := inv.(*queue.Enqueuer)
	require.True(t, ok)
	assert.NotNil(t, enq.Inspector)
	assert.Equal(t, time.Second, enq.Debounce)
}
