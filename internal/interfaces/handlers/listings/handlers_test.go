package listings

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	listsvc "realty-backend/internal/application/listings"
	"realty-backend/internal/domain"
	"realty-backend/internal/infrastructure/pagecache"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupListingsTest(t *testing.T) (*fiber.App, *gorm.DB, *miniredis.Miniredis) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Listing{}))
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	h := &Handlers{Service: &listsvc.Service{DB: db, Cache: &pagecache.Cache{Rdb: rdb, TTL: time.Minute}}}
	app := fiber.New()
	app.Get("/listings", h.GetListings)
	app.Get("/listings/:id", h.GetListingByID)
	app.Get("/public/listings/:id", h.GetPublicListing)
	return app, db, mr
}

func get(t *testing.T, app *fiber.App, path string) (int, map[string]interface{}, string) {
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out, resp.Header.Get("X-Cache")
}

func TestGetListings_StatusFilter(t *testing.T) {
	app, db, _ := setupListingsTest(t)
	require.NoError(t, db.Create(&[]domain.Listing{
		{ID: 1, Title: "A", PublishingStatus: domain.StatusPublished},
		{ID: 2, Title: "B", PublishingStatus: domain.StatusPending},
	}).Error)

	code, out, _ := get(t, app, "/listings?status=PENDING")
	assert.Equal(t, 200, code)
	data := out["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, float64(2), data[0].(map[string]interface{})["id"])

	code, _, _ = get(t, app, "/listings?status=ARCHIVED")
	assert.Equal(t, 400, code)
	code, _, _ = get(t, app, "/listings?kind=castle")
	assert.Equal(t, 400, code)
}

func TestGetListingByID(t *testing.T) {
	app, db, _ := setupListingsTest(t)
	require.NoError(t, db.Create(&domain.Listing{ID: 5, Title: "Five"}).Error)

	code, out, _ := get(t, app, "/listings/5")
	assert.Equal(t, 200, code)
	assert.Equal(t, "PENDING", out["data"].(map[string]interface{})["publishingStatus"])

	code, _, _ = get(t, app, "/listings/6")
	assert.Equal(t, 404, code)
	code, _, _ = get(t, app, "/listings/abc")
	assert.Equal(t, 400, code)
}

func TestGetPublicListing_CacheHitAfterMiss(t *testing.T) {
	app, db, mr := setupListingsTest(t)
	require.NoError(t, db.Create(&domain.Listing{ID: 42, Title: "Harbour View", PublishingStatus: domain.StatusPublished}).Error)

	code, out, cache := get(t, app, "/public/listings/42")
	assert.Equal(t, 200, code)
	assert.Equal(t, "MISS", cache)
	assert.Equal(t, "Harbour View", out["data"].(map[string]interface{})["title"])
	assert.True(t, mr.Exists("page:/listings/42"))

	code, _, cache = get(t, app, "/public/listings/42")
	assert.Equal(t, 200, code)
	assert.Equal(t, "HIT", cache)
}

func TestGetPublicListing_PendingIsHidden(t *testing.T) {
	app, db, _ := setupListingsTest(t)
	require.NoError(t, db.Create(&domain.Listing{ID: 7, Title: "Draft"}).Error)

	code, _, _ := get(t, app, "/public/listings/7")
	assert.Equal(t, 404, code)
}
