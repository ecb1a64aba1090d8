package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"FleetStock/internal/auth"
	"FleetStock/internal/cache"
	"FleetStock/internal/catalog"
	"FleetStock/internal/config"
	"FleetStock/internal/mirror"
	"FleetStock/internal/model"
	"FleetStock/internal/sheets"
	"FleetStock/internal/sheets/sheetstest"
	"FleetStock/internal/store"
	"FleetStock/internal/syncer"
	"FleetStock/internal/transfer"
)

type apiFixture struct {
	remote *sheetstest.Server
	mirror *mirror.Mirror
	api    *httptest.Server
	client *http.Client
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	remote := sheetstest.New()
	t.Cleanup(remote.Close)

	remote.SetTable(sheets.QuerySettings, [][]any{
		{"Key", "Value"},
		{model.SettingActiveSeasons, "heating,cooling,year-round"},
	})
	remote.SetTable(sheets.QueryCategories, [][]any{
		{"ID", "Name", "Parent", "Order", "Image"},
		{"heat", "Heating", "", 1, ""},
		{"burners", "Burners", "heat", 2, ""},
	})
	remote.SetTable(sheets.QueryTrucks, [][]any{
		{"ID", "Name", "Active"},
		{"t1", "Van 1", true},
		{"t2", "Van 2", true},
	})
	remote.SetTable(sheets.QueryInventory, [][]any{
		{"ID", "Name", "Category", "Barcode", "Image", "Shop", "MinStock", "t1", "t2", "Price", "Link", "Season", "MinTruck-t1", "MinTruck-t2"},
		{"p1", "Igniter", "burners", "40123", "", 5, 2, 1, 0, "10", "", "heating", 2, 0},
	})
	remote.SetTable(sheets.QueryHistory, [][]any{{"Timestamp", "Tech", "Action"}})
	remote.SetTable(sheets.QueryUsers, [][]any{
		{"PIN", "Name", "Truck", "IsOwner", "CanEditPin"},
		{"1234", "Alex", "t1", true, true},
		{"5678", "Sam", "t2", false, false},
	})

	kv, _, err := store.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, kv.Migrate())
	t.Cleanup(func() { _ = kv.Close() })

	sugar := zap.NewNop().Sugar()
	cfg := &config.Config{AuthSecret: "test-secret", RemoteRPS: 100}
	sheetClient := sheets.NewClient(remote.URL, cfg.RemoteRPS, sugar)
	m := mirror.New()
	tiered := cache.New(kv, time.Hour)
	sync := syncer.New(sheetClient, m, tiered, time.Minute, sugar)
	require.NoError(t, sync.Bootstrap(context.Background()))

	engine := transfer.NewEngine(sheetClient, m, nil, sugar)
	authService := auth.NewService(sheetClient, m, kv, sugar)
	catalogService := catalog.NewService(sheetClient, m, tiered, sugar)

	h := NewHandler(authService, catalogService, engine, sync, m, sugar, cfg)
	api := httptest.NewServer(h.Router)
	t.Cleanup(api.Close)

	return &apiFixture{
		remote: remote,
		mirror: m,
		api:    api,
		client: api.Client(),
	}
}

func (f *apiFixture) login(t *testing.T, pin string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"pin": pin})
	resp, err := f.client.Post(f.api.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestAPI_LoginFlow(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.login(t, "1234")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Alex", got["name"])
	assert.Equal(t, true, got["isOwner"])

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "auth_token" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "login must set the session cookie")
	assert.NotEmpty(t, sessionCookie.Value)
}

func TestAPI_WrongPINAndLockout(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 5; i++ {
		resp := f.login(t, "0000")
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := f.login(t, "0000")
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestAPI_MalformedPIN(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.login(t, "12ab")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_UnauthenticatedIsRejected(t *testing.T) {
	f := newAPIFixture(t)
	resp, err := http.Get(f.api.URL + "/api/parts")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func authedRequest(t *testing.T, f *apiFixture, pin, method, path string, payload any) *http.Response {
	t.Helper()
	login := f.login(t, pin)
	login.Body.Close()
	require.Equal(t, http.StatusOK, login.StatusCode)

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, f.api.URL+path, &body)
	require.NoError(t, err)
	for _, c := range login.Cookies() {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAPI_PartsAndBarcode(t *testing.T) {
	f := newAPIFixture(t)

	resp := authedRequest(t, f, "1234", http.MethodGet, "/api/parts", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var parts []model.Part
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parts))
	require.Len(t, parts, 1)
	assert.Equal(t, "Igniter", parts[0].Name)

	byCode := authedRequest(t, f, "1234", http.MethodGet, "/api/parts?barcode=40123", nil)
	defer byCode.Body.Close()
	assert.Equal(t, http.StatusOK, byCode.StatusCode)

	missing := authedRequest(t, f, "1234", http.MethodGet, "/api/parts?barcode=nope", nil)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestAPI_LoadTransfer(t *testing.T) {
	f := newAPIFixture(t)

	resp := authedRequest(t, f, "1234", http.MethodPost, "/api/transfers/load",
		map[string]any{"partId": "p1", "quantity": 2, "truck": "t1"})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	updates := f.remote.CommandsFor(sheets.CmdUpdateQuantity)
	require.Len(t, updates, 1)
	u := updates[0].Body["updates"].(map[string]any)
	assert.Equal(t, float64(3), u[model.LocationShop])
	assert.Equal(t, float64(3), u["t1"])
	assert.Len(t, f.remote.CommandsFor(sheets.CmdAddTransaction), 1)
}

func TestAPI_TransferErrorMapping(t *testing.T) {
	f := newAPIFixture(t)

	tooMany := authedRequest(t, f, "1234", http.MethodPost, "/api/transfers/load",
		map[string]any{"partId": "p1", "quantity": 99, "truck": "t1"})
	tooMany.Body.Close()
	assert.Equal(t, http.StatusConflict, tooMany.StatusCode, "insufficient stock maps to 409")

	badTruck := authedRequest(t, f, "1234", http.MethodPost, "/api/transfers/load",
		map[string]any{"partId": "p1", "quantity": 1, "truck": "nope"})
	badTruck.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badTruck.StatusCode)

	sameTruck := authedRequest(t, f, "1234", http.MethodPost, "/api/transfers/transfer",
		map[string]any{"partId": "p1", "quantity": 1, "truck": "t1", "toTruck": "t1"})
	sameTruck.Body.Close()
	assert.Equal(t, http.StatusBadRequest, sameTruck.StatusCode)

	ghost := authedRequest(t, f, "1234", http.MethodPost, "/api/transfers/load",
		map[string]any{"partId": "ghost", "quantity": 1, "truck": "t1"})
	ghost.Body.Close()
	assert.Equal(t, http.StatusNotFound, ghost.StatusCode)
}

func TestAPI_AlertsOwnTruckFirst(t *testing.T) {
	f := newAPIFixture(t)

	// p1: на t1 остаток 1 при минимуме 2 — дефицит только у t1
	resp := authedRequest(t, f, "1234", http.MethodGet, "/api/alerts", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report mirror.AlertReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.False(t, report.AllGood)
	require.NotEmpty(t, report.Sections)
	assert.Equal(t, "t1", report.Sections[0].Location)
	assert.True(t, report.Sections[0].OwnTruck)
}

func TestAPI_CategoryTree(t *testing.T) {
	f := newAPIFixture(t)

	roots := authedRequest(t, f, "1234", http.MethodGet, "/api/categories", nil)
	defer roots.Body.Close()
	require.Equal(t, http.StatusOK, roots.StatusCode)
	var cats []model.Category
	require.NoError(t, json.NewDecoder(roots.Body).Decode(&cats))
	require.Len(t, cats, 1)
	assert.Equal(t, "heat", cats[0].ID)

	crumbs := authedRequest(t, f, "1234", http.MethodGet, "/api/categories/burners/breadcrumb", nil)
	defer crumbs.Body.Close()
	var trail []model.Category
	require.NoError(t, json.NewDecoder(crumbs.Body).Decode(&trail))
	require.Len(t, trail, 2)
	assert.Equal(t, "heat", trail[0].ID)

	parts := authedRequest(t, f, "1234", http.MethodGet, "/api/categories/heat/parts?subtree=true", nil)
	defer parts.Body.Close()
	var members []model.Part
	require.NoError(t, json.NewDecoder(parts.Body).Decode(&members))
	assert.Len(t, members, 1, "subtree view must include descendant categories")
}

func TestAPI_AdminPermissions(t *testing.T) {
	f := newAPIFixture(t)

	// не-владелец не управляет грузовиками
	forbidden := authedRequest(t, f, "5678", http.MethodPost, "/api/trucks",
		map[string]any{"id": "t3", "name": "Van 3", "active": true})
	forbidden.Body.Close()
	assert.Equal(t, http.StatusForbidden, forbidden.StatusCode)

	created := authedRequest(t, f, "1234", http.MethodPost, "/api/trucks",
		map[string]any{"id": "t3", "name": "Van 3", "active": true})
	created.Body.Close()
	assert.Equal(t, http.StatusNoContent, created.StatusCode)
}

func TestAPI_SeasonsValidation(t *testing.T) {
	f := newAPIFixture(t)

	empty := authedRequest(t, f, "1234", http.MethodPost, "/api/settings/seasons",
		map[string]any{"seasons": []string{}})
	empty.Body.Close()
	assert.Equal(t, http.StatusBadRequest, empty.StatusCode)

	saved := authedRequest(t, f, "1234", http.MethodPost, "/api/settings/seasons",
		map[string]any{"seasons": []string{"heating"}})
	saved.Body.Close()
	assert.Equal(t, http.StatusNoContent, saved.StatusCode)
}

func TestAPI_QuickLoadPlan(t *testing.T) {
	f := newAPIFixture(t)
	f.remote.Raw[sheets.QueryLowStock] = map[string]any{
		"shop":   []map[string]any{{"id": "p1", "current": 1, "minimum": 2, "needed": 1, "shopQty": 1}},
		"trucks": map[string]any{},
	}

	resp := authedRequest(t, f, "1234", http.MethodGet, "/api/quickload", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plan []transfer.PlanItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))
	require.Len(t, plan, 1)
	assert.Equal(t, "Igniter", plan[0].Name)
}
