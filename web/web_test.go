package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termibbl/conf"
	"termibbl/gameserver"
)

func testDashboard(t *testing.T) *Dashboard {
	t.Helper()
	c := conf.Load()
	srv := gameserver.New(c)

	go srv.RunLoop()
	t.Cleanup(srv.Shutdown)

	return New(c, srv)
}

func router(d *Dashboard) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", d.healthz).Methods(http.MethodGet)
	r.HandleFunc("/rooms", d.rooms).Methods(http.MethodGet)
	r.HandleFunc("/", d.index).Methods(http.MethodGet)
	return r
}

func TestHealthz(t *testing.T) {
	d := testDashboard(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router(d).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestIndexRendersEmptyState(t *testing.T) {
	d := testDashboard(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router(d).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0 room(s)")
}

func TestRoomsReturnsJSON(t *testing.T) {
	d := testDashboard(t)
	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	router(d).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"Rooms":0`)
}
