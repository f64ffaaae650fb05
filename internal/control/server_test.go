package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.DB, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.New(store.Config{Path: filepath.Join(dir, "engine.db"), Name: "test"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	srv := New("127.0.0.1:0", db, &cfg, zerolog.Nop())
	return srv, db, &cfg
}

func TestHandlePauseSetsStateAndAudits(t *testing.T) {
	srv, db, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/control/pause", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	flags, err := db.ControlFlags()
	require.NoError(t, err)
	assert.True(t, flags.Paused)
}

func TestHandleKillSwitchActivateAndDeactivate(t *testing.T) {
	srv, db, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control/kill-switch/activate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	flags, err := db.ControlFlags()
	require.NoError(t, err)
	assert.True(t, flags.KillSwitch)

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/control/kill-switch/deactivate", nil))
	flags, err = db.ControlFlags()
	require.NoError(t, err)
	assert.False(t, flags.KillSwitch)
}

func TestHandleConfigShowWholeAndByKey(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/control/config", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/control/config?key=risk.max_position_size_usd", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "risk.max_position_size_usd", body["key"])
}

func TestHandleConfigSetUpdatesLiveConfig(t *testing.T) {
	srv, _, cfg := newTestServer(t)

	body := strings.NewReader(`{"key": "risk.max_position_size_usd", "value": "7.5"}`)
	req := httptest.NewRequest(http.MethodPost, "/control/config", body)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7.5, cfg.Risk.MaxPositionSizeUSD)
}

func TestHandleConfigSetRejectsUnknownKey(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := strings.NewReader(`{"key": "risk.not_a_real_field", "value": "1"}`)
	req := httptest.NewRequest(http.MethodPost, "/control/config", body)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
