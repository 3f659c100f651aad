package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"groupcode/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = store.Close()
	})
	return NewServer(context.Background(), store, time.Hour, zerolog.Nop())
}

func TestCreateRoomAndExists(t *testing.T) {
	server := newTestServer(t)

	rec := httptest.NewRecorder()
	server.HandleCreateRoom(rec, httptest.NewRequest(http.MethodPost, "/rooms", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createRoomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Key, roomKeyLength)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	rec = httptest.NewRecorder()
	server.HandleRoomExists(rec, httptest.NewRequest(http.MethodGet, "/exists?room="+resp.Key, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	server.HandleRoomExists(rec, httptest.NewRequest(http.MethodGet, "/exists?room=NOPE", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	server.HandleRoomExists(rec, httptest.NewRequest(http.MethodGet, "/exists", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRoomWithPasscode(t *testing.T) {
	server := newTestServer(t)

	body := strings.NewReader(`{"passcode":"sesame"}`)
	req := httptest.NewRequest(http.MethodPost, "/rooms", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.HandleCreateRoom(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createRoomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	res, err := server.store.GetReservation(context.Background(), resp.Key)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NoError(t, bcrypt.CompareHashAndPassword(res.PasscodeHash, []byte("sesame")))
}

func TestCreateRoomRejectsWrongMethod(t *testing.T) {
	server := newTestServer(t)
	rec := httptest.NewRecorder()
	server.HandleCreateRoom(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExistsSeesLiveRooms(t *testing.T) {
	server := newTestServer(t)
	// a room created implicitly by a join, no reservation behind it
	server.registry.Join("adhoc", testClient("c1", "Alice"))

	rec := httptest.NewRecorder()
	server.HandleRoomExists(rec, httptest.NewRequest(http.MethodGet, "/exists?room=adhoc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsPayload(t *testing.T) {
	server := newTestServer(t)
	server.registry.Join("r1", testClient("c1", "Alice"))

	rec := httptest.NewRecorder()
	server.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.EqualValues(t, 1, payload["active_rooms"])
	assert.EqualValues(t, 1, payload["active_participants"])
	assert.Equal(t, Version, payload["version"])
}
