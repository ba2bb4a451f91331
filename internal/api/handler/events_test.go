package handler

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"hostelwatch/backend/internal/eventhub"
	"hostelwatch/backend/internal/storage"
)

func newEventsRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "events.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE users (
		id text PRIMARY KEY,
		vit_id text UNIQUE,
		full_name text,
		email text,
		phone text,
		roles text,
		block_code text)`).Error)
	seed := func(id, vitID, roles string) {
		require.NoError(t, db.Exec(
			`INSERT INTO users (id, vit_id, full_name, email, phone, roles, block_code) VALUES (?, ?, '', '', '', ?, '')`,
			id, vitID, roles,
		).Error)
	}
	seed("u-student", "VIT2024001", "{student}")
	seed("u-warden", "VITWARDEN1", "{warden}")

	hub := eventhub.NewManagerService(nil, nil)
	go hub.Run()

	h := NewHandler(nil, hub, storage.NewStorageService(db, nil), nil)
	r := gin.New()
	r.GET("/events", RequireAuth(), h.ServeEvents)
	return r
}

func dialEvents(t *testing.T, wsURL, vitID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	token, err := generateJWT(vitID)
	require.NoError(t, err)
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	return websocket.DefaultDialer.Dial(wsURL, header)
}

func TestServeEvents_RejectsNonStaff(t *testing.T) {
	srv := httptest.NewServer(newEventsRouter(t))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"

	conn, resp, err := dialEvents(t, wsURL, "VIT2024001")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Nil(t, conn)
}

func TestServeEvents_RejectsUnknownActor(t *testing.T) {
	srv := httptest.NewServer(newEventsRouter(t))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"

	_, resp, err := dialEvents(t, wsURL, "VITNOBODY")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServeEvents_AllowsStaff(t *testing.T) {
	srv := httptest.NewServer(newEventsRouter(t))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"

	conn, resp, err := dialEvents(t, wsURL, "VITWARDEN1")
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
}

func TestServeEvents_RequiresToken(t *testing.T) {
	srv := httptest.NewServer(newEventsRouter(t))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
