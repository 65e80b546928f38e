package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roombook/internal/config"
	"roombook/internal/database"
	"roombook/internal/events"
	"roombook/internal/models"
	"roombook/internal/repository"
	"roombook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	labID    = "6f1c2a10-0000-4000-8000-000000000001"
	hallID   = "9b2e7d44-0000-4000-8000-000000000002"
	testDate = "2024-05-01"
)

type testEnv struct {
	db  *database.DB
	svc Services
	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SyncRooms(context.Background(), []models.Room{
		{ID: labID, Name: "Lab-1", Building: "Science", Type: models.RoomTypeLab, Capacity: 30, IsActive: true},
		{ID: hallID, Name: "Hall-A", Building: "Main", Type: models.RoomTypeSeminarHall, Capacity: 120, IsActive: true},
	}))

	env := &testEnv{db: db, now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	settings := service.DefaultSettings()
	settings.Now = func() time.Time { return env.now }

	bus := events.NewEventBus()
	env.svc = Services{
		Rooms:     service.NewRoomService(db, &logger),
		Calendar:  service.NewCalendarService(db, settings, &logger),
		Bookings:  service.NewBookingService(db, repository.NewMemoryCoordinator(), bus, settings, &logger),
		CheckIns:  service.NewCheckInService(db, bus, settings, &logger),
		Releaser:  service.NewAutoReleaseService(db, bus, settings, &logger),
		Analytics: service.NewAnalyticsService(db, settings, &logger),
	}
	return env
}

func openAPIConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true},
		Auth:    config.APIAuthConfig{HeaderUserID: "x-user-id"},
	}
}

func (e *testEnv) httpServer(t *testing.T, cfg config.APIConfig) *httptest.Server {
	t.Helper()
	logger := zerolog.New(io.Discard)
	srv := NewHTTPServer(cfg, e.svc, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type apiResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r apiResponse) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (r apiResponse) errorBody(t *testing.T) errorResponse {
	t.Helper()
	var out errorResponse
	r.decode(t, &out)
	return out
}

func doRequest(t *testing.T, method, url, userID string, body any, headers ...string) apiResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return apiResponse{status: resp.StatusCode, header: resp.Header, body: raw}
}

func bookingBody(roomID, start, end string) map[string]any {
	return map[string]any{
		"room_id":         roomID,
		"title":           "Robotics club",
		"date":            testDate,
		"start_time":      start,
		"end_time":        end,
		"attendees_count": 12,
	}
}
