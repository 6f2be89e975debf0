package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/internal/repository"
	"github.com/prohmpiriya/greenloop-event-service/internal/service"
	"github.com/prohmpiriya/greenloop-event-service/pkg/middleware"
	"github.com/prohmpiriya/greenloop-event-service/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdminID = "admin-1"
	testUserID  = "user-1"
)

type testEnv struct {
	store  *repository.MemoryStore
	router *gin.Engine
}

// withCaller stands in for JWTMiddleware, reading the identity from test
// headers
func withCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(middleware.ContextKeyUserID, id)
			c.Set(middleware.ContextKeyEmail, id+"@greenloop.test")
			c.Set(middleware.ContextKeyRole, c.GetHeader("X-Test-Role"))
		}
		c.Next()
	}
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	pub := service.NewNoOpEventPublisher()

	events := NewEventHandler(service.NewEventService(store.Events()), service.NewQueryService(store.Events()))
	registration := NewRegistrationHandler(service.NewRegistrationService(store.Events(), store.Attendees(), pub))
	attendance := NewAttendanceHandler(service.NewAttendanceService(store.Events(), store.Attendees(), pub))
	queries := NewQueryHandler(service.NewQueryService(store.Events()))
	tags := NewTagHandler(service.NewTagService(store.Events(), store.Tags()))

	router := gin.New()
	router.Use(withCaller())
	v1 := router.Group("/api/v1")
	{
		v1.GET("/events", events.List)
		v1.GET("/events/types", queries.Types)
		v1.GET("/events/stats/open/total", queries.CountOpen)
		v1.GET("/events/:id", events.Get)
		v1.POST("/events", events.Create)
		v1.POST("/events/:id/register", registration.Register)
		v1.DELETE("/events/:id/register", registration.Deregister)
		v1.GET("/events/:id/is-registered", registration.IsRegistered)
		v1.POST("/events/scan", attendance.Scan)
		v1.POST("/events/:id/tags", tags.Add)
		v1.GET("/me/events/upcoming", queries.MyUpcoming)
	}

	return &testEnv{store: store, router: router}
}

func (e *testEnv) seed(t *testing.T, status domain.EventStatus, capacity int) *domain.Event {
	t.Helper()
	now := time.Now()
	ev := &domain.Event{
		ID:        uuid.New().String(),
		Name:      "Community Garden Day",
		Type:      domain.EventTypeVolunteering,
		Status:    status,
		Capacity:  capacity,
		Coins:     15,
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
		QRToken:   domain.NewQRToken(),
	}
	require.NoError(t, e.store.Events().Create(context.Background(), ev))
	return ev
}

func (e *testEnv) do(method, path, userID, role string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
		req.Header.Set("X-Test-Role", role)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) *response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &resp
}

func TestRegister_StatusMapping(t *testing.T) {
	env := newTestEnv()
	open := env.seed(t, domain.EventStatusRegistration, 1)
	ongoing := env.seed(t, domain.EventStatusOngoing, 10)
	closed := env.seed(t, domain.EventStatusClosed, 10)

	w := env.do(http.MethodPost, "/api/v1/events/"+open.ID+"/register", testUserID, "user", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodPost, "/api/v1/events/"+open.ID+"/register", testUserID, "user", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_REGISTERED", decode(t, w).Error.Code)

	w = env.do(http.MethodPost, "/api/v1/events/"+open.ID+"/register", "user-2", "user", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EVENT_FULL", decode(t, w).Error.Code)

	w = env.do(http.MethodPost, "/api/v1/events/"+ongoing.ID+"/register", testUserID, "user", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodPost, "/api/v1/events/"+closed.ID+"/register", testUserID, "user", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "REGISTRATION_CLOSED", decode(t, w).Error.Code)

	w = env.do(http.MethodPost, "/api/v1/events/missing/register", testUserID, "user", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", decode(t, w).Error.Code)

	w = env.do(http.MethodPost, "/api/v1/events/"+open.ID+"/register", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMalformedEventID_NotFound(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodGet, "/api/v1/events/abc", testUserID, "user", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", decode(t, w).Error.Code)

	w = env.do(http.MethodPost, "/api/v1/events/abc/register", testUserID, "user", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", decode(t, w).Error.Code)

	w = env.do(http.MethodPost, "/api/v1/events/abc/tags", testAdminID, "admin", map[string]string{"name": "beach"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", decode(t, w).Error.Code)
}

func TestIsRegisteredAndDeregister(t *testing.T) {
	env := newTestEnv()
	ev := env.seed(t, domain.EventStatusRegistration, 10)
	base := "/api/v1/events/" + ev.ID

	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, base+"/register", testUserID, "user", nil).Code)

	w := env.do(http.MethodGet, base+"/is-registered", testUserID, "user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, true, data["registered"])

	assert.Equal(t, http.StatusOK, env.do(http.MethodDelete, base+"/register", testUserID, "user", nil).Code)

	w = env.do(http.MethodDelete, base+"/register", testUserID, "user", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ATTENDEE_NOT_FOUND", decode(t, w).Error.Code)
}

func TestScan(t *testing.T) {
	env := newTestEnv()
	ev := env.seed(t, domain.EventStatusRegistration, 10)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/register", testUserID, "user", nil).Code)

	body := map[string]string{"qr_token": ev.QRToken}

	w := env.do(http.MethodPost, "/api/v1/events/scan", testUserID, "user", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INVALID_EVENT_STATE", decode(t, w).Error.Code)

	_, err := env.store.Events().UpdateStatus(context.Background(), ev.ID, domain.TransitionStart.From, domain.EventStatusOngoing)
	require.NoError(t, err)

	w = env.do(http.MethodPost, "/api/v1/events/scan", "stranger", "user", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ATTENDEE_NOT_REGISTERED", decode(t, w).Error.Code)

	w = env.do(http.MethodPost, "/api/v1/events/scan", testUserID, "user", body)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, float64(15), data["coins_earned"])

	w = env.do(http.MethodPost, "/api/v1/events/scan", testUserID, "user", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ATTENDANCE_ALREADY_MARKED", decode(t, w).Error.Code)

	w = env.do(http.MethodPost, "/api/v1/events/scan", testUserID, "user", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateEvent(t *testing.T) {
	env := newTestEnv()
	start := time.Now().Add(24 * time.Hour).UTC()
	body := map[string]interface{}{
		"name":       "Tree Planting",
		"type":       "tree_planting",
		"capacity":   25,
		"coins":      50,
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(2 * time.Hour).Format(time.RFC3339),
	}

	w := env.do(http.MethodPost, "/api/v1/events", testUserID, "user", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/v1/events", testAdminID, "admin", body)
	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "REGISTRATION", data["status"])
	assert.Equal(t, "TREE_PLANTING", data["type"])
	assert.NotEmpty(t, data["qr_token"])

	body["end_time"] = start.Add(-time.Hour).Format(time.RFC3339)
	w = env.do(http.MethodPost, "/api/v1/events", testAdminID, "admin", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestGetEvent_HidesTokenFromUsers(t *testing.T) {
	env := newTestEnv()
	ev := env.seed(t, domain.EventStatusRegistration, 10)

	w := env.do(http.MethodGet, "/api/v1/events/"+ev.ID, testUserID, "user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.NotContains(t, data, "qr_token")

	w = env.do(http.MethodGet, "/api/v1/events/"+ev.ID, testAdminID, "admin", nil)
	data = decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, ev.QRToken, data["qr_token"])
}

func TestListEvents(t *testing.T) {
	env := newTestEnv()
	env.seed(t, domain.EventStatusRegistration, 10)
	env.seed(t, domain.EventStatusRegistration, 10)
	env.seed(t, domain.EventStatusClosed, 10)

	w := env.do(http.MethodGet, "/api/v1/events?status=registration&limit=1", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	w = env.do(http.MethodGet, "/api/v1/events?status=archived", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueries(t *testing.T) {
	env := newTestEnv()
	ev := env.seed(t, domain.EventStatusRegistration, 10)
	env.seed(t, domain.EventStatusOngoing, 10)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/register", testUserID, "user", nil).Code)

	w := env.do(http.MethodGet, "/api/v1/events/stats/open/total", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w).Data.(map[string]interface{})["count"])

	w = env.do(http.MethodGet, "/api/v1/events/types", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w).Data.(map[string]interface{})["types"], 7)

	w = env.do(http.MethodGet, "/api/v1/me/events/upcoming", testUserID, "user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w).Data, 1)
}

func TestAddTag_Forbidden(t *testing.T) {
	env := newTestEnv()
	ev := env.seed(t, domain.EventStatusRegistration, 10)

	w := env.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/tags", testUserID, "user", map[string]string{"name": "beach"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/v1/events/"+ev.ID+"/tags", testAdminID, "admin", map[string]string{"name": "Beach"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "beach", decode(t, w).Data.(map[string]interface{})["name"])
}

// failingQueryService returns an infrastructure error from every call
type failingQueryService struct {
	service.QueryService
}

func (failingQueryService) CountOpenEvents(ctx context.Context) (int, error) {
	return 0, errors.New("pq: connection refused to 10.0.0.5")
}

func TestInternalErrorDoesNotLeak(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/count", NewQueryHandler(failingQueryService{}).CountOpen)

	req := httptest.NewRequest(http.MethodGet, "/count", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	healthy := NewHealthHandler().WithComponent("database", checkerFunc(func(ctx context.Context) error { return nil }))
	degraded := NewHealthHandler().
		WithComponent("database", checkerFunc(func(ctx context.Context) error { return nil })).
		WithComponent("redis", checkerFunc(func(ctx context.Context) error { return errors.New("timeout") }))

	router := gin.New()
	router.GET("/health", healthy.Health)
	router.GET("/ready", healthy.Ready)
	router.GET("/ready-degraded", degraded.Ready)
	router.GET("/scheduler", healthy.SchedulerStats)

	for path, want := range map[string]int{
		"/health":         http.StatusOK,
		"/ready":          http.StatusOK,
		"/ready-degraded": http.StatusServiceUnavailable,
		"/scheduler":      http.StatusOK,
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}
