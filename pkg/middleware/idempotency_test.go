package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements RedisClient over a map
type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

// newIdempotentRouter counts handler invocations; status is what the handler answers
func newIdempotentRouter(config *IdempotencyConfig, status int, calls *int) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextKeyUserID, c.GetHeader("X-Test-User"))
		c.Next()
	})
	router.POST("/events/:id/register", IdempotencyMiddleware(config), func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	})
	return router
}

func doPost(router *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	store := newFakeRedis()
	calls := 0
	router := newIdempotentRouter(DefaultIdempotencyConfig(store), http.StatusCreated, &calls)
	headers := map[string]string{IdempotencyKeyHeader: "key-1", "X-Test-User": "user-1"}

	first := doPost(router, "/events/e1/register", `{}`, headers)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doPost(router, "/events/e1/register", `{}`, headers)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)
}

func TestIdempotency_KeysAreScopedPerUser(t *testing.T) {
	store := newFakeRedis()
	calls := 0
	router := newIdempotentRouter(DefaultIdempotencyConfig(store), http.StatusCreated, &calls)

	doPost(router, "/events/e1/register", `{}`, map[string]string{IdempotencyKeyHeader: "key-1", "X-Test-User": "user-1"})
	doPost(router, "/events/e1/register", `{}`, map[string]string{IdempotencyKeyHeader: "key-1", "X-Test-User": "user-2"})

	assert.Equal(t, 2, calls)
}

func TestIdempotency_KeyReusedForDifferentRequest(t *testing.T) {
	store := newFakeRedis()
	calls := 0
	router := newIdempotentRouter(DefaultIdempotencyConfig(store), http.StatusCreated, &calls)
	headers := map[string]string{IdempotencyKeyHeader: "key-1", "X-Test-User": "user-1"}

	doPost(router, "/events/e1/register", `{}`, headers)
	w := doPost(router, "/events/e2/register", `{}`, headers)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "IDEMPOTENCY_KEY_REUSED")
	assert.Equal(t, 1, calls)
}

func TestIdempotency_InFlightRequest(t *testing.T) {
	store := newFakeRedis()
	calls := 0
	config := DefaultIdempotencyConfig(store)
	router := newIdempotentRouter(config, http.StatusCreated, &calls)

	hash := hashRequest(http.MethodPost, "/events/e1/register", "user-1", []byte(`{}`))
	_, err := setIdempotencyRecordNX(context.Background(), store, IdempotencyKeyPrefix+"user-1:key-1",
		&IdempotencyRecord{Status: StatusProcessing, RequestHash: hash, CreatedAt: time.Now()}, time.Minute)
	require.NoError(t, err)

	w := doPost(router, "/events/e1/register", `{}`, map[string]string{IdempotencyKeyHeader: "key-1", "X-Test-User": "user-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "REQUEST_IN_PROGRESS")
	assert.Equal(t, 0, calls)
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	store := newFakeRedis()
	calls := 0
	router := newIdempotentRouter(DefaultIdempotencyConfig(store), http.StatusInternalServerError, &calls)
	headers := map[string]string{IdempotencyKeyHeader: "key-1", "X-Test-User": "user-1"}

	doPost(router, "/events/e1/register", `{}`, headers)
	assert.Equal(t, 0, store.size())

	doPost(router, "/events/e1/register", `{}`, headers)
	assert.Equal(t, 2, calls)
}

func TestIdempotency_ClientErrorsAreReplayed(t *testing.T) {
	store := newFakeRedis()
	calls := 0
	router := newIdempotentRouter(DefaultIdempotencyConfig(store), http.StatusConflict, &calls)
	headers := map[string]string{IdempotencyKeyHeader: "key-1", "X-Test-User": "user-1"}

	doPost(router, "/events/e1/register", `{}`, headers)
	w := doPost(router, "/events/e1/register", `{}`, headers)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_WithoutKey(t *testing.T) {
	t.Run("optional", func(t *testing.T) {
		calls := 0
		router := newIdempotentRouter(DefaultIdempotencyConfig(newFakeRedis()), http.StatusCreated, &calls)
		doPost(router, "/events/e1/register", `{}`, nil)
		doPost(router, "/events/e1/register", `{}`, nil)
		assert.Equal(t, 2, calls)
	})

	t.Run("required", func(t *testing.T) {
		calls := 0
		config := DefaultIdempotencyConfig(newFakeRedis())
		config.Required = true
		router := newIdempotentRouter(config, http.StatusCreated, &calls)

		w := doPost(router, "/events/e1/register", `{}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 0, calls)
	})
}

func TestIdempotency_FailsOpenOnRedisError(t *testing.T) {
	store := newFakeRedis()
	store.failGet = true
	calls := 0
	router := newIdempotentRouter(DefaultIdempotencyConfig(store), http.StatusCreated, &calls)
	headers := map[string]string{IdempotencyKeyHeader: "key-1", "X-Test-User": "user-1"}

	assert.Equal(t, http.StatusCreated, doPost(router, "/events/e1/register", `{}`, headers).Code)
	assert.Equal(t, http.StatusCreated, doPost(router, "/events/e1/register", `{}`, headers).Code)
	assert.Equal(t, 2, calls)
}
