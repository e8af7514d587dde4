package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brooktewabe/Activity-Log-Service/internal/app"
	"github.com/brooktewabe/Activity-Log-Service/internal/broker/brokertest"
	"github.com/brooktewabe/Activity-Log-Service/internal/config"
	"github.com/brooktewabe/Activity-Log-Service/internal/metrics"
	"github.com/brooktewabe/Activity-Log-Service/internal/ratelimit"
)

func newTestState(p *brokertest.Recorder, withMetrics bool) *app.State {
	return newTestStateWithConfig(config.Default(), p, withMetrics)
}

func newTestStateWithConfig(cfg config.Config, p *brokertest.Recorder, withMetrics bool) *app.State {
	gin.SetMode(gin.TestMode)

	var m *metrics.Metrics
	if withMetrics {
		m = metrics.New()
	}
	return app.NewWithProducer(cfg, p, m, log.New(&bytes.Buffer{}, "", 0))
}

func newTestLimiter(t *testing.T, limit int) *ratelimit.RedisLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	limiter := ratelimit.NewRedisLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}), limit, time.Minute)
	t.Cleanup(func() { _ = limiter.Close() })
	return limiter
}

// postFrom sends a log from remoteAddr claiming forwardedFor in X-Forwarded-For.
func postFrom(r http.Handler, remoteAddr, forwardedFor string) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/logs", strings.NewReader(validLog))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(rec, req)
	return rec.Code
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"
	r.ServeHTTP(rec, req)
	return rec
}

const validLog = `{"service":"s","action":"a","severity":"info"}`

func TestNewRouter_Routes(t *testing.T) {
	p := &brokertest.Recorder{}
	r := NewRouter(newTestState(p, true), nil)

	rec := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(r, http.MethodPost, "/api/v1/logs", validLog)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, p.Messages(), 1)

	rec = do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="POST",route="/api/v1/logs",status_code="202"} 1`)
	assert.Contains(t, body, "broker_messages_produced_total 1")
}

func TestNewRouter_NotFound(t *testing.T) {
	r := NewRouter(newTestState(&brokertest.Recorder{}, false), nil)

	rec := do(r, http.MethodGet, "/api/v1/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"success": false, "error": "Not Found", "path": "/api/v1/nope"}, body)
}

func TestNewRouter_MetricsDisabled(t *testing.T) {
	r := NewRouter(newTestState(&brokertest.Recorder{}, false), nil)

	rec := do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	r := NewRouter(newTestState(&brokertest.Recorder{}, false), nil)
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRouter_RateLimitsIngestionOnly(t *testing.T) {
	limiter := newTestLimiter(t, 1)

	p := &brokertest.Recorder{}
	r := NewRouter(newTestState(p, false), limiter)

	assert.Equal(t, http.StatusAccepted, do(r, http.MethodPost, "/api/v1/logs", validLog).Code)

	rec := do(r, http.MethodPost, "/api/v1/logs", validLog)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), ratelimit.Message)
	assert.Len(t, p.Messages(), 1)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	started := make(chan struct{})
	r := gin.New()
	r.GET("/slow", func(c *gin.Context) {
		close(started)
		time.Sleep(200 * time.Millisecond)
		c.String(http.StatusOK, "done")
	})

	cfg := config.Default()
	cfg.ShutdownTimeout = 5 * time.Second

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- Serve(ctx, NewServer(cfg, r), ln, cfg, log.New(&bytes.Buffer{}, "", 0))
	}()

	type result struct {
		body string
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/slow")
		if err != nil {
			resCh <- result{err: err}
			return
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		resCh <- result{body: string(b), err: err}
	}()

	<-started
	cancel()

	res := <-resCh
	require.NoError(t, res.err)
	assert.Equal(t, "done", res.body)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}

func TestListenAndServe_BadAddress(t *testing.T) {
	cfg := config.Default()
	cfg.Port = -1

	err := ListenAndServe(context.Background(), cfg, http.NotFoundHandler(), log.New(&bytes.Buffer{}, "", 0))
	assert.Error(t, err)
}

func TestNewRouter_ForwardedForFromUntrustedPeerIgnored(t *testing.T) {
	p := &brokertest.Recorder{}
	r := NewRouter(newTestState(p, false), newTestLimiter(t, 1))

	codes := make([]int, 5)
	for i := range codes {
		codes[i] = postFrom(r, "192.0.2.10:4000", fmt.Sprintf("10.9.9.%d", i))
	}

	assert.Equal(t, []int{202, 429, 429, 429, 429}, codes)
	assert.Len(t, p.Messages(), 1)
}

func TestNewRouter_ForwardedForFromTrustedProxy(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.TrustedProxies = []string{"192.0.2.0/24"}

	p := &brokertest.Recorder{}
	r := NewRouter(newTestStateWithConfig(cfg, p, false), newTestLimiter(t, 1))

	// Each forwarded client has its own budget behind the proxy.
	assert.Equal(t, http.StatusAccepted, postFrom(r, "192.0.2.10:4000", "10.9.9.1"))
	assert.Equal(t, http.StatusAccepted, postFrom(r, "192.0.2.10:4000", "10.9.9.2"))
	assert.Equal(t, http.StatusTooManyRequests, postFrom(r, "192.0.2.10:4000", "10.9.9.1"))
}

func TestNewRouter_BodyLimit(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.MaxBodyBytes = 64

	p := &brokertest.Recorder{}
	r := NewRouter(newTestStateWithConfig(cfg, p, false), nil)

	big := `{"service":"s","action":"a","severity":"info","metadata":"` + strings.Repeat("x", 100) + `"}`
	for _, path := range []string{"/api/v1/logs", "/api/v1/logs/batch"} {
		body := big
		if strings.HasSuffix(path, "batch") {
			body = "[" + big + "]"
		}
		rec := do(r, http.MethodPost, path, body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "request body too large")
	}

	assert.Equal(t, http.StatusAccepted, do(r, http.MethodPost, "/api/v1/logs", validLog).Code)
	assert.Len(t, p.Messages(), 1)
}

func TestNewRouter_LeavesDebugMode(t *testing.T) {
	gin.SetMode(gin.DebugMode)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	cfg := config.Default()
	_ = NewRouter(app.NewWithProducer(cfg, &brokertest.Recorder{}, nil, log.New(&bytes.Buffer{}, "", 0)), nil)

	assert.Equal(t, gin.ReleaseMode, gin.Mode())
}
