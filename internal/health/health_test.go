package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type mockPinger struct{ err error }

func (m *mockPinger) PingContext(context.Context) error { return m.err }

type mockPolicyChecker struct{ err error }

func (m *mockPolicyChecker) HealthCheck(context.Context) error { return m.err }

func TestChecker_NoProbes(t *testing.T) {
	report, err := NewChecker(nil, nil).Ready(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestChecker_Report(t *testing.T) {
	c := NewChecker(&mockPinger{}, &mockPolicyChecker{err: errors.New("policy error")})
	c.Add("redis", func(context.Context) error { return nil })

	report, err := c.Ready(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policy: policy error")
	assert.Equal(t, map[string]string{"database": "ok", "policy": "policy error", "redis": "ok"}, report)
}

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		db     error
		status int
	}{
		{"ready", nil, http.StatusOK},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/healthz", Liveness)
			r.GET("/readyz", Readiness(NewChecker(&mockPinger{err: tc.db}, nil)))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tc.status, w.Code)
			var body struct {
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body.Checks, "database")

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestMonitor_MirrorsReadiness(t *testing.T) {
	_, hs := NewGRPCServer()
	db := &mockPinger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Monitor(ctx, hs, NewChecker(db, nil), 10*time.Millisecond, nil)
		close(done)
	}()

	status := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.GetStatus()
	}
	assert.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_SERVING }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status())
}
