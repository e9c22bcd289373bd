// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func stopServer(t *testing.T, server *Server) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Stop(ctx)
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return rec.Code, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer stopServer(t, server)

	addr := server.Addr()
	if addr == "" {
		t.Fatal("server address is empty")
	}

	server.Metrics().ObserveRequest(http.MethodPost, "/api/auth/login", http.StatusOK, 20*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("failed to GET /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	bodyStr := string(body)

	for _, want := range []string{"# HELP", "# TYPE", "go_", "process_", "gymbuddy_http_requests_total", "gymbuddy_http_request_duration_seconds"} {
		if !strings.Contains(bodyStr, want) {
			t.Errorf("expected %q in /metrics output", want)
		}
	}
	if !strings.Contains(bodyStr, `route="/api/auth/login",status="200"`) {
		t.Error("expected labelled request counter")
	}
}

func TestServer_RegistersPackageMetrics(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gymbuddy_test_events_total",
		Help: "test counter",
	})
	server := NewServer("127.0.0.1:0", nil, func(reg prometheus.Registerer) {
		reg.MustRegister(counter)
	})
	counter.Add(3)

	code, body := get(t, server.Handler(), "/metrics")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(body, "gymbuddy_test_events_total 3") {
		t.Errorf("expected registered counter in output, got:\n%s", body)
	}
}

func TestServer_LivenessReturns200(t *testing.T) {
	server := NewServer("127.0.0.1:0", func(context.Context) error { return errors.New("db down") })

	code, body := get(t, server.Handler(), "/healthz/liveness")
	if code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if body != "ok\n" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name    string
		checker ReadinessChecker
		code    int
	}{
		{"nil checker", nil, http.StatusOK},
		{"ready", func(context.Context) error { return nil }, http.StatusOK},
		{"not ready", func(context.Context) error { return errors.New("pool closed") }, http.StatusServiceUnavailable},
		{"checker sees deadline", func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer("127.0.0.1:0", tt.checker)
			code, _ := get(t, server.Handler(), "/healthz/readiness")
			if code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, code)
			}
		})
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingReadiness(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	if err := PingReadiness(ok, ok)(context.Background()); err != nil {
		t.Errorf("expected ready, got %v", err)
	}
	if err := PingReadiness(ok, down)(context.Background()); err == nil {
		t.Error("expected not ready when a pinger fails")
	}
	if err := PingReadiness()(context.Background()); err != nil {
		t.Errorf("expected ready with no pingers, got %v", err)
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	if _, err := server.Start(); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	defer stopServer(t, server)

	if _, err := server.Start(); err == nil {
		t.Error("expected second Start to fail")
	}
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	if err := server.Stop(context.Background()); err != nil {
		t.Errorf("stop before start should be a no-op: %v", err)
	}
	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	stopServer(t, server)
	if err := server.Stop(context.Background()); err != nil {
		t.Errorf("second stop should be a no-op: %v", err)
	}
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	errCh, err := server.Start()
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	// Closing the listener makes Serve fail.
	if server.listener != nil {
		_ = server.listener.Close()
	}

	select {
	case serveErr := <-errCh:
		if serveErr == nil {
			t.Error("expected an error from the error channel after closing listener")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error on error channel")
	}

	stopServer(t, server)
}

func TestServer_ErrorChannelClosesOnNormalShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	errCh, err := server.Start()
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Fatalf("failed to stop server: %v", err)
	}

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			t.Errorf("unexpected error on normal shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error channel to close")
	}
}
