package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/shopfloor/pkg/config"
	"github.com/vsinha/shopfloor/pkg/interfaces/api"
)

func TestBuild_MemoryDriversWithSeed(t *testing.T) {
	cfg := &config.Config{
		Store:         config.StoreConfig{Driver: "memory"},
		Events:        config.EventsConfig{Driver: "sqlite", SQLitePath: t.TempDir() + "/events.db"},
		Lock:          config.LockConfig{Driver: "memory"},
		Manufacturing: config.ManufacturingConfig{NumberPrefix: "MO"},
		Reference:     config.ReferenceConfig{SeedDir: "../../configs/seed"},
	}

	a, err := build(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	router := api.NewRouter(a.handler, api.Options{Mode: gin.TestMode})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mfg/orders", strings.NewReader(`{"product_id":"TABLE","product_qty":"10"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderTenant, "acme")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/mfg/events", nil)
	req.Header.Set(api.HeaderTenant, "acme")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), "mo.created") {
		t.Errorf("Expected journaled mo.created, got %s", w.Body.String())
	}
}

func TestBuild_EmptySeedDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Store:     config.StoreConfig{Driver: "memory"},
		Events:    config.EventsConfig{Driver: "memory"},
		Lock:      config.LockConfig{Driver: "memory"},
		Reference: config.ReferenceConfig{SeedDir: dir},
	}
	a, err := build(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Expected an empty seed directory to be accepted, got %v", err)
	}
	a.Close()
}

func TestInitLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := initLogger(config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("Expected %s logger, got %v", format, err)
		}
		if !logger.Core().Enabled(zap.DebugLevel) {
			t.Errorf("Expected debug level enabled for %s", format)
		}
	}
}

func memoryConfig(t *testing.T, port int) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: port, Mode: gin.TestMode, ShutdownTimeout: time.Second},
		Store:     config.StoreConfig{Driver: "memory"},
		Events:    config.EventsConfig{Driver: "sqlite", SQLitePath: t.TempDir() + "/events.db"},
		Lock:      config.LockConfig{Driver: "memory"},
		Reference: config.ReferenceConfig{SeedDir: t.TempDir()},
	}
}

func TestRun_ListenerFailureReturnsError(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	err = run(context.Background(), memoryConfig(t, port), zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "server failed") {
		t.Errorf("Expected server failed error, got %v", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := run(ctx, memoryConfig(t, 0), zap.NewNop()); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func TestRun_BuildFailureReturnsError(t *testing.T) {
	cfg := memoryConfig(t, 0)
	cfg.Events.SQLitePath = t.TempDir() + "/missing/dir/events.db"
	if err := run(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("Expected build failure to be returned")
	}
}
