package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/campus-events/server/internal/config"
	"github.com/campus-events/server/internal/domain/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommandHelp(t *testing.T) {
	cmd := newServeCommand(&globalOptions{})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("serve command --help failed: %v", err)
	}

	output := buf.String()
	expectedStrings := []string{
		"Start the campus events HTTP server",
		"--host",
		"--port",
		"--no-seed",
		"--seed-file",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("expected help text to contain %q, got:\n%s", expected, output)
		}
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("LOG_LEVEL", "info")

	cfg, err := loadConfig(
		&globalOptions{logLevel: "debug", logFormat: "console"},
		&serveOptions{host: "127.0.0.1", port: 9090, noSeed: true, seedFile: "catalog.yaml"},
	)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.False(t, cfg.Seed.Enabled)
	assert.Equal(t, "catalog.yaml", cfg.Seed.File)
}

func TestLoadConfigKeepsEnvironmentWithoutFlags(t *testing.T) {
	t.Setenv("SERVER_PORT", "8081")

	cfg, err := loadConfig(&globalOptions{}, &serveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.Seed.Enabled)
}

func TestLoadConfigInvalidPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")

	_, err := loadConfig(nil, nil)
	require.Error(t, err)
}

func testServerConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			BaseURL:         "http://localhost",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		CORS:        config.CORSConfig{AllowAllOrigins: true},
		Seed:        config.SeedConfig{Enabled: true},
		Environment: "test",
	}
}

func TestRunServerServesSeededCatalog(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, testServerConfig(), zerolog.Nop(), ln)
	}()

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(base + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(base + "/api/events")
	require.NoError(t, err)
	var list []events.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list, 6)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestRunServerWithoutSeed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	cfg := testServerConfig()
	cfg.Seed.Enabled = false

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, cfg, zerolog.Nop(), ln)
	}()

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Get(base + "/api/events")
	require.NoError(t, err)
	var list []events.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	_ = resp.Body.Close()
	assert.Empty(t, list)

	cancel()
	require.NoError(t, <-done)
}

func TestRunServerBadSeedFile(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := testServerConfig()
	cfg.Seed.File = "/nonexistent/catalog.yaml"

	err = runServer(context.Background(), cfg, zerolog.Nop(), ln)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load seed catalog")
}
