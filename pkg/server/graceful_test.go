package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-graphpart/pkg/config"
	servertls "github.com/dd0wney/cluso-graphpart/pkg/tls"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Addr:            "127.0.0.1:0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: time.Second,
	}
}

func startGraceful(t *testing.T, ctx context.Context, h http.Handler) (*GracefulServer, <-chan error) {
	t.Helper()
	gs := NewGracefulServer(testServerConfig(), h, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()
	require.Eventually(t, func() bool { return gs.Addr() != nil }, time.Second, 5*time.Millisecond)
	return gs, done
}

func TestGracefulServer_ServesAndStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gs, done := startGraceful(t, ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	resp, err := http.Get(fmt.Sprintf("http://%s/", gs.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, gs.IsShuttingDown())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
	assert.True(t, gs.IsShuttingDown())
}

func TestGracefulServer_ShutdownIsIdempotent(t *testing.T) {
	gs, done := startGraceful(t, context.Background(), http.NotFoundHandler())
	require.NoError(t, gs.Shutdown())
	require.NoError(t, gs.Shutdown())
	assert.NoError(t, <-done)
}

func TestGracefulServer_DrainsInFlight(t *testing.T) {
	started := make(chan struct{})
	gs, done := startGraceful(t, context.Background(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte("finished"))
	}))

	result := make(chan int, 1)
	go func() {
		resp, err := http.Get(fmt.Sprintf("http://%s/", gs.Addr()))
		if err != nil {
			result <- 0
			return
		}
		resp.Body.Close()
		result <- resp.StatusCode
	}()

	<-started
	require.NoError(t, gs.Shutdown())
	assert.Equal(t, http.StatusOK, <-result)
	assert.NoError(t, <-done)
}

func TestGracefulServer_Reload(t *testing.T) {
	gs := NewGracefulServer(testServerConfig(), http.NotFoundHandler(), nil)
	assert.NoError(t, gs.Reload(), "reload without a function is a no-op")

	called := false
	gs.SetReloadFunc(func() error {
		called = true
		return nil
	})
	assert.NoError(t, gs.Reload())
	assert.True(t, called)

	boom := errors.New("bad config")
	gs.SetReloadFunc(func() error { return boom })
	assert.ErrorIs(t, gs.Reload(), boom)
}

func TestGracefulServer_ListenError(t *testing.T) {
	cfg := testServerConfig()
	cfg.Addr = "256.0.0.1:http"
	gs := NewGracefulServer(cfg, http.NotFoundHandler(), nil)
	assert.Error(t, gs.Run(context.Background()))
}

func TestGracefulServer_RunTLS(t *testing.T) {
	cfg := testServerConfig()
	cfg.TLS = servertls.Config{AutoGenerate: true, ValidFor: time.Hour}
	gs := NewGracefulServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			w.WriteHeader(http.StatusUpgradeRequired)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}), nil)

	done := make(chan error, 1)
	go func() { done <- gs.Run(context.Background()) }()
	require.Eventually(t, func() bool { return gs.Addr() != nil }, 3*time.Second, 5*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}}
	resp, err := client.Get(fmt.Sprintf("https://%s/", gs.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, gs.Shutdown())
	assert.NoError(t, <-done)
}

func TestGracefulServer_RunTLSBadFiles(t *testing.T) {
	cfg := testServerConfig()
	cfg.TLS = servertls.Config{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}
	gs := NewGracefulServer(cfg, http.NotFoundHandler(), nil)
	assert.Error(t, gs.Run(context.Background()))
}
