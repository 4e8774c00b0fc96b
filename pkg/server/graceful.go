package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-graphpart/pkg/config"
	"github.com/dd0wney/cluso-graphpart/pkg/logging"
	servertls "github.com/dd0wney/cluso-graphpart/pkg/tls"
)

// ReloadFunc reloads configuration on SIGHUP.
type ReloadFunc func() error

// GracefulServer runs an http.Server that drains on SIGINT or SIGTERM and
// reloads on SIGHUP.
type GracefulServer struct {
	server          *http.Server
	tls             servertls.Config
	logger          logging.Logger
	shutdownTimeout time.Duration

	draining     atomic.Bool
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error

	reloadFn ReloadFunc
	reloadMu sync.RWMutex

	addrMu sync.Mutex
	addr   net.Addr
}

// NewGracefulServer wraps handler with the timeouts of cfg.
func NewGracefulServer(cfg config.ServerConfig, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:           cfg.Addr,
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		tls:             cfg.TLS,
		logger:          logger.With(logging.Component("http")),
		shutdownTimeout: cfg.ShutdownTimeout,
		shutdownCh:      make(chan struct{}),
	}
}

// Run listens on the configured address and serves until ctx ends, a
// termination signal arrives or Shutdown is called. It returns nil after
// a clean shutdown. The listener speaks TLS when the configuration enables
// it.
func (gs *GracefulServer) Run(ctx context.Context) error {
	tc, err := servertls.Load(gs.tls)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	if tc != nil {
		gs.server.TLSConfig = tc
		ln = tls.NewListener(ln, tc)
		gs.logger.Info("tls enabled", logging.Bool("self_signed", gs.tls.CertFile == ""))
	}
	return gs.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	gs.addrMu.Lock()
	gs.addr = ln.Addr()
	gs.addrMu.Unlock()

	sigCtx, stop := context.WithCancel(ctx)
	defer stop()
	go gs.handleSignals(sigCtx)
	go func() {
		select {
		case <-sigCtx.Done():
			if ctx.Err() != nil {
				gs.Shutdown()
			}
		case <-gs.shutdownCh:
		}
	}()

	gs.logger.Info("http server listening", logging.String("addr", ln.Addr().String()))
	if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-gs.shutdownCh
	return gs.shutdownErr
}

// Addr returns the bound address once serving has started.
func (gs *GracefulServer) Addr() net.Addr {
	gs.addrMu.Lock()
	defer gs.addrMu.Unlock()
	return gs.addr
}

// Shutdown stops accepting connections and waits up to the shutdown
// timeout for in-flight requests. Later calls return the first result.
func (gs *GracefulServer) Shutdown() error {
	gs.shutdownOnce.Do(func() {
		gs.draining.Store(true)
		timer := logging.StartTimer(gs.logger, "http server stopped",
			logging.Duration("timeout", gs.shutdownTimeout))

		ctx, cancel := context.WithTimeout(context.Background(), gs.shutdownTimeout)
		defer cancel()
		gs.shutdownErr = gs.server.Shutdown(ctx)
		close(gs.shutdownCh)

		if gs.shutdownErr != nil {
			timer.EndWarn(gs.shutdownErr)
		} else {
			timer.End()
		}
	})
	return gs.shutdownErr
}

func (gs *GracefulServer) handleSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-gs.shutdownCh:
			return
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				gs.logger.Info("reload requested", logging.String("signal", sig.String()))
				gs.Reload()
			default:
				gs.logger.Info("shutdown requested", logging.String("signal", sig.String()))
				go gs.Shutdown()
				return
			}
		}
	}
}

// IsShuttingDown reports whether Shutdown has started.
func (gs *GracefulServer) IsShuttingDown() bool {
	return gs.draining.Load()
}

// SetReloadFunc sets the function run on SIGHUP.
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()
	gs.reloadFn = fn
}

// Reload runs the reload function, if any.
func (gs *GracefulServer) Reload() error {
	gs.reloadMu.RLock()
	fn := gs.reloadFn
	gs.reloadMu.RUnlock()

	if fn == nil {
		gs.logger.Debug("reload requested without a reload function")
		return nil
	}
	if err := fn(); err != nil {
		gs.logger.Warn("configuration reload failed", logging.Error(err))
		return err
	}
	gs.logger.Info("configuration reloaded")
	return nil
}
