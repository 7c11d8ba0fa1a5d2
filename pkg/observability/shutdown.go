package observability

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc releases a resource during graceful shutdown.
type ShutdownFunc func(ctx context.Context) error

// ShutdownManager coordinates graceful shutdown: it waits for SIGINT or
// SIGTERM, drains the HTTP servers, then runs the registered shutdown
// functions in parallel within the timeout.
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration

	mu      sync.Mutex
	servers []*http.Server
	funcs   []ShutdownFunc
}

// NewShutdownManager creates a shutdown manager with the given drain timeout.
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	return &ShutdownManager{
		logger:  logger,
		timeout: timeout,
	}
}

// RegisterServer adds an HTTP server to be drained on shutdown.
func (s *ShutdownManager) RegisterServer(server *http.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers = append(s.servers, server)
}

// RegisterFunc adds a cleanup function to run on shutdown.
func (s *ShutdownManager) RegisterFunc(fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funcs = append(s.funcs, fn)
}

// Wait blocks until a termination signal arrives, then performs shutdown.
func (s *ShutdownManager) Wait() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	s.logger.WithField("signal", sig.String()).Info("shutdown signal received")

	s.Shutdown()
}

// Shutdown drains servers and runs cleanup functions.
func (s *ShutdownManager) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	servers := s.servers
	funcs := s.funcs
	s.mu.Unlock()

	// Drain HTTP servers first so no new work arrives while resources
	// are being released.
	var wg sync.WaitGroup
	for _, server := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil {
				s.logger.WithError(err).WithField("addr", srv.Addr).Error("server shutdown failed")
			}
		}(server)
	}
	wg.Wait()

	for _, fn := range funcs {
		wg.Add(1)
		go func(fn ShutdownFunc) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				s.logger.WithError(err).Error("shutdown function failed")
			}
		}(fn)
	}
	wg.Wait()

	s.logger.Info("shutdown complete")
}
