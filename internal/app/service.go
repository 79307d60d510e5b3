package app

import (
	"admin-service/internal/admission"
	"admin-service/internal/audit"
	"admin-service/internal/config"
	"admin-service/internal/http"
	"admin-service/internal/repository"
	"admin-service/pkg/logger"
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/redis/go-redis/v9"
)

const serverAddrPrefix = ":"

// Service owns the HTTP server and every resource it was wired with.
type Service struct {
	config *config.Config
	log    logger.Logger
	server *http.Server
	store  repository.Store
	audit  *audit.Logger

	// Exactly one admission backend is set.
	gate  *admission.Gate
	redis *redis.Client
}

// NewService creates and initializes a new Service instance
// This is a convenience wrapper around InitializeService
func NewService(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	return InitializeService(ctx, cfg, log)
}

// Start serves HTTP until Shutdown is called.
func (s *Service) Start() error {
	s.log.Info(context.Background(), "starting admin service",
		"port", s.config.Server.Port,
		"store", s.config.Store.Driver,
		"admission_backend", s.config.RateLimit.Backend,
	)

	if err := s.server.Start(serverAddrPrefix + s.config.Server.Port); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the service. Resources are released even
// when the server fails to drain in time.
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.server.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	s.audit.Wait()

	if s.gate != nil {
		s.gate.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.store.Close != nil {
		if err := s.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
