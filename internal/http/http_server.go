package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/quantport.net/internal/config"
	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/services/command"
	"gitlab.com/quantport.net/internal/core/services/registry"
	"gitlab.com/quantport.net/internal/handlers"
	"gitlab.com/quantport.net/internal/handlers/auth"
	"gitlab.com/quantport.net/internal/handlers/dataservers"
	"gitlab.com/quantport.net/internal/handlers/workers"
)

type ServiceProvider struct {
	registryService registry.IRegistryService
	commandService  command.ICommandService
	tokenService    primary.TokenService
}

func NewServiceProvider(
	registryService registry.IRegistryService,
	commandService command.ICommandService,
	tokenService primary.TokenService,
) *ServiceProvider {
	return &ServiceProvider{
		registryService: registryService,
		commandService:  commandService,
		tokenService:    tokenService,
	}
}

type Server struct {
	router          *mux.Router
	ServiceName     string
	ServiceProvider ServiceProvider
	apiCfg          *config.APICfg
	jwtCfg          *config.JwtConfig
	logger          primary.Logger
	srv             *http.Server
}

func NewServer(
	apiCfg *config.APICfg,
	jwtCfg *config.JwtConfig,
	serviceName string,
	serviceProvider ServiceProvider,
	logger primary.Logger,
) *Server {
	return &Server{
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		apiCfg:          apiCfg,
		jwtCfg:          jwtCfg,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()
	mw := handlers.NewMiddlewareProvider(s.jwtCfg)
	workers.
		NewWorkerHandler(s.ServiceProvider.registryService, s.ServiceProvider.commandService, s.logger).
		RegisterRoutes(r, mw)
	dataservers.NewHandler(s.ServiceProvider.registryService).Register(r)
	auth.NewHandler(s.apiCfg, s.ServiceProvider.tokenService).RegisterRoutes(r)
	s.router = r
	return nil
}

// Router exposes the configured routes, for tests that serve them directly.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) {
	// Set up server
	srv := &http.Server{
		Addr:         s.apiCfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.srv = srv

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("Shutting down http server...")
	if s.srv != nil {
		_ = s.srv.Shutdown(ctx)
	}
}
