package http

import (
	"admin-service/internal/admission"
	"admin-service/internal/audit"
	"admin-service/internal/auth"
	"admin-service/internal/config"
	"admin-service/internal/http/handler"
	"admin-service/internal/http/middleware"
	"admin-service/internal/permission"
	"admin-service/internal/repository"
	"admin-service/pkg/logger"
	"admin-service/pkg/metrics"
	"admin-service/pkg/profiling"
	"context"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

const (
	requestBodyLimit = "1M"

	pathHealth  = "/health"
	pathMetrics = "/metrics"
)

type ServerDependencies struct {
	Config          *config.Config
	Logger          logger.Logger
	Metrics         *metrics.Metrics
	Store           repository.Store
	Issuer          *auth.Issuer
	AuthMiddleware  *auth.Middleware
	AdmissionPolicy *admission.Policy
	AuditLogger     *audit.Logger
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	// Request ID middleware (first, so all logs have request ID)
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))
	e.Use(deps.Metrics.Middleware())
	// CORS runs before admission so 429 responses stay readable by browsers.
	e.Use(middleware.CORS(deps.Config.CORS.Whitelist))
	e.Use(deps.AdmissionPolicy.Middleware(skipInfrastructure))

	loginLimiter := middleware.NewLoginRateLimiter()

	systemHandler := handler.NewSystemHandler(deps.Config.App.Version)
	authHandler := handler.NewAuthHandler(deps.Store.Principals, deps.Issuer, deps.AuditLogger, deps.Logger)
	accountHandler := handler.NewAccountHandler()
	accessTokenHandler := handler.NewAccessTokenHandler(deps.Store.AccessTokens, deps.Issuer, deps.Logger)

	e.GET("/hello", systemHandler.Hello)
	e.GET(pathHealth, systemHandler.Health)
	if deps.Config.App.MetricsEnabled {
		e.GET(pathMetrics, echo.WrapHandler(deps.Metrics.Handler()))
	}

	// Registered outside the verified group.
	e.GET("/api/version", systemHandler.Version)
	e.POST("/api/v1/authentication/login", authHandler.Login, loginLimiter.Middleware())
	e.GET("/api/v1/authentication/logout", authHandler.Logout)

	api := e.Group("/api")
	api.Use(deps.AuthMiddleware.VerifyAccount())
	api.Use(auth.RequireAdmin())

	api.GET("/v1/account/me", accountHandler.Me)

	tokens := api.Group("/v1/accesstokens", auth.RequireMethodPermission(permission.CategoryAccessTokens))
	tokens.POST("", accessTokenHandler.Create)
	tokens.GET("/:id", accessTokenHandler.Get)
	tokens.PUT("/:id/validity", accessTokenHandler.SetValidity)
	tokens.DELETE("/:id", accessTokenHandler.Delete)

	if deps.Config.App.ProfilingEnabled {
		profiling.RegisterPprofRoutes(api.Group("/debug/pprof"))
	}

	return &Server{
		echo: e,
		deps: deps,
	}
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.echo.ServeHTTP(w, r)
}

func skipInfrastructure(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == pathHealth || p == pathMetrics
}
