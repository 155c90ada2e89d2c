// Package api exposes the ledger engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/engine"
	"github.com/Veraticus/the-ledger-must-balance/internal/profile"
	"github.com/Veraticus/the-ledger-must-balance/internal/validation"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const engineKey = "engine"

// maxBodyBytes bounds request bodies, which may carry a full statement.
const maxBodyBytes = "32M"

// Server routes HTTP requests to per-profile engines.
type Server struct {
	echo     *echo.Echo
	profiles *profile.Manager
	gatherer prometheus.Gatherer
}

// NewServer builds the router. gatherer backs /metrics; nil uses the
// default Prometheus registry.
func NewServer(profiles *profile.Manager, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.Get()
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxBodyBytes))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.LogAttrs(c.Request().Context(), slog.LevelInfo, "HTTP request",
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	s := &Server{echo: e, profiles: profiles, gatherer: gatherer}
	s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "address", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("Shutting down HTTP server")
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.healthz)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	s.echo.GET("/profiles", s.listProfiles)
	s.echo.POST("/profiles", s.createProfile)
	s.echo.DELETE("/profiles/:profile", s.deleteProfile)

	g := s.echo.Group("/profiles/:profile", s.withEngine)

	g.POST("/imports", s.admit)
	g.POST("/imports/csv", s.admitCSV)
	g.GET("/imports", s.listImports)
	g.DELETE("/imports/:id", s.deleteImport)

	g.GET("/transactions", s.listTransactions)
	g.GET("/transactions/:id", s.getTransaction)
	g.PUT("/transactions/:id/category", s.setCategory)
	g.PUT("/transactions/:id/note", s.setNote)
	g.PUT("/transactions/:id/tags", s.setTags)
	g.DELETE("/transactions/:id", s.deleteTransaction)
	g.GET("/tags", s.listTags)

	g.GET("/rules", s.listRules)
	g.POST("/rules", s.createRule)
	g.POST("/rules/apply", s.applyRules)
	g.GET("/rules/:id", s.getRule)
	g.PUT("/rules/:id", s.updateRule)
	g.DELETE("/rules/:id", s.deleteRule)

	g.GET("/categories", s.listCategories)
	g.POST("/categories", s.createCategory)
	g.POST("/categories/seed", s.seedCategories)
	g.GET("/categories/:id", s.getCategory)
	g.PUT("/categories/:id", s.updateCategory)
	g.DELETE("/categories/:id", s.deleteCategory)

	g.GET("/aliases", s.listAliases)
	g.POST("/aliases", s.createAlias)
	g.PUT("/aliases/:id", s.updateAlias)
	g.DELETE("/aliases/:id", s.deleteAlias)
	g.POST("/merchants/rebuild", s.rebuildMerchants)

	g.GET("/transfers/candidates", s.transferCandidates)
	g.POST("/transfers/confirm", s.confirmTransfer)
	g.POST("/transfers/unconfirm", s.unconfirmTransfer)

	g.GET("/audit", s.auditFlags)
	g.GET("/recurring", s.recurring)
	g.GET("/suggestions", s.suggestions)
	g.POST("/suggestions/apply", s.applySuggestion)
	g.GET("/health", s.health)
	g.GET("/reports/summary", s.summary)
	g.GET("/reports/tax-export", s.taxExport)
}

// withEngine resolves the profile path parameter to its engine.
func (s *Server) withEngine(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		e, release, err := s.profiles.Acquire(c.Request().Context(), c.Param("profile"))
		if err != nil {
			return err
		}
		defer release()
		c.Set(engineKey, e)
		return next(c)
	}
}

func engineFrom(c echo.Context) *engine.Engine {
	return c.Get(engineKey).(*engine.Engine)
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type profileRequest struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

func (s *Server) listProfiles(c echo.Context) error {
	names, err := s.profiles.List()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"profiles": names})
}

func (s *Server) createProfile(c echo.Context) error {
	var req profileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	name, err := s.profiles.Create(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) deleteProfile(c echo.Context) error {
	if err := s.profiles.Delete(c.Param("profile")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
