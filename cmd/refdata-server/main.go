package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/refdata/internal/config"
	"github.com/ehr/refdata/internal/domain/lookup"
	"github.com/ehr/refdata/internal/platform/cache"
	"github.com/ehr/refdata/internal/platform/clock"
	"github.com/ehr/refdata/internal/platform/middleware"
	"github.com/ehr/refdata/internal/platform/ratelimit"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "refdata-server",
		Short: "Reference data lookup service for ICD-10, CPT, terminology and NPI",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(lookupCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the lookup API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
		SilenceUsage: true,
	}
}

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "lookup <diagnosis|procedure|terminology|provider|providers> <query>",
		Short:     "Run a single lookup and print the result envelope",
		Args:      cobra.ExactArgs(2),
		ValidArgs: lookupKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.IsDev(), cmd.ErrOrStderr())
			svc, err := buildService(cfg, logger)
			if err != nil {
				return err
			}
			return runLookup(cmd.Context(), svc, args[0], args[1], cmd.OutOrStdout())
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newLogger(dev bool, w io.Writer) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildService wires the cache, limiter, knowledge base and live registry
// clients into a lookup service.
func buildService(cfg *config.Config, logger zerolog.Logger) (*lookup.Service, error) {
	kb, err := lookup.LoadKnowledgeBase()
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	clk := clock.System{}
	store := cache.New(cfg.CacheTTL, clk)
	limiter := ratelimit.New(cfg.RateWindow, lookup.Limits(
		cfg.RateLimitICD10, cfg.RateLimitCPT, cfg.RateLimitTerminology, cfg.RateLimitNPI,
	), clk)

	icd10 := lookup.NewICD10Client(cfg.ICD10APIURL, lookup.WithTimeout(cfg.ProviderTimeout))
	npi := lookup.NewNPIClient(cfg.NPIAPIURL, cfg.NPIAPIVersion, lookup.WithTimeout(cfg.ProviderTimeout))

	return lookup.NewService(store, limiter, kb, icd10, npi, lookup.WithLogger(logger)), nil
}

// newServer builds the echo instance with global middleware, the health
// endpoint and the lookup routes.
func newServer(cfg *config.Config, logger zerolog.Logger, svc *lookup.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	lookup.NewHandler(svc).RegisterRoutes(apiV1)
	return e
}

func runServer() error {
	// Config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Logger
	logger := newLogger(cfg.IsDev(), os.Stdout)

	svc, err := buildService(cfg, logger)
	if err != nil {
		return err
	}

	e := newServer(cfg, logger, svc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(cfg.WarmQueries) > 0 {
		go func() {
			n, err := svc.Warm(ctx, cfg.WarmQueries)
			if err != nil {
				logger.Warn().Err(err).Int("warmed", n).Msg("cache warm-up interrupted")
				return
			}
			logger.Info().Int("warmed", n).Msg("cache warmed")
		}()
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

var lookupKinds = []string{"diagnosis", "procedure", "terminology", "provider", "providers"}

// runLookup performs one lookup of the given kind and writes the result
// envelope as indented JSON.
func runLookup(ctx context.Context, svc *lookup.Service, kind, query string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var result any
	switch strings.ToLower(kind) {
	case "diagnosis":
		result = svc.SearchDiagnosisCodes(ctx, query)
	case "procedure":
		result = svc.SearchProcedureCodes(ctx, query)
	case "terminology":
		result = svc.SearchTerminology(ctx, query)
	case "provider":
		result = svc.LookupProviderByNPI(ctx, query)
	case "providers":
		result = svc.SearchProviders(ctx, query)
	default:
		return fmt.Errorf("unknown lookup kind %q (want one of %s)", kind, strings.Join(lookupKinds, ", "))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
