package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/matchpulse/trophy-tracker/external/apisports"
	"github.com/matchpulse/trophy-tracker/internal/config"
	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/infrastructure/repository/file"
	"github.com/matchpulse/trophy-tracker/internal/infrastructure/repository/postgres"
	"github.com/matchpulse/trophy-tracker/internal/interfaces/httpapi"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
	"github.com/matchpulse/trophy-tracker/internal/platform/resilience"
	"github.com/matchpulse/trophy-tracker/internal/usecase"
)

// Services bundles the use-case layer so both the HTTP server and the
// revalidation CLI can share one wiring path.
type Services struct {
	Tournaments  *usecase.TournamentService
	Revalidation *usecase.RevalidationService
	Fixes        *usecase.FixService
}

// BuildServices wires the record store, the football data provider and the
// use-case services from configuration. The returned cleanup closes the
// store's backing resources and must be called on shutdown.
func BuildServices(cfg config.Config, appLogger *logging.Logger) (*Services, func() error, error) {
	if appLogger == nil {
		appLogger = logging.Default()
	}

	records, cleanup, err := newRecordStore(cfg, appLogger)
	if err != nil {
		return nil, nil, err
	}

	provider := apisports.NewClient(apisports.ClientConfig{
		BaseURL:    cfg.APISportsBaseURL,
		APIKey:     cfg.APISportsKey,
		Timeout:    cfg.APISportsTimeout,
		MaxRetries: cfg.APISportsMaxRetries,
		CacheTTL:   cfg.APISportsCacheTTL,
		Logger:     appLogger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.APISportsCircuitEnabled,
			FailureThreshold: cfg.APISportsCircuitFailureCount,
			OpenTimeout:      cfg.APISportsCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.APISportsCircuitHalfOpenMaxReq,
		},
	})

	crossChecker := usecase.NewCrossChecker(provider, appLogger)
	validator := usecase.NewValidator(provider, crossChecker, appLogger)
	revalidation := usecase.NewRevalidationService(records, provider, validator, usecase.RevalidationConfig{
		MaxConcurrent: cfg.RevalidationMaxConcurrent,
		ChunkDelay:    cfg.RevalidationChunkDelay,
	}, appLogger)
	detector := usecase.NewDetector(provider, appLogger)
	fixes := usecase.NewFixService(records, detector, appLogger)
	tournaments := usecase.NewTournamentService(records, appLogger)

	return &Services{
		Tournaments:  tournaments,
		Revalidation: revalidation,
		Fixes:        fixes,
	}, cleanup, nil
}

func NewHTTPServer(cfg config.Config, logger *slog.Logger, appLogger *logging.Logger) (*http.Server, func() error, error) {
	services, cleanup, err := BuildServices(cfg, appLogger)
	if err != nil {
		return nil, nil, err
	}

	handler := httpapi.NewHandler(services.Tournaments, services.Revalidation, services.Fixes, logger)
	router := httpapi.NewRouter(handler, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		_ = cleanup()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, cleanup, nil
}

func newRecordStore(cfg config.Config, appLogger *logging.Logger) (tournament.Repository, func() error, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := openDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewRecordRepository(db), db.Close, nil
	default:
		store, err := file.NewRecordStore(cfg.CacheFilePath, appLogger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	}
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsqlx.Connect("postgres",
		normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
