package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	_ "github.com/lib/pq"

	"github.com/gridpredict/gridpredict/external/openf1"
	"github.com/gridpredict/gridpredict/internal/config"
	"github.com/gridpredict/gridpredict/internal/domain/jobscheduler"
	"github.com/gridpredict/gridpredict/internal/domain/league"
	"github.com/gridpredict/gridpredict/internal/domain/pilot"
	"github.com/gridpredict/gridpredict/internal/domain/prediction"
	"github.com/gridpredict/gridpredict/internal/domain/race"
	"github.com/gridpredict/gridpredict/internal/domain/userstats"
	"github.com/gridpredict/gridpredict/internal/infrastructure/account/authproxy"
	"github.com/gridpredict/gridpredict/internal/infrastructure/jobqueue"
	cachedrepo "github.com/gridpredict/gridpredict/internal/infrastructure/repository/cache"
	"github.com/gridpredict/gridpredict/internal/infrastructure/repository/memory"
	"github.com/gridpredict/gridpredict/internal/infrastructure/repository/postgres"
	"github.com/gridpredict/gridpredict/internal/interfaces/httpapi"
	basecache "github.com/gridpredict/gridpredict/internal/platform/cache"
	idgen "github.com/gridpredict/gridpredict/internal/platform/id"
	"github.com/gridpredict/gridpredict/internal/platform/logging"
	"github.com/gridpredict/gridpredict/internal/platform/resilience"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

type repositories struct {
	races       race.Repository
	pilots      pilot.Repository
	leagues     league.Repository
	predictions prediction.Repository
	stats       userstats.Repository
	dispatches  jobscheduler.Repository
}

// NewHTTPServer wires the whole service. The returned cleanup releases the
// scoring pool and the database handle and must run after server shutdown.
func NewHTTPServer(cfg config.Config, logger *logging.Logger) (*http.Server, func(context.Context) error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	repos, closeRepos, err := buildRepositories(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		repos.races = cachedrepo.NewRaceRepository(repos.races, store)
		repos.pilots = cachedrepo.NewPilotRepository(repos.pilots, store)
	}

	idGen := idgen.NewRandomGenerator()

	leagueSvc := usecase.NewLeagueService(repos.leagues, idGen)
	scoringSvc, err := usecase.NewScoringService(
		repos.predictions,
		repos.races,
		repos.leagues,
		usecase.DefaultPointsPolicy,
		cfg.ScoringPoolSize,
		logger,
	)
	if err != nil {
		closeRepos()
		return nil, nil, fmt.Errorf("build scoring service: %w", err)
	}

	raceSvc := usecase.NewRaceService(repos.races, repos.pilots, repos.predictions, scoringSvc, idGen, logger)
	predictionSvc := usecase.NewPredictionService(repos.predictions, repos.races, repos.pilots, leagueSvc, idGen)
	dashboardSvc := usecase.NewDashboardService(repos.stats, repos.predictions, repos.races, leagueSvc, logger)
	pilotSvc := usecase.NewPilotService(repos.pilots)

	queue := buildJobQueue(cfg, logger)
	raceClockSvc := usecase.NewRaceClockService(
		repos.races,
		raceSvc,
		queue,
		repos.dispatches,
		usecase.RaceClockConfig{
			TickInterval:     cfg.JobRaceClockInterval,
			IdleTickInterval: cfg.JobRaceClockIdleInterval,
			CalendarInterval: cfg.JobCalendarSyncInterval,
		},
		logger,
	)

	var calendarSyncSvc *usecase.CalendarSyncService
	if cfg.OpenF1Enabled {
		provider := openf1.NewClient(openf1.ClientConfig{
			BaseURL:    cfg.OpenF1BaseURL,
			Timeout:    cfg.OpenF1Timeout,
			MaxRetries: cfg.OpenF1MaxRetries,
			Logger:     logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.OpenF1CircuitEnabled,
				FailureThreshold: cfg.OpenF1CircuitFailureCount,
				OpenTimeout:      cfg.OpenF1CircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.OpenF1CircuitHalfOpenMaxReq,
			},
		})
		calendarSyncSvc = usecase.NewCalendarSyncService(provider, repos.races, repos.pilots, idGen, logger)
	}

	verifier := authproxy.NewClient(authproxy.ClientConfig{
		HTTPClient:     &http.Client{Timeout: cfg.AuthTimeout},
		BaseURL:        cfg.AuthBaseURL,
		IntrospectPath: cfg.AuthIntrospectPath,
		AdminKey:       cfg.AuthAdminKey,
		CacheTTL:       cfg.AuthCacheTTL,
		Logger:         logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.AuthCircuitEnabled,
			FailureThreshold: cfg.AuthCircuitFailureCount,
			OpenTimeout:      cfg.AuthCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.AuthCircuitHalfOpenMaxReq,
		},
	})

	handler := httpapi.NewHandler(
		raceSvc,
		leagueSvc,
		predictionSvc,
		dashboardSvc,
		pilotSvc,
		raceClockSvc,
		calendarSyncSvc,
		repos.dispatches,
		logger,
	)
	router := httpapi.NewRouter(handler, verifier, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		scoringSvc.Close()
		closeRepos()
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	cleanup := func(context.Context) error {
		scoringSvc.Close()
		closeRepos()
		return nil
	}

	return server, cleanup, nil
}

// buildRepositories picks the storage backend: postgres when DB_URL is set,
// otherwise seeded in-memory repositories for local development.
func buildRepositories(cfg config.Config, logger *logging.Logger) (repositories, func(), error) {
	dbURL := strings.TrimSpace(cfg.DBURL)
	if dbURL == "" || dbURL == "memory" {
		logger.Info("using in-memory repositories", "reason", "DB_URL is empty")

		raceRepo := memory.NewRaceRepository(memory.SeedRaces())
		return repositories{
			races:       raceRepo,
			pilots:      memory.NewPilotRepository(memory.SeedPilots()),
			leagues:     memory.NewLeagueRepository(),
			predictions: memory.NewPredictionRepository(raceRepo),
			stats:       memory.NewUserStatsRepository(),
			dispatches:  memory.NewJobDispatchRepository(),
		}, func() {}, nil
	}

	db, err := otelsqlx.Connect("postgres", normalizeDBURL(dbURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dbURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return repositories{}, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if cfg.SeedEnabled {
		if err := postgres.BootstrapSeed(context.Background(), db); err != nil {
			_ = db.Close()
			return repositories{}, nil, fmt.Errorf("bootstrap seed: %w", err)
		}
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}

	return repositories{
		races:       postgres.NewRaceRepository(db),
		pilots:      postgres.NewPilotRepository(db),
		leagues:     postgres.NewLeagueRepository(db),
		predictions: postgres.NewPredictionRepository(db),
		stats:       postgres.NewUserStatsRepository(db),
		dispatches:  postgres.NewJobDispatchRepository(db),
	}, closeDB, nil
}

func buildJobQueue(cfg config.Config, logger *logging.Logger) usecase.JobQueue {
	if !cfg.QStashEnabled {
		logger.Info("job queue disabled", "reason", "QSTASH_ENABLED=false")
		return usecase.NewNoopJobQueue()
	}

	return jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
		BaseURL:          cfg.QStashBaseURL,
		Token:            cfg.QStashToken,
		TargetBaseURL:    cfg.QStashTargetBaseURL,
		Retries:          cfg.QStashRetries,
		InternalJobToken: cfg.InternalJobToken,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.QStashCircuitEnabled,
			FailureThreshold: cfg.QStashCircuitFailureCount,
			OpenTimeout:      cfg.QStashCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
		},
	}, logger)
}
