package app

import (
	"context"
	"fmt"

	"github.com/greenfin/greenfin-portal/internal/common"
	"github.com/greenfin/greenfin-portal/internal/config"
	"github.com/greenfin/greenfin-portal/internal/handlers"
	"github.com/greenfin/greenfin-portal/internal/importer"
	"github.com/greenfin/greenfin-portal/internal/interfaces"
	"github.com/greenfin/greenfin-portal/internal/mcp"
	"github.com/greenfin/greenfin-portal/internal/portfolio"
	"github.com/greenfin/greenfin-portal/internal/scoring"
	"github.com/greenfin/greenfin-portal/internal/seed"
	"github.com/greenfin/greenfin-portal/internal/storage"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Storage interfaces.StorageManager
	Store   *portfolio.Store
	Service *portfolio.Service

	// HTTP handlers
	DashboardHandler *handlers.DashboardHandler
	PortfolioHandler *handlers.PortfolioHandler
	EventsHandler    *handlers.EventsHandler
	HealthHandler    *handlers.HealthHandler
	VersionHandler   *handlers.VersionHandler
	MCPHandler       *mcp.Handler
}

// New initializes the application with all dependencies: storage, the
// portfolio snapshot store (seeded if absent), the divestment service, and the
// HTTP and MCP handlers.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	manager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = manager

	a.Store = portfolio.NewStore(manager.KeyValueStorage(), cfg.Portfolio.DocumentKey, logger)
	seed.Portfolio(context.Background(), a.Store, &cfg.Portfolio, logger)

	a.Service = portfolio.NewService(a.Store, logger)

	a.initHandlers(loadLoanBook(cfg, logger))

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers(loans []scoring.ScoredLoan) {
	a.DashboardHandler = handlers.NewDashboardHandler(a.Service, a.Logger)
	a.PortfolioHandler = handlers.NewPortfolioHandler(a.Service, a.Logger)
	a.PortfolioHandler.SetLoans(loans)
	a.EventsHandler = handlers.NewEventsHandler(a.Service, a.Logger)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.MCPHandler = mcp.NewHandler(a.Service, loans, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// loadLoanBook loads and scores the configured loan book for the risk report.
// The loan book is optional; the report renders without per-loan tables when
// none is available.
func loadLoanBook(cfg *config.Config, logger *common.Logger) []scoring.ScoredLoan {
	path := seed.FindLoansFile(cfg.Portfolio.LoansFile)
	if path == "" {
		return nil
	}

	loans, err := importer.LoadLoans(path)
	if err != nil {
		logger.Warn().Str("path", path).Str("error", err.Error()).Msg("failed to load loan book, report will omit loan tables")
		return nil
	}

	scored := scoring.ScoreLoans(loans)
	logger.Info().Int("loans", len(scored)).Str("path", path).Msg("loan book scored")
	return scored
}

// Close closes all application resources.
func (a *App) Close() error {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
