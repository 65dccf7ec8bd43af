package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"lab-trend-thumbnails/internal/alerting"
	"lab-trend-thumbnails/internal/api"
	"lab-trend-thumbnails/internal/config"
	"lab-trend-thumbnails/internal/scheduler"
	"lab-trend-thumbnails/internal/service"
	"lab-trend-thumbnails/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newDeriver assembles the derivation service over an optional store.
func (a *App) newDeriver(store *storage.Store) *service.Deriver {
	var thumbs storage.ThumbnailStore
	var results storage.ResultSetStore
	if store != nil {
		thumbs = store
		results = store
	}
	return service.New(a.Config, thumbs, results, a.newNotifier(), a.Logger)
}

// Serve runs the ingest API together with the retention sweeper.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	deriver := a.newDeriver(store)

	var thumbs storage.ThumbnailStore
	if store != nil {
		thumbs = store
	}
	server := api.New(a.Config.Server, deriver, thumbs, a.Logger)

	if a.Config.Retention.Enabled && store != nil {
		sched := scheduler.New(scheduler.Options{
			Interval:        a.Config.Retention.SweepInterval,
			AlignToInterval: a.Config.Retention.AlignToInterval,
			StartupDelay:    a.Config.Retention.StartupDelay,
		}, a.Logger)

		go func() {
			if err := sched.Run(ctx, deriver.RetentionSweep); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("retention sweeper terminated with error")
			}
		}()
	}

	a.Logger.Info().Msg("starting thumbnail service")
	err = server.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("thumbnail service stopped")
	return nil
}

// DeriveOptions configure a one-shot derivation.
type DeriveOptions struct {
	RowsPath   string
	URL        string
	HintStatus string
	HintFocus  string
	OutPath    string
	Persist    bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting a focus series.
type ExportOptions struct {
	RowsPath  string
	URL       string
	Focus     string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// RederiveOptions configure the re-derivation job.
type RederiveOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}
