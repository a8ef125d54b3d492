package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"blurcam/internal/config"
	"blurcam/internal/logger"
	"blurcam/internal/repository"
	"blurcam/internal/repository/sqlite"
	"blurcam/internal/route"
	"blurcam/internal/service"
	"blurcam/internal/service/ai"
	"blurcam/internal/service/capture"
	"blurcam/internal/service/notify"
	"blurcam/internal/service/output"
	"blurcam/internal/service/pipeline"
	"blurcam/internal/service/websocket"
	"blurcam/internal/settings"
	"blurcam/internal/ui"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
	windowTitle       = "blurcam"
)

type App struct {
	config   *config.Config
	logger   *logger.Logger
	db       *sqlite.DB
	loader   *ai.DNNLoader
	settings *settings.Store
	hub      *websocket.HubService
	events   *notify.Channels
}

// NewApp builds the long-lived services from cfg. The embedding cache is
// optional: if its database cannot be opened labels are encoded on every load.
func NewApp(cfg *config.Config, l *logger.Logger) *App {
	db, err := OpenEmbeddingDB(cfg.EmbeddingDB)
	var cache repository.EmbeddingRepository
	if err != nil {
		l.Warning("Embedding cache disabled: %v", err)
	} else {
		cache = sqlite.NewEmbeddingRepository(db)
	}

	return &App{
		config:   cfg,
		logger:   l,
		db:       db,
		loader:   ai.NewDNNLoader(cfg, cache, l.Named("ai")),
		settings: settings.NewStore(cfg.SettingsPath, l.Named("settings")),
		hub:      websocket.NewHubService(l.Named("hub")),
		events:   notify.NewChannels(),
	}
}

// OpenEmbeddingDB opens the label embedding cache, creating its directory.
func OpenEmbeddingDB(path string) (*sqlite.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create embedding cache directory")
	}
	return sqlite.New(path)
}

// Settings returns the persistent settings store.
func (a *App) Settings() *settings.Store {
	return a.settings
}

// Loader returns the model loader.
func (a *App) Loader() *ai.DNNLoader {
	return a.loader
}

// Deps returns the pipeline dependencies backed by real devices.
func (a *App) Deps() pipeline.Deps {
	return pipeline.Deps{
		Camera:      capture.OpenSource,
		CameraIndex: a.config.CameraIndex,
		Device:      output.FFmpegOpener(a.config.FFmpegPath, a.config.VirtualDevice, a.logger.Named("output")),
		Loader:      a.loader,
		Events:      a.events,
		Logger:      a.logger,
	}
}

// Run serves the control API and the preview window until ctx is done, a
// termination signal arrives or the user closes the window.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	manager := service.NewManager(ctx, a.settings, a.Deps(), a.hub, a.logger)
	a.settings.Subscribe(manager.ApplySettings)

	server := &http.Server{
		Addr:              a.config.ControlAddr,
		Handler:           route.SetupRoutes(manager, a.logger.Named("http")),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return a.settings.Watch(ctx)
	})
	g.Go(func() error {
		a.logStatus(ctx)
		return nil
	})
	g.Go(func() error {
		a.logger.Info("Control API listening on http://%s", a.config.ControlAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "control server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		manager.Stop()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		return server.Shutdown(shutdownCtx)
	})

	if a.config.PreviewWindow {
		preview := ui.NewPreview(windowTitle, a.events.Preview.C(), manager, a.logger.Named("ui"))
		g.Go(func() error {
			err := preview.Run(ctx)
			if errors.Is(err, ui.ErrClosed) {
				a.logger.Info("Preview window closed, shutting down")
				cancel()
				return nil
			}
			return err
		})
	}

	if a.config.Autostart {
		if err := manager.Start(); err != nil {
			a.logger.Warning("Autostart failed: %v", err)
		}
	}

	return g.Wait()
}

// Close releases the embedding cache and flushes the logger.
func (a *App) Close() error {
	// syncing a console writer fails on most terminals
	defer a.logger.Sync()
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) logStatus(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-a.events.Status.C():
			a.logger.Info("Status: %s", text)
		}
	}
}
