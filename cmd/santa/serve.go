package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/urfave/cli/v2"

	"secretsanta/internal/config"
	"secretsanta/internal/handlers"
	"secretsanta/internal/hint"
	"secretsanta/internal/live"
	"secretsanta/internal/services"
	"secretsanta/internal/store"
	"secretsanta/internal/store/memory"
	"secretsanta/internal/store/sqlstore"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:assets
var assetsFS embed.FS

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the gift exchange over HTTP",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Open the event store
	db, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// 2. Initialize the exchange service
	repo := services.NewEventRepository(db, cfg.EventKey)
	service := services.NewExchangeService(
		repo,
		services.NewDrawEngine(nil),
		services.AdminConfig{Name: cfg.AdminName, Password: cfg.AdminPassword},
		newHintGenerator(cfg),
	)

	// 3. Load HTML templates from the embedded filesystem.
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	// 4. Start relaying the event to websocket clients
	hub := live.NewHub()
	go hub.Run(ctx, repo)

	// 5. Set up the Gin router
	r := gin.Default()
	assetsSubFS, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		return fmt.Errorf("assets sub-filesystem: %w", err)
	}
	r.StaticFS("/assets", http.FS(assetsSubFS))
	handlers.NewHTTPHandler(service, hub, templates).RegisterRoutes(r)

	// 6. Run the server until interrupted
	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	errc := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on %s (store %s, event %q)", cfg.Addr, cfg.Store, cfg.EventKey)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore returns the configured DocumentStore and a function releasing it.
func openStore(cfg config.Config) (store.DocumentStore, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warningf("Using the in-memory store; the event is lost on restart")
		return memory.New(), func() {}, nil
	case config.StoreSQLite, config.StorePostgres:
		s, err := openSQL(cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Errorf("Error closing store: %v", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func openSQL(cfg config.Config) (*sqlstore.Store, error) {
	return sqlstore.Open(sqlstore.Dialect(cfg.Store), cfg.DSN, cfg.PollInterval)
}

func newHintGenerator(cfg config.Config) services.HintGenerator {
	if cfg.HintAPIKey == "" {
		logger.Infof("No hint API key; using static hints")
		return hint.Static{}
	}
	return hint.NewOpenAI(hint.Config{
		APIKey:   cfg.HintAPIKey,
		BaseURL:  cfg.HintBaseURL,
		Model:    cfg.HintModel,
		Language: cfg.HintLanguage,
	})
}
