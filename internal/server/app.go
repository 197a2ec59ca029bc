// Package server wires the relay: storage, services, the event publisher
// and both network endpoints, and runs them until a signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/auctionchat/internal/logging"
	"github.com/dmitrijs2005/auctionchat/internal/server/config"
	"github.com/dmitrijs2005/auctionchat/internal/server/events"
	"github.com/dmitrijs2005/auctionchat/internal/server/httpapi"
	"github.com/dmitrijs2005/auctionchat/internal/server/hub"
	"github.com/dmitrijs2005/auctionchat/internal/server/relay"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/auctionchat/internal/server/services"

	gs "github.com/dmitrijs2005/auctionchat/internal/server/grpc"
)

const (
	hubBuffer       = 64
	amqpDialTimeout = 30 * time.Second
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	grpc    *gs.GRPCServer
	http    *httpapi.HTTPServer
	closers []io.Closer
}

// NewLogger builds the logger selected by cfg.LogFormat.
func NewLogger(cfg *config.Config) (logging.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	switch cfg.LogFormat {
	case config.LogFormatZap:
		return logging.NewZap(level <= slog.LevelDebug)
	case config.LogFormatJSON:
		return logging.NewJSON(os.Stdout, level), nil
	default:
		return logging.NewText(os.Stdout, level), nil
	}
}

// NewRepositoryManager returns the PostgreSQL manager with migrations
// applied, or the in-memory one when no DSN is configured.
func NewRepositoryManager(ctx context.Context, cfg *config.Config, logger logging.Logger) (repomanager.RepositoryManager, error) {
	if cfg.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, using in-memory storage")
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	m, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := m.RunMigrations(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("db migrations: %w", err)
	}
	return m, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := NewLogger(c)
	if err != nil {
		return nil, err
	}
	app := &App{config: c, logger: logger}

	rm, err := NewRepositoryManager(ctx, c, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, rm)

	var media *services.MediaService
	if c.MediaEnabled() {
		client, err := services.NewS3Client(ctx, c)
		if err != nil {
			app.Close()
			return nil, err
		}
		media = services.NewS3MediaService(client, c)
	} else {
		logger.Warn(ctx, "no bucket configured, uploads disabled")
	}

	var pub events.Publisher = events.Nop{}
	if c.AMQPURL != "" {
		p, err := events.DialAMQP(ctx, c.AMQPURL, c.AMQPExchange, amqpDialTimeout, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, p)
		pub = p
	}

	faq, err := services.NewFAQService(c.FAQPath)
	if err != nil {
		app.Close()
		return nil, err
	}

	users := services.NewUserService(rm, c)
	rh := relay.NewHandler(services.NewChatService(rm), hub.New(hubBuffer, logger), pub, c.HistoryLimit, logger)

	app.grpc = gs.NewGRPCServer(c.GRPCAddr, logger, users, rh)
	app.http = httpapi.NewHTTPServer(c.HTTPAddr, logger, httpapi.Services{
		Users:   users,
		FAQ:     faq,
		Tickets: services.NewTicketService(rm, media),
		Media:   media,
		Relay:   rh,
	}, c.MaxUploadSize)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Close releases storage and the event publisher.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for _, run := range []func(context.Context) error{app.grpc.Run, app.http.Run} {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			if err := run(ctx); err != nil {
				app.logger.Error(ctx, err.Error())
				cancelFunc()
			}
		}(run)
	}

	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}
