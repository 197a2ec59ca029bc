// Package httpapi serves the relay's REST endpoints and the /ws channel
// endpoint on a fiber app.
package httpapi

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/dmitrijs2005/auctionchat/internal/logging"
	"github.com/dmitrijs2005/auctionchat/internal/server/relay"
	"github.com/dmitrijs2005/auctionchat/internal/server/services"
)

// Services bundles what the handlers call. Media may be nil when no
// bucket is configured.
type Services struct {
	Users   *services.UserService
	FAQ     *services.FAQService
	Tickets *services.TicketService
	Media   *services.MediaService
	Relay   *relay.Handler
}

type HTTPServer struct {
	address       string
	svc           Services
	maxUploadSize int64
	logger        logging.Logger

	// base is the parent context of WebSocket sessions; Run replaces it so
	// that shutdown ends them.
	base context.Context
}

func NewHTTPServer(a string, l logging.Logger, svc Services, maxUploadSize int64) *HTTPServer {
	return &HTTPServer{
		address:       a,
		svc:           svc,
		maxUploadSize: maxUploadSize,
		logger:        logging.OrNop(l).With("module", "http_server"),
		base:          context.Background(),
	}
}

// App builds the fiber app with every route registered.
func (s *HTTPServer) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "auctionchat",
		BodyLimit:             int(s.maxUploadSize) + 1<<20,
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})

	app.Post("/auth/register", s.register)
	app.Post("/auth/login", s.login)
	app.Get("/faq", s.listFAQ)
	app.Post("/support/tickets", s.optionalAuth, s.submitTicket)

	app.Post("/uploads", s.requireAuth, s.upload)
	app.Post("/uploads/presign", s.requireAuth, s.presign)
	app.Get(services.FilesRoute+"*", s.download)

	app.Use("/ws", s.upgrade)
	app.Get("/ws", websocket.New(s.serveWS))

	return app
}

func (s *HTTPServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is cancelled.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	app := s.App()

	sessions, cancel := context.WithCancel(ctx)
	defer cancel()
	s.base = sessions

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := app.Shutdown(); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	err := app.Listener(ln)
	if ctx.Err() != nil {
		<-done
		return nil
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
