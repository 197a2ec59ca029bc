package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/session"
	"github.com/dmitrijs2005/auctionchat/internal/chat/transport"
	"github.com/dmitrijs2005/auctionchat/internal/chat/transport/grpcstream"
	"github.com/dmitrijs2005/auctionchat/internal/chat/transport/ws"
	"github.com/dmitrijs2005/auctionchat/internal/chat/upload"
	"github.com/dmitrijs2005/auctionchat/internal/client/api"
	"github.com/dmitrijs2005/auctionchat/internal/client/config"
	"github.com/dmitrijs2005/auctionchat/internal/client/storage"
	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/logging"
)

const maxLoginAttempts = 3

type App struct {
	config *config.Config
	logger logging.Logger
	api    *api.Client
	cache  *storage.DB
	reader *bufio.Reader
	out    io.Writer

	userName string
	userID   string

	manager   *session.Manager
	closeDial func() error

	mu         sync.Mutex
	current    *session.Session
	offChange  func()
	lastState  models.ConnState
	lastUnread int
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	logger := logging.NewText(os.Stderr, level)

	cache, err := storage.Open(ctx, c.CacheDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing cache: %w", err)
	}

	client := api.New(c.ServerURL,
		api.WithHTTPClient(&http.Client{Timeout: c.RequestTimeout}),
		api.WithLogger(logger))

	return &App{
		config: c,
		logger: logger,
		api:    client,
		cache:  cache,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

// Run logs in and serves the REPL until the user quits or ctx ends.
func (a *App) Run(ctx context.Context) {
	defer a.shutdown()

	printlnFn("Welcome to the auction chat (type 'help' for commands)")
	if err := a.authenticate(ctx); err != nil {
		printlnFn("Login failed:", err)
		return
	}
	if err := a.startChat(); err != nil {
		printlnFn("Error:", err)
		return
	}
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) shutdown() {
	if a.manager != nil {
		a.manager.CloseAll()
	}
	if a.closeDial != nil {
		_ = a.closeDial()
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error(context.Background(), "close cache", "error", err)
	}
}

// authenticate logs in, offering to register when the credentials are
// rejected.
func (a *App) authenticate(ctx context.Context) error {
	def := a.config.Username
	if def == "" {
		if last, err := a.cache.Metadata.Get(ctx, storage.KeyLastUser); err == nil {
			def = string(last)
		}
	}

	var lastErr error
	for i := 0; i < maxLoginAttempts; i++ {
		prompt := "Enter username"
		if def != "" {
			prompt += " [" + def + "]"
		}
		name, err := GetSimpleText(a.reader, prompt, a.out)
		if err != nil {
			return err
		}
		if name == "" {
			name = def
		}
		if name == "" {
			continue
		}

		pw, err := GetPassword(a.out)
		if err != nil {
			return err
		}
		creds, err := a.api.Login(ctx, name, string(pw))
		if errors.Is(err, api.ErrUnauthorized) {
			answer, _ := GetSimpleText(a.reader, "Wrong password or unknown user. Register "+name+" as a new account? (y/N)", a.out)
			if strings.EqualFold(answer, "y") {
				creds, err = a.api.Register(ctx, name, string(pw))
			}
		}
		common.WipeByteArray(pw)
		if err != nil {
			lastErr = err
			printlnFn("Error:", err)
			continue
		}

		a.userName, a.userID = name, creds.UserID
		a.api.SetToken(creds.Token)
		if err := a.cache.Metadata.Set(ctx, storage.KeyLastUser, []byte(name)); err != nil {
			a.logger.Warn(ctx, "remember user", "error", err)
		}
		if err := a.cache.Metadata.Set(ctx, storage.KeyUserID, []byte(creds.UserID)); err != nil {
			a.logger.Warn(ctx, "remember user id", "error", err)
		}
		printlnFn("Logged in as", name)
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no username given")
	}
	return lastErr
}

// NewDialer builds the channel transport selected by c.
func NewDialer(c *config.Config, token func() string, logger logging.Logger) (transport.Dialer, func() error, error) {
	opts := transport.Options{
		AckTimeout: c.AckTimeout,
		Backoff:    transport.NewBackoff(c.ReconnectInitial, c.ReconnectMax),
		Logger:     logger,
	}
	switch c.Transport {
	case config.TransportGRPC:
		d, err := grpcstream.NewDialer(c.GRPCAddr, token, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("grpc dialer: %w", err)
		}
		return d, d.Close, nil
	default:
		return ws.NewDialer(c.WebSocketURL, token, opts), func() error { return nil }, nil
	}
}

func (a *App) startChat() error {
	dialer, closeDial, err := NewDialer(a.config, a.api.Token, a.logger)
	if err != nil {
		return err
	}
	a.closeDial = closeDial
	a.manager = session.NewManager(session.Config{
		UserID:   a.userID,
		Dialer:   dialer,
		Uploads:  a.newUploads,
		Cache:    a.cache.Messages,
		Notifier: session.NotifierFunc(a.notify),
		Logger:   a.logger,
	})
	return nil
}

func (a *App) newUploads() *upload.Coordinator {
	var uploader upload.Uploader = upload.MultipartUploader{API: a.api}
	if a.config.Uploader == config.UploaderPresigned {
		uploader = upload.PresignedUploader{API: a.api, HTTP: &http.Client{}}
	}
	return upload.NewCoordinator(
		upload.StaticPermissions{AllowMedia: a.config.AllowMedia},
		upload.PathPicker{Prompt: a.promptPath},
		uploader,
		a.logger,
	)
}

func (a *App) promptPath(_ context.Context, source upload.Source) (string, error) {
	what := "document"
	if source == upload.SourceMedia {
		what = "photo or video"
	}
	return GetSimpleText(a.reader, "Path to the "+what+" (empty to cancel)", a.out)
}

func (a *App) notify(n session.Notice) {
	if n.Err != nil {
		printlnFn("!", n.Message+":", n.Err)
		return
	}
	printlnFn("!", n.Message)
}

func (a *App) status() string {
	a.mu.Lock()
	s := a.current
	a.mu.Unlock()

	parts := []string{a.userName}
	if s != nil {
		conv := s.ID()
		if s.Pinned() {
			conv += "*"
		}
		parts = append(parts, conv, strings.ToLower(s.State().Label()))
		if n := s.Unread(); n > 0 {
			parts = append(parts, fmt.Sprintf("%d unread", n))
		}
	}
	return "(" + strings.Join(parts, " ") + ")"
}
