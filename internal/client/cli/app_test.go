package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/transport/grpcstream"
	"github.com/dmitrijs2005/auctionchat/internal/chat/transport/ws"
	"github.com/dmitrijs2005/auctionchat/internal/client/api"
	"github.com/dmitrijs2005/auctionchat/internal/client/config"
	"github.com/dmitrijs2005/auctionchat/internal/client/storage"
	"github.com/dmitrijs2005/auctionchat/internal/logging"
)

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	old := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { readPassword = old })
}

func newTestApp(t *testing.T, serverURL, input string) *App {
	t.Helper()
	cache, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	return &App{
		config: cfg,
		logger: logging.Nop{},
		api:    api.New(serverURL),
		cache:  cache,
		reader: bufio.NewReader(strings.NewReader(input)),
		out:    io.Discard,
	}
}

func authServer(t *testing.T, calls *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls = append(*calls, r.URL.Path)
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/auth/login" && req["password"] == "right-pass" && req["username"] == "alice":
			_, _ = io.WriteString(w, `{"userId":"u1","token":"tok-alice"}`)
		case r.URL.Path == "/auth/register":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"userId":"u2","token":"tok-new"}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"unauthorized"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthenticate_Login(t *testing.T) {
	capturePrint(t)
	stubPassword(t, "right-pass")
	var calls []string
	srv := authServer(t, &calls)

	a := newTestApp(t, srv.URL, "alice\n")
	require.NoError(t, a.authenticate(context.Background()))

	assert.Equal(t, "u1", a.userID)
	assert.Equal(t, "tok-alice", a.api.Token())
	assert.Equal(t, []string{"/auth/login"}, calls)

	last, err := a.cache.Metadata.Get(context.Background(), storage.KeyLastUser)
	require.NoError(t, err)
	assert.Equal(t, "alice", string(last))
}

func TestAuthenticate_RegistersAfterRejection(t *testing.T) {
	capturePrint(t)
	stubPassword(t, "new-pass")
	var calls []string
	srv := authServer(t, &calls)

	a := newTestApp(t, srv.URL, "bob\ny\n")
	require.NoError(t, a.authenticate(context.Background()))

	assert.Equal(t, "u2", a.userID)
	assert.Equal(t, []string{"/auth/login", "/auth/register"}, calls)
}

func TestAuthenticate_UsesRememberedUser(t *testing.T) {
	capturePrint(t)
	stubPassword(t, "right-pass")
	var calls []string
	srv := authServer(t, &calls)

	a := newTestApp(t, srv.URL, "\n")
	require.NoError(t, a.cache.Metadata.Set(context.Background(), storage.KeyLastUser, []byte("alice")))
	require.NoError(t, a.authenticate(context.Background()))
	assert.Equal(t, "alice", a.userName)
}

func TestAuthenticate_GivesUp(t *testing.T) {
	capturePrint(t)
	stubPassword(t, "wrong")
	var calls []string
	srv := authServer(t, &calls)

	a := newTestApp(t, srv.URL, "alice\nn\nalice\nn\nalice\nn\n")
	err := a.authenticate(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Len(t, calls, maxLoginAttempts)
}

func TestNewDialer(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	d, closeFn, err := NewDialer(cfg, func() string { return "" }, nil)
	require.NoError(t, err)
	assert.IsType(t, &ws.Dialer{}, d)
	assert.NoError(t, closeFn())

	cfg.Transport = config.TransportGRPC
	d, closeFn, err = NewDialer(cfg, func() string { return "" }, nil)
	require.NoError(t, err)
	assert.IsType(t, &grpcstream.Dialer{}, d)
	assert.NoError(t, closeFn())
}

func TestCommands_RequireConversation(t *testing.T) {
	a := newTestApp(t, "http://127.0.0.1:0", "")
	ctx := context.Background()

	for name, run := range map[string]func(context.Context, []string) error{
		"show":    a.Show,
		"send":    a.Send,
		"read":    a.Read,
		"delete":  a.Delete,
		"pin":     a.Pin,
		"retry":   a.Retry,
		"discard": a.Discard,
		"close":   a.Close,
	} {
		assert.ErrorIs(t, run(ctx, []string{"x"}), errNoConversation, name)
	}
	assert.False(t, a.inConversation())
	assert.ErrorIs(t, a.Open(ctx, nil), errUsage)
}

func TestFormatView(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.Local)

	tests := []struct {
		name string
		view models.View
		want []string
	}{
		{
			name: "own confirmed and read",
			view: models.View{Key: "srv-9", SenderID: "u1", Text: "Hello", Timestamp: ts, Read: true, Status: models.StatusConfirmed},
			want: []string{"[2026-03-01 12:30] you: Hello", "(read)", "#srv-9"},
		},
		{
			name: "pending file from other",
			view: models.View{Key: "local-1", SenderID: "u2", File: models.NewFileRef("http://f/x.jpg", "x.jpg", "image/jpeg", 3), Timestamp: ts, Status: models.StatusPending},
			want: []string{"u2: [image: x.jpg] http://f/x.jpg", "(sending)"},
		},
		{
			name: "failed",
			view: models.View{Key: "local-2", SenderID: "u1", Text: "oops", Timestamp: ts, Status: models.StatusFailed},
			want: []string{"(failed, retry or discard)", "#local-2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatView(tt.view, "u1")
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}
