package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/session"
	"github.com/dmitrijs2005/auctionchat/internal/chat/upload"
)

var (
	errNoConversation = errors.New("no open conversation, use: open <vehicleId>")
	errUsage          = errors.New("usage")
)

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

func (a *App) inConversation() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

func (a *App) session() (*session.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil, errNoConversation
	}
	return a.current, nil
}

func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("open <vehicleId>")
	}
	if err := a.Close(ctx, nil); err != nil && !errors.Is(err, errNoConversation) {
		return err
	}

	s, err := a.manager.Open(ctx, args[0])
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.current = s
	a.lastState = s.State()
	a.lastUnread = s.Unread()
	a.offChange = s.OnChange(func() { a.onChange(s) })
	a.mu.Unlock()

	printlnFn(fmt.Sprintf("Opened conversation %s (%d cached messages)", s.ID(), len(s.Messages())))
	return nil
}

// onChange reports connection changes and newly arrived messages.
func (a *App) onChange(s *session.Session) {
	st, unread := s.State(), s.Unread()

	a.mu.Lock()
	if a.current != s {
		a.mu.Unlock()
		return
	}
	stateChanged := st != a.lastState
	more := unread > a.lastUnread
	a.lastState, a.lastUnread = st, unread
	a.mu.Unlock()

	if stateChanged {
		printlnFn("*", s.State().Label())
	}
	if more {
		printlnFn(fmt.Sprintf("* %d unread message(s), type 'show'", unread))
	}
}

func (a *App) Close(_ context.Context, _ []string) error {
	a.mu.Lock()
	s, off := a.current, a.offChange
	a.current, a.offChange = nil, nil
	a.mu.Unlock()

	if s == nil {
		return errNoConversation
	}
	if off != nil {
		off()
	}
	return s.Close()
}

func (a *App) Show(_ context.Context, _ []string) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	views := s.Views()
	if len(views) == 0 {
		printlnFn("No messages yet")
		return nil
	}
	for _, v := range views {
		printlnFn(formatView(v, a.userID))
	}
	return nil
}

func (a *App) Send(ctx context.Context, args []string) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return usage("send <text>")
	}
	m, err := s.Send(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	a.logger.Debug(ctx, "message sent", "client_id", m.ClientID)
	return nil
}

func (a *App) Photo(ctx context.Context, args []string) error {
	return a.sendFile(ctx, upload.SourceMedia, args)
}

func (a *App) File(ctx context.Context, args []string) error {
	return a.sendFile(ctx, upload.SourceDocument, args)
}

func (a *App) sendFile(ctx context.Context, source upload.Source, args []string) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	m, err := s.SendFile(ctx, source, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if m.File != nil {
		printlnFn("Shared", m.File.Name)
	}
	return nil
}

func (a *App) Read(ctx context.Context, args []string) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return usage("read <id>|all")
	}
	if args[0] == "all" {
		n, err := s.MarkAllRead(ctx)
		if err != nil {
			return err
		}
		printlnFn(fmt.Sprintf("Marked %d message(s) as read", n))
		return nil
	}
	return s.MarkRead(ctx, args[0])
}

func (a *App) Delete(ctx context.Context, args []string) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return usage("delete <id>")
	}
	return s.DeleteOwnMessage(ctx, args[0])
}

func (a *App) Pin(ctx context.Context, _ []string) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	if err := s.TogglePin(ctx); err != nil {
		return err
	}
	if s.Pinned() {
		printlnFn("Conversation pinned")
	} else {
		printlnFn("Conversation unpinned")
	}
	return nil
}

func (a *App) Retry(ctx context.Context, args []string) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return usage("retry <id>")
	}
	return s.Retry(ctx, args[0])
}

func (a *App) Discard(_ context.Context, args []string) error {
	s, err := a.session()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return usage("discard <id>")
	}
	return s.Discard(args[0])
}

func formatView(v models.View, self string) string {
	var b strings.Builder

	who := v.SenderID
	if self != "" && v.SenderID == self {
		who = "you"
	}
	fmt.Fprintf(&b, "[%s] %s: %s", v.Timestamp.Local().Format("2006-01-02 15:04"), who, v.Text)
	if v.File != nil {
		if v.Text != "" {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "[%s: %s] %s", v.File.Kind, v.File.Name, v.File.URL)
	}

	switch v.Status {
	case models.StatusPending:
		b.WriteString(" (sending)")
	case models.StatusFailed:
		b.WriteString(" (failed, retry or discard)")
	}
	if v.Read && !v.Deleted {
		b.WriteString(" (read)")
	}
	fmt.Fprintf(&b, "  #%s", v.Key)
	return b.String()
}
