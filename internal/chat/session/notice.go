package session

import "context"

// NoticeKind classifies user-facing notices.
type NoticeKind string

const (
	NoticeConnection       NoticeKind = "connection"
	NoticePermissionDenied NoticeKind = "permission_denied"
	NoticeUploadFailed     NoticeKind = "upload_failed"
	NoticeRejected         NoticeKind = "rejected"
	NoticeBusy             NoticeKind = "busy"
	NoticeValidation       NoticeKind = "validation"
)

// Notice is a message the UI should surface to the user.
type Notice struct {
	ConversationID string
	Kind           NoticeKind
	Message        string
	Err            error
}

type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

func (s *Session) notice(ctx context.Context, kind NoticeKind, msg string, err error) {
	args := []any{"kind", kind}
	if err != nil {
		args = append(args, "error", err)
	}
	s.log.Warn(ctx, msg, args...)
	if s.notifier != nil {
		s.notifier.Notify(Notice{ConversationID: s.id, Kind: kind, Message: msg, Err: err})
	}
}
