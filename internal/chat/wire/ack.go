package wire

import (
	"errors"
	"fmt"
)

// Ack error codes.
const (
	CodeNotFound  = "not_found"
	CodeForbidden = "forbidden"
	CodeInvalid   = "invalid"
	CodeInternal  = "internal"
)

// ErrRejected matches every *Rejection via errors.Is.
var ErrRejected = errors.New("rejected by server")

// Ack answers one outbound envelope.
type Ack struct {
	Ref   string    `json:"ref"`
	OK    bool      `json:"ok"`
	Error *AckError `json:"error,omitempty"`
}

type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// OKAck acknowledges ref.
func OKAck(ref string) Ack {
	return Ack{Ref: ref, OK: true}
}

// FailAck rejects ref with a code and message.
func FailAck(ref, code, message string) Ack {
	return Ack{Ref: ref, Error: &AckError{Code: code, Message: message}}
}

// Err returns nil for a positive ack and a *Rejection otherwise.
func (a Ack) Err() error {
	if a.OK {
		return nil
	}
	r := &Rejection{Code: CodeInternal}
	if a.Error != nil {
		r.Code = a.Error.Code
		r.Message = a.Error.Message
	}
	return r
}

// Rejection is the server's refusal of an outbound request.
type Rejection struct {
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return fmt.Sprintf("rejected: %s", r.Code)
	}
	return fmt.Sprintf("rejected: %s: %s", r.Code, r.Message)
}

func (r *Rejection) Is(target error) bool { return target == ErrRejected }
