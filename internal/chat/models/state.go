package models

// ConnState is the connection state of a conversation channel.
type ConnState string

const (
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateDisconnected ConnState = "disconnected"
)

// Label is the status line shown to the user.
func (s ConnState) Label() string {
	if s == StateConnected {
		return "Connected"
	}
	return "Connecting…"
}
