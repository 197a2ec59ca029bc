// Package pins stores per-user conversation pin flags.
package pins

import "context"

type Repository interface {
	Set(ctx context.Context, userID, conversationID string, pinned bool) error
	// Get returns false for conversations the user never pinned.
	Get(ctx context.Context, userID, conversationID string) (bool, error)
}
