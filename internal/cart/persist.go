package cart

import (
	"context"
	"errors"
	"strings"
)

// StorageKey is the base key carts are persisted under. Every session gets its
// own key, see SessionKey.
const StorageKey = "cart-storage"

// ErrNotFound is returned by Persister.Load when nothing is stored under the key.
var ErrNotFound = errors.New("cart state not found")

// Persister stores cart blobs. Implementations must be safe for concurrent use
// across keys; a single key is only ever written by one store goroutine.
type Persister interface {
	Load(ctx context.Context, key string) (*State, error)
	Save(ctx context.Context, key string, state State) error
}

// SessionKey scopes the storage key to one browsing session.
func SessionKey(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return StorageKey
	}
	return StorageKey + ":" + sessionID
}
