package ws

import (
	"time"

	"github.com/pborman/uuid"

	"chat-bridge/internal/observability"
)

// ConnInfo is the identity and lifecycle metadata recorded per UI
// subscriber, attached to every published websocket event.
type ConnInfo struct {
	ConnID      string
	UserID      int
	Meta        observability.RequestMeta
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.New()
}
