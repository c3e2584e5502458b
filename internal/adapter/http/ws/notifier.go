package wshandler

import (
	"github.com/Temutjin2k/driver-engine/internal/domain/models"
	ws "github.com/Temutjin2k/driver-engine/pkg/wsHub"
)

// Notifier pushes session messages to every connected UI client.
type Notifier struct {
	connections *ws.ConnectionHub
}

func NewNotifier(connHub *ws.ConnectionHub) *Notifier {
	return &Notifier{
		connections: connHub,
	}
}

func (n *Notifier) Broadcast(msg models.WebSocketMessage) {
	n.connections.Broadcast(msg)
}
