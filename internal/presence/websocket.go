package presence

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/crawlerlog/internal/logging"
)

const (
	// EventUpdateUsers is the event name carried by every presence message.
	EventUpdateUsers = "update_users"

	writeTimeout = 5 * time.Second
)

// Message is the JSON frame sent to presence clients.
type Message struct {
	Event       string `json:"event"`
	ActiveUsers int    `json:"active_users"`
}

// ServeHTTP upgrades the request to a websocket and streams count updates
// until the client goes away. Opening the socket counts as a connect,
// closing it as a disconnect.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logging.WithComponent("presence")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	sub, active := h.Connect()
	defer h.Disconnect(sub)
	log.Debug().Int("active_users", active).Msg("presence client connected")

	// clients never send anything; CloseRead handles control frames and
	// cancels ctx once the peer disconnects
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-sub.Updates():
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := writeUpdate(ctx, conn, update); err != nil {
				log.Debug().Err(err).Msg("presence write failed")
				return
			}
		}
	}
}

func writeUpdate(ctx context.Context, conn *websocket.Conn, update Update) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, Message{
		Event:       EventUpdateUsers,
		ActiveUsers: update.ActiveUsers,
	})
}
