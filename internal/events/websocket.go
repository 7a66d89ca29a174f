package events

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/fathomsec/urlscan-engine/internal/logging"
	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// websocketSink adapts one connected websocket client into a Sink. A
// per-client buffered queue absorbs bursts; a full queue drops the
// incoming event rather than blocking the Hub.
type websocketSink struct {
	conn  *websocket.Conn
	queue chan scanmodel.Event
}

func newWebsocketSink(conn *websocket.Conn) *websocketSink {
	s := &websocketSink{conn: conn, queue: make(chan scanmodel.Event, 64)}
	go s.writeLoop()
	return s
}

func (s *websocketSink) Send(evt scanmodel.Event) {
	select {
	case s.queue <- evt:
	default:
		// Drop the event rather than block the hub; the client is
		// falling behind and will simply miss an intermediate update.
	}
}

func (s *websocketSink) writeLoop() {
	for evt := range s.queue {
		payload, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.conn.Close()
			return
		}
	}
}

func (s *websocketSink) close() {
	close(s.queue)
}

// Subscribe upgrades an HTTP request to a websocket connection and
// attaches it to hub as a Sink for the lifetime of the connection.
func Subscribe(hub *Hub, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.FromContext(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sink := newWebsocketSink(conn)
	hub.Attach(sink)

	defer func() {
		hub.Detach(sink)
		sink.close()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.FromContext(c.Request.Context()).Warn().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}
