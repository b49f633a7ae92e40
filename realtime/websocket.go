package realtime

import (
	"net/http"
	"time"

	"food-marketplace-api/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
)

// WSServer streams one channel to one websocket connection.
type WSServer struct {
	bus      Bus
	log      logger.ILogger
	upgrader websocket.Upgrader
}

func NewWSServer(bus Bus, log logger.ILogger) *WSServer {
	return &WSServer{
		bus: bus,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and forwards channel events until the peer goes away.
// snapshot, when set, is called after subscribing and its event is sent first.
func (s *WSServer) Serve(w http.ResponseWriter, r *http.Request, channel string, snapshot func() (*Event, error)) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warning("websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	sub := s.bus.Subscribe(channel)
	defer sub.Close()

	log := s.log.With(logger.String("channel", channel), logger.String("subscriber", sub.ID))
	log.Debug("subscriber connected")

	if snapshot != nil {
		ev, err := snapshot()
		if err != nil {
			log.Warning("load snapshot", logger.Error(err))
		} else if ev != nil {
			if err := writeEvent(conn, *ev); err != nil {
				return
			}
		}
	}

	done := make(chan struct{})
	go readPump(conn, done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Debug("subscriber disconnected")
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				log.Debug("write failed", logger.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

// readPump discards client frames and keeps the pong deadline fresh.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
