package api

import (
	"net/http"
	"time"

	"dividend_tracker/internal/models"
	"dividend_tracker/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// snapshotMessage is pushed to websocket clients on connect and after every mutation.
type snapshotMessage struct {
	Type      string             `json:"type"`
	Positions []models.Position  `json:"positions"`
	Income    []models.IncomeRow `json:"income"`
}

// liveFeed streams portfolio snapshots. Clients never write state through it.
func (m ApiHandler) liveFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		m.Log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates := make(chan []models.Position, 8)
	cancel := m.Portfolio.Subscribe(func(ps []models.Position) {
		select {
		case updates <- ps:
		default:
			// Slow client; it will catch up on the next snapshot
		}
	})
	defer cancel()

	// Reader goroutine only watches for close and pongs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ps []models.Position) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(snapshotMessage{
			Type:      "snapshot",
			Positions: ps,
			Income:    tracker.IncomeRows(ps),
		})
	}
	if err := send(m.Portfolio.Positions()); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ps := <-updates:
			if err := send(ps); err != nil {
				m.Log.Debugf("websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
