package api

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

const liveWriteTimeout = 5 * time.Second

// Live godoc
// @Summary Stream ledger updates
// @Description Upgrades to a websocket and sends a LedgerResponse after every change.
// @Tags Sync
// @Router /live [get]
func (h *LedgerHandler) Live(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("WARN: WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.CloseNow()

	// Client messages are ignored; the context ends when the peer goes away.
	ctx := conn.CloseRead(c.Request.Context())
	for update := range h.ledger.Watch(ctx) {
		data, err := json.Marshal(LedgerResponse{Workouts: update.Workouts, Status: update.Status})
		if err != nil {
			log.Printf("ERROR: Failed to encode ledger update: %v", err)
			continue
		}
		writeCtx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
		err = conn.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			return
		}
	}
	_ = conn.Close(websocket.StatusGoingAway, "ledger closed")
}
