package user

import (
	"encoding/json"
	"net/http"

	"github.com/decentralizedkaggle/DKaggle/internal/pubsub"
	"github.com/decentralizedkaggle/DKaggle/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// frameVersion extracts the leaderboard version from a published frame.
func frameVersion(msg []byte) (int64, bool) {
	var frame struct {
		Stream string `json:"stream"`
		Data   struct {
			Version int64 `json:"version"`
		} `json:"data"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil || frame.Stream != "leaderboard" {
		return 0, false
	}
	return frame.Data.Version, true
}

// handleLeaderboardWs sends the current leaderboard of a contest and then every
// newer version as it is written.
func (h *Handler) handleLeaderboardWs(c *gin.Context) {
	contestID := c.Param("id")

	// Subscribe before reading so no write between the two is missed.
	msgChan, unsubscribe := h.svc.Broker.Subscribe(pubsub.LeaderboardTopic(contestID))
	defer unsubscribe()

	current, err := h.svc.Leaderboard.Current(c.Request.Context(), contestID)
	if err != nil {
		util.ErrorFrom(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Errorf("failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, pubsub.FormatMessage("leaderboard", current)); err != nil {
		return
	}
	sent := current.Version

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					zap.S().Infof("websocket unexpected close error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-clientClosed:
			zap.S().Debugf("leaderboard websocket closed for contest %s", contestID)
			return
		case msg, ok := <-msgChan:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "contest closed"))
				return
			}
			version, ok := frameVersion(msg)
			if !ok || version <= sent {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zap.S().Warnf("error writing to websocket: %v", err)
				return
			}
			sent = version
		}
	}
}
