package websocket

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"profeamigo/services"
	"profeamigo/structs"
	"profeamigo/utils"
)

func (h *Hub) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.services.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.services.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// Handler upgrades to a writing session. A token is optional; without one
// the session checks text but keeps no profile or history.
func (h *Hub) Handler(c *gin.Context) {
	var tokenString string
	if parts := strings.Split(c.GetHeader("Authorization"), " "); len(parts) == 2 && parts[0] == "Bearer" {
		tokenString = parts[1]
	}
	if tokenString == "" {
		tokenString = c.Query("token")
	}

	var userID, username string
	if tokenString != "" {
		claims, err := utils.ParseJWTToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		userID, username = claims.UserID, claims.Username
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Warnf("ws: upgrade: %v", err)
		return
	}

	client := newClient(h, conn, userID, username)
	h.register(client)
	zap.S().Infof("ws: client %s connected (user %q)", client.ID, username)

	client.send(structs.ServerMessage{Type: structs.MsgServer, SocketID: client.ID, Message: services.WelcomeMessage})
	go client.pingPump()
	client.readPump()
	zap.S().Infof("ws: client %s disconnected", client.ID)
}
