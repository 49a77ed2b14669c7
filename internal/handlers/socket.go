package handlers

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	"github.com/clduab11/vibestack-backend/internal/services"
	"github.com/clduab11/vibestack-backend/pkg/logger"
	"github.com/clduab11/vibestack-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
)

var SocketServer *socketio.Server

// Presence tracking
var (
	onlineUsers   = make(map[string]string) // userId -> socketId
	onlineUsersMu sync.RWMutex
)

// IsUserOnline checks if a user is online
func IsUserOnline(userID string) bool {
	onlineUsersMu.RLock()
	defer onlineUsersMu.RUnlock()
	_, exists := onlineUsers[userID]
	return exists
}

func challengeRoom(challengeID string) string {
	return "challenge:" + challengeID
}

// InitSocketServer builds the realtime transport. Clients authenticate with a
// JWT in the handshake query, land in their personal room, and subscribe to
// challenge channels explicitly. All leaderboard fan-out goes through the
// services broadcaster, which this function registers itself as the emitter for.
func InitSocketServer() *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")
		url := s.URL()

		token := url.Query().Get("token")
		if token == "" {
			token = url.Query().Get("auth_token") // Fallback
		}
		if token == "" {
			logger.Warn().Str("socket_id", s.ID()).Msg("Socket connection rejected: no token")
			return fmt.Errorf("authentication required")
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			logger.Warn().Str("socket_id", s.ID()).Msg("Socket connection rejected: invalid token")
			return fmt.Errorf("invalid token")
		}

		userID := claims.UserID
		s.SetContext(userID)

		onlineUsersMu.Lock()
		onlineUsers[userID] = s.ID()
		onlineUsersMu.Unlock()

		// Personal room for notifications and achievement unlocks
		s.Join("user:" + userID)

		return nil
	})

	// Subscribe to a challenge channel. Only participants may listen; the ack
	// carries the channel's current sequence number so the client can detect
	// gaps from the first event it receives.
	server.OnEvent("/", "subscribe_challenge", func(s socketio.Conn, challengeID string) {
		userID, _ := s.Context().(string)
		if userID == "" {
			return
		}

		var count int64
		database.DB.Model(&models.ChallengeParticipant{}).
			Where("challenge_id = ? AND user_id = ? AND left_at IS NULL", challengeID, userID).
			Count(&count)
		if count == 0 {
			s.Emit("subscribe_error", map[string]interface{}{
				"challengeId": challengeID,
				"error":       "not a participant",
			})
			return
		}

		s.Join(challengeRoom(challengeID))
		s.Emit("subscribed", map[string]interface{}{
			"challengeId": challengeID,
			"seq":         services.ChannelSequence(challengeID),
		})
	})

	server.OnEvent("/", "unsubscribe_challenge", func(s socketio.Conn, challengeID string) {
		s.Leave(challengeRoom(challengeID))
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		onlineUsersMu.Lock()
		for userID, socketID := range onlineUsers {
			if socketID == s.ID() {
				delete(onlineUsers, userID)
				break
			}
		}
		onlineUsersMu.Unlock()
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		logger.Error().Err(e).Msg("Socket error")
	})

	// Wire the services broadcaster onto this transport. Events arriving here
	// already carry their channel sequence number.
	services.SetBroadcastEmitter(func(room, event string, data interface{}) {
		server.BroadcastToRoom("/", room, event, data)
	})

	go server.Serve()
	SocketServer = server
	return server
}

// SocketHandler wraps the socket.io server for gin
func SocketHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}
