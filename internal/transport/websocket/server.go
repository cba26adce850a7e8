package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
)

type gameUseCase interface {
	NewGame(ctx context.Context, mode entity.Mode, computerMark entity.Mark) (*entity.Game, error)
	GetGame(ctx context.Context, gameID string) (*entity.Game, error)
	MakeTurn(ctx context.Context, gameID string, cell int) (*entity.Game, error)
	Reset(ctx context.Context, gameID string, mode entity.Mode, computerMark entity.Mark) (*entity.Game, error)
	EndGame(ctx context.Context, gameID string) error
}

type handlerFunc func(ctx context.Context, c *client, msg *Message, payload Payload) error

type Server struct {
	logger   *slog.Logger
	games    gameUseCase
	hub      *hub
	upgrader websocket.Upgrader

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, games gameUseCase) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		games:  games,
		hub:    newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionNewGame] = server.handleNewGame
	server.handlers[actionWatch] = server.handleWatch
	server.handlers[actionTurn] = server.handleTurn
	server.handlers[actionReset] = server.handleReset
	server.handlers[actionLeave] = server.handleLeave

	return server
}

// Router - routes the socket endpoint.
func (that *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", that.serveWS)

	return r
}

// Notify pushes the game to every client watching it.
func (that *Server) Notify(_ context.Context, game *entity.Game) {
	log := that.logger.With("method", "Notify", "gameID", game.ID)

	clients := that.hub.clients(game.ID)
	if len(clients) == 0 {
		return
	}

	raw, err := json.Marshal(Payload{Game: game})
	if err != nil {
		log.Error("failed to marshal game", "error", err)
		return
	}

	message := Message{Action: actionState, Payload: raw}
	for _, c := range clients {
		if err = c.enqueue(message); err != nil {
			log.Debug("failed to push game state", "error", err)
		}
	}
}

func (that *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(conn)
	ctx := context.WithoutCancel(r.Context())

	log.Info("WebSocket connection established", "remote", conn.RemoteAddr().String())

	go func() {
		if writeErr := c.writePump(); writeErr != nil {
			log.Debug("write pump stopped", "error", writeErr)
		}
	}()

	defer that.disconnect(ctx, c)

	that.handleMessages(ctx, c)
}

// handleMessages - processes messages from the client until the socket closes.
func (that *Server) handleMessages(ctx context.Context, c *client) {
	log := that.logger.With("method", "handleMessages")

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Debug("failed to unmarshal message", "error", err)
			that.sendError(c, "", "invalid message")
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Debug("unknown action", "action", message.Action)
			that.sendError(c, message.Action, "unknown action")
			continue
		}

		var payload Payload
		if len(message.Payload) > 0 {
			if err = json.Unmarshal(message.Payload, &payload); err != nil {
				that.sendError(c, message.Action, "invalid payload")
				continue
			}
		}

		if err = handler(ctx, c, &message, payload); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// disconnect ends every game the client created.
func (that *Server) disconnect(ctx context.Context, c *client) {
	for gameID := range c.owned {
		that.endGame(ctx, c, gameID)
	}

	if c.watching != "" {
		that.hub.unwatch(c.watching, c)
	}

	c.close()
}

func (that *Server) sendError(c *client, action, message string) {
	if err := c.send(action, Payload{Error: message}); err != nil {
		that.logger.Debug("failed to send error", "action", action, "error", err)
	}
}
