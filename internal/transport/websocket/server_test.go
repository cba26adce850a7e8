package websocket_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/repository"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/scheduler"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/service"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/transport/websocket"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/usecase"
)

const readTimeout = 2 * time.Second

type fixture struct {
	url     string
	manager *usecase.GameManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := usecase.NewGameManager(
		logger,
		repository.NewMemoryGameRepository(time.Hour),
		service.NewBotService(),
		scheduler.New(),
		usecase.Options{ComputerDelay: 100 * time.Millisecond},
	)

	server := websocket.New(logger, manager)
	manager.Subscribe(server)

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)

	return &fixture{
		url:     "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		manager: manager,
	}
}

func (that *fixture) dial(t *testing.T) *gorilla.Conn {
	t.Helper()

	conn, resp, err := gorilla.DefaultDialer.Dial(that.url, nil)
	require.NoError(t, err)
	resp.Body.Close()

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *gorilla.Conn, action string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(websocket.Message{Action: action, Payload: raw}))
}

func receive(t *testing.T, conn *gorilla.Conn) (string, websocket.Payload) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

	var message websocket.Message
	require.NoError(t, conn.ReadJSON(&message))

	var payload websocket.Payload
	if len(message.Payload) > 0 {
		require.NoError(t, json.Unmarshal(message.Payload, &payload))
	}

	return message.Action, payload
}

// receiveState skips frames until a pushed state satisfies match.
func receiveState(t *testing.T, conn *gorilla.Conn, match func(entity.Game) bool) entity.Game {
	t.Helper()

	for {
		action, payload := receive(t, conn)
		if action == "game:state" && payload.Game != nil && match(*payload.Game) {
			return *payload.Game
		}
	}
}

func newGame(t *testing.T, conn *gorilla.Conn, mode, computerMark string) entity.Game {
	t.Helper()

	send(t, conn, "game:new", map[string]string{"mode": mode, "computer_mark": computerMark})

	action, payload := receive(t, conn)
	require.Equal(t, "game:new", action)
	require.Empty(t, payload.Error)
	require.NotNil(t, payload.Game)

	return *payload.Game
}

func TestServer_NewGame(t *testing.T) {
	f := newFixture(t)

	t.Run("Two player", func(t *testing.T) {
		conn := f.dial(t)

		game := newGame(t, conn, "two_player", "")

		assert.Equal(t, entity.ModeTwoPlayer, game.Mode)
		assert.True(t, game.Active)
	})

	t.Run("Computer opens as X", func(t *testing.T) {
		conn := f.dial(t)

		game := newGame(t, conn, "vs_computer", "X")

		opened := receiveState(t, conn, func(g entity.Game) bool { return g.Moves == 1 })
		assert.Equal(t, game.ID, opened.ID)
		assert.Equal(t, entity.PlayerX, opened.Board[0])
	})

	t.Run("Unknown mode", func(t *testing.T) {
		conn := f.dial(t)

		send(t, conn, "game:new", map[string]string{"mode": "chess"})

		action, payload := receive(t, conn)
		assert.Equal(t, "game:new", action)
		assert.NotEmpty(t, payload.Error)
	})
}

func TestServer_Turn(t *testing.T) {
	f := newFixture(t)

	t.Run("Accepted moves are pushed", func(t *testing.T) {
		conn := f.dial(t)
		game := newGame(t, conn, "two_player", "")

		send(t, conn, "game:turn", map[string]int{"cell": 4})

		next := receiveState(t, conn, func(g entity.Game) bool { return g.Moves == 1 })
		assert.Equal(t, game.ID, next.ID)
		assert.Equal(t, entity.PlayerX, next.Board[4])
		assert.Equal(t, entity.PlayerO, next.Turn)
	})

	t.Run("Computer replies after the human", func(t *testing.T) {
		conn := f.dial(t)
		newGame(t, conn, "vs_computer", "")

		send(t, conn, "game:turn", map[string]int{"cell": 4})

		reply := receiveState(t, conn, func(g entity.Game) bool { return g.Moves == 2 })
		assert.Equal(t, entity.PlayerO, reply.Board[0])
		assert.Equal(t, entity.PlayerX, reply.Turn)
	})

	t.Run("Rejected move echoes the unchanged game", func(t *testing.T) {
		conn := f.dial(t)
		newGame(t, conn, "two_player", "")

		send(t, conn, "game:turn", map[string]int{"cell": 0})
		before := receiveState(t, conn, func(g entity.Game) bool { return g.Moves == 1 })

		send(t, conn, "game:turn", map[string]int{"cell": 0})
		action, payload := receive(t, conn)

		assert.Equal(t, "game:state", action)
		assert.Empty(t, payload.Error)
		require.NotNil(t, payload.Game)
		assert.Equal(t, before, *payload.Game)
	})

	t.Run("Without a game", func(t *testing.T) {
		conn := f.dial(t)

		send(t, conn, "game:turn", map[string]int{"cell": 0})

		action, payload := receive(t, conn)
		assert.Equal(t, "game:turn", action)
		assert.NotEmpty(t, payload.Error)
	})
}

func TestServer_Watch(t *testing.T) {
	f := newFixture(t)

	owner := f.dial(t)
	watcher := f.dial(t)
	game := newGame(t, owner, "two_player", "")

	// When: a second client watches the game
	send(t, watcher, "game:watch", map[string]string{"game_id": game.ID})
	action, payload := receive(t, watcher)

	// Then: it receives the current state and every later transition
	require.Equal(t, "game:watch", action)
	require.NotNil(t, payload.Game)
	assert.Equal(t, game.ID, payload.Game.ID)

	send(t, owner, "game:turn", map[string]int{"cell": 8})
	pushed := receiveState(t, watcher, func(g entity.Game) bool { return g.Moves == 1 })
	assert.Equal(t, entity.PlayerX, pushed.Board[8])

	// And: watchers cannot play
	send(t, watcher, "game:turn", map[string]int{"cell": 0})
	action, payload = receive(t, watcher)
	assert.Equal(t, "game:turn", action)
	assert.NotEmpty(t, payload.Error)

	// And: the creator leaving ends the game for everyone
	send(t, owner, "game:leave", nil)
	action, payload = receive(t, watcher)
	assert.Equal(t, "game:leave", action)
	assert.Equal(t, game.ID, payload.GameID)

	send(t, watcher, "game:watch", map[string]string{"game_id": game.ID})
	_, payload = receive(t, watcher)
	assert.NotEmpty(t, payload.Error)
}

func TestServer_Reset(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	game := newGame(t, conn, "two_player", "")

	send(t, conn, "game:turn", map[string]int{"cell": 4})
	receiveState(t, conn, func(g entity.Game) bool { return g.Moves == 1 })

	send(t, conn, "game:reset", map[string]string{"mode": "vs_computer", "computer_mark": "X"})

	fresh := receiveState(t, conn, func(g entity.Game) bool { return g.Generation == game.Generation+1 })
	assert.Equal(t, game.ID, fresh.ID)
	assert.Equal(t, entity.ModeVsComputer, fresh.Mode)

	// the computer plays X and opens on the new board
	opened := receiveState(t, conn, func(g entity.Game) bool {
		return g.Generation == fresh.Generation && g.Moves == 1
	})
	assert.Equal(t, entity.PlayerX, opened.Board[0])
}

func TestServer_DisconnectEndsOwnedGames(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	game := newGame(t, conn, "two_player", "")

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		_, err := f.manager.GetGame(context.Background(), game.ID)
		return err != nil
	}, readTimeout, 10*time.Millisecond)
}

func TestServer_BadFrames(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("not json")))
	_, payload := receive(t, conn)
	assert.Equal(t, "invalid message", payload.Error)

	send(t, conn, "game:fly", nil)
	action, payload := receive(t, conn)
	assert.Equal(t, "game:fly", action)
	assert.Equal(t, "unknown action", payload.Error)
}
