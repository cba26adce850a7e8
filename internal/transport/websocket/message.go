package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
)

const (
	actionNewGame = "game:new"
	actionWatch   = "game:watch"
	actionTurn    = "game:turn"
	actionReset   = "game:reset"
	actionLeave   = "game:leave"
	actionState   = "game:state"
)

const (
	writeTimeout = 5 * time.Second
	outboxSize   = 32
)

var (
	ErrClientClosed = errors.New("client is closed")
	ErrSlowClient   = errors.New("client is not reading its messages")
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	GameID       string       `json:"game_id,omitempty"`
	Mode         string       `json:"mode,omitempty"`
	ComputerMark string       `json:"computer_mark,omitempty"`
	Cell         *int         `json:"cell,omitempty"`
	Game         *entity.Game `json:"game,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// client is one socket. Reads happen on the connection goroutine only; all
// writes go through outbox to writePump so a slow peer never blocks a sender.
type client struct {
	conn      *websocket.Conn
	outbox    chan Message
	done      chan struct{}
	closeOnce sync.Once

	// touched by the read loop only
	watching string
	owned    map[string]struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:   conn,
		outbox: make(chan Message, outboxSize),
		done:   make(chan struct{}),
		owned:  make(map[string]struct{}),
	}
}

func (that *client) send(action string, payload Payload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return that.enqueue(Message{Action: action, Payload: raw})
}

// enqueue never blocks. A client whose outbox is full is disconnected.
func (that *client) enqueue(message Message) error {
	select {
	case <-that.done:
		return ErrClientClosed
	default:
	}

	select {
	case that.outbox <- message:
		return nil
	default:
		that.close()
		return ErrSlowClient
	}
}

// writePump is the only writer of the connection.
func (that *client) writePump() error {
	for {
		select {
		case <-that.done:
			return nil
		case message := <-that.outbox:
			if err := that.write(message); err != nil {
				that.close()
				return err
			}
		}
	}
}

func (that *client) write(message Message) error {
	if err := that.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.conn.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// close stops the write pump and the connection; the read loop then ends too.
func (that *client) close() {
	that.closeOnce.Do(func() {
		close(that.done)
		_ = that.conn.Close()
	})
}
