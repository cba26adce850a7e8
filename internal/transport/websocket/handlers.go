package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
)

const (
	errTextGameNotFound = "game not found"
	errTextNotOwner     = "only the creator of the game can play it"
)

func (that *Server) handleNewGame(ctx context.Context, c *client, msg *Message, payload Payload) error {
	log := that.logger.With("method", "handleNewGame")

	mode, err := entity.ParseMode(payload.Mode)
	if err != nil {
		that.sendError(c, msg.Action, err.Error())
		return nil
	}

	computerMark, err := parseMark(payload.ComputerMark)
	if err != nil {
		that.sendError(c, msg.Action, err.Error())
		return nil
	}

	game, err := that.games.NewGame(ctx, mode, computerMark)
	if err != nil {
		that.sendError(c, msg.Action, "failed to create a new game")
		return fmt.Errorf("failed to create game: %w", err)
	}

	c.owned[game.ID] = struct{}{}
	that.follow(c, game.ID)

	// the computer may have opened before the client started watching
	if latest, getErr := that.games.GetGame(ctx, game.ID); getErr == nil {
		game = latest
	}

	log.Info("game created", "gameID", game.ID)

	return c.send(msg.Action, Payload{Game: game})
}

func (that *Server) handleWatch(ctx context.Context, c *client, msg *Message, payload Payload) error {
	if payload.GameID == "" {
		that.sendError(c, msg.Action, "game_id is required")
		return nil
	}

	previous := c.watching
	that.follow(c, payload.GameID)

	game, err := that.games.GetGame(ctx, payload.GameID)
	if err != nil {
		that.unfollow(c)
		if previous != "" {
			that.follow(c, previous)
		}

		if errors.Is(err, apperror.ErrGameNotFound) {
			that.sendError(c, msg.Action, errTextGameNotFound)
			return nil
		}

		that.sendError(c, msg.Action, "failed to get the game")
		return fmt.Errorf("failed to get game: %w", err)
	}

	return c.send(msg.Action, Payload{Game: game})
}

// handleTurn plays on the client's own game. Accepted moves reach the client
// through the state push; a rejected move only echoes the unchanged game.
func (that *Server) handleTurn(ctx context.Context, c *client, msg *Message, payload Payload) error {
	log := that.logger.With("method", "handleTurn")

	gameID, ok := that.ownGame(c, msg)
	if !ok {
		return nil
	}

	if payload.Cell == nil {
		that.sendError(c, msg.Action, "cell is required")
		return nil
	}

	game, err := that.games.MakeTurn(ctx, gameID, *payload.Cell)
	switch {
	case err == nil:
		return nil
	case apperror.IsRejectedMove(err):
		log.Debug("move rejected", "gameID", gameID, "cell", *payload.Cell, "error", err)
		return c.send(actionState, Payload{Game: game})
	case errors.Is(err, apperror.ErrGameNotFound):
		that.sendError(c, msg.Action, errTextGameNotFound)
		return nil
	default:
		that.sendError(c, msg.Action, "failed to make a turn")
		return fmt.Errorf("failed to make turn: %w", err)
	}
}

func (that *Server) handleReset(ctx context.Context, c *client, msg *Message, payload Payload) error {
	gameID, ok := that.ownGame(c, msg)
	if !ok {
		return nil
	}

	var mode entity.Mode
	if payload.Mode != "" {
		parsed, err := entity.ParseMode(payload.Mode)
		if err != nil {
			that.sendError(c, msg.Action, err.Error())
			return nil
		}
		mode = parsed
	}

	computerMark, err := parseMark(payload.ComputerMark)
	if err != nil {
		that.sendError(c, msg.Action, err.Error())
		return nil
	}

	if _, err = that.games.Reset(ctx, gameID, mode, computerMark); err != nil {
		if errors.Is(err, apperror.ErrGameNotFound) {
			that.sendError(c, msg.Action, errTextGameNotFound)
			return nil
		}

		that.sendError(c, msg.Action, "failed to reset the game")
		return fmt.Errorf("failed to reset game: %w", err)
	}

	return nil
}

func (that *Server) handleLeave(ctx context.Context, c *client, msg *Message, _ Payload) error {
	gameID := c.watching
	if gameID == "" {
		return c.send(msg.Action, Payload{})
	}

	that.unfollow(c)

	if _, ok := c.owned[gameID]; ok {
		that.endGame(ctx, c, gameID)
	}

	return c.send(msg.Action, Payload{GameID: gameID})
}

// endGame removes the game and tells the remaining watchers it is gone.
func (that *Server) endGame(ctx context.Context, owner *client, gameID string) {
	log := that.logger.With("method", "endGame", "gameID", gameID)

	delete(owner.owned, gameID)

	if err := that.games.EndGame(ctx, gameID); err != nil && !errors.Is(err, apperror.ErrGameNotFound) {
		log.Error("failed to end game", "error", err)
	}

	for _, watcher := range that.hub.drop(gameID) {
		if watcher == owner {
			continue
		}

		if err := watcher.send(actionLeave, Payload{GameID: gameID}); err != nil {
			log.Debug("failed to notify watcher", "error", err)
		}
	}

	log.Info("game ended by its creator")
}

func (that *Server) ownGame(c *client, msg *Message) (string, bool) {
	if c.watching == "" {
		that.sendError(c, msg.Action, errTextGameNotFound)
		return "", false
	}

	if _, ok := c.owned[c.watching]; !ok {
		that.sendError(c, msg.Action, errTextNotOwner)
		return "", false
	}

	return c.watching, true
}

func (that *Server) follow(c *client, gameID string) {
	if c.watching != "" && c.watching != gameID {
		that.hub.unwatch(c.watching, c)
	}

	that.hub.watch(gameID, c)
	c.watching = gameID
}

func (that *Server) unfollow(c *client) {
	if c.watching == "" {
		return
	}

	that.hub.unwatch(c.watching, c)
	c.watching = ""
}

func parseMark(raw string) (entity.Mark, error) {
	if raw == "" {
		return entity.EmptyCell, nil
	}

	return entity.ParseMark(raw)
}
