package service

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/solver"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/tictactoe"
)

var ErrNotComputerGame = errors.New("game is not played against the computer")

type BotService interface {
	MakeTurn(game entity.Game) (entity.Game, error)
}

type botService struct{}

func NewBotService() BotService {
	return &botService{}
}

// MakeTurn plays the computer's move through the rules engine.
func (that *botService) MakeTurn(game entity.Game) (entity.Game, error) {
	if !game.IsWithComputer() {
		return game, ErrNotComputerGame
	}

	if !game.Active {
		return game, apperror.ErrGameNotActive
	}

	if game.Turn != game.ComputerMark {
		return game, apperror.ErrNotYourTurn
	}

	chosenCell, err := solver.BestMove(game.Board, game.ComputerMark, game.HumanMark())
	if err != nil {
		return game, fmt.Errorf("bot failed to choose a cell: %w", err)
	}

	next, err := tictactoe.ApplyMove(game, chosenCell)
	if err != nil {
		return game, fmt.Errorf("bot failed to make turn: %w", err)
	}

	return next, nil
}
