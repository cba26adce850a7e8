package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
)

// ApplyMove places the mark of the player to move on cell and returns the
// resulting game. A rejected move returns the input game unchanged.
func ApplyMove(game entity.Game, cell int) (entity.Game, error) {
	if err := validateMove(&game, cell); err != nil {
		return game, fmt.Errorf("invalid turn: %w", err)
	}

	next := game
	next.Board[cell] = game.Turn
	next.Moves++
	updateGameStatus(&next)

	return next, nil
}

// validateMove - checks if the move is valid.
func validateMove(game *entity.Game, cell int) error {
	if !game.Active {
		return apperror.ErrGameNotActive
	}

	if cell < 0 || cell >= len(game.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if game.Board[cell] != entity.EmptyCell {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, cell)
	}

	return nil
}

// updateGameStatus - checks the game status after a move.
func updateGameStatus(game *entity.Game) {
	switch result, winner := Outcome(game.Board); result {
	case entity.ResultWin:
		game.Result = entity.ResultWin
		game.Winner = winner
		game.Active = false
	case entity.ResultDraw:
		game.Result = entity.ResultDraw
		game.Active = false
	default:
		game.Turn = toggleMark(game.Turn)
	}
}

func toggleMark(currentMark entity.Mark) entity.Mark {
	if currentMark == entity.PlayerX {
		return entity.PlayerO
	}
	return entity.PlayerX
}

// DetectWinner returns the mark that completes the first matching win
// pattern, or EmptyCell.
func DetectWinner(board entity.Board) entity.Mark {
	for _, combo := range entity.WinPatterns {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return a
		}
	}

	return entity.EmptyCell
}

// IsDraw reports a full board without a winner.
func IsDraw(board entity.Board) bool {
	return DetectWinner(board) == entity.EmptyCell && board.IsFull()
}

// Outcome classifies the board. The win check always runs before the draw check.
func Outcome(board entity.Board) (entity.Result, entity.Mark) {
	if winner := DetectWinner(board); winner != entity.EmptyCell {
		return entity.ResultWin, winner
	}

	if board.IsFull() {
		return entity.ResultDraw, entity.EmptyCell
	}

	return entity.ResultNone, entity.EmptyCell
}
