// Package solver picks the computer's move with an exhaustive minimax search.
package solver

import (
	"fmt"
	"math"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/tictactoe"
)

const (
	scoreWin  = 1.0
	scoreLoss = -1.0
	scoreDraw = 0.0
)

// BestMove returns the cell the computer should play. The board is searched
// to the end without pruning; ties keep the lowest cell index.
func BestMove(board entity.Board, computerMark, humanMark entity.Mark) (int, error) {
	if !computerMark.IsPlayer() || computerMark.Opponent() != humanMark {
		return -1, fmt.Errorf("%w: computer %q, human %q", apperror.ErrInvalidMark, computerMark, humanMark)
	}

	if result, _ := tictactoe.Outcome(board); result != entity.ResultNone {
		return -1, fmt.Errorf("%w: board %s is terminal", apperror.ErrNoLegalMove, board)
	}

	bestCell := -1
	bestScore := math.Inf(-1)

	for _, cell := range board.EmptyCells() {
		next := board
		next[cell] = computerMark

		score := minimax(next, 0, humanMark, computerMark)
		if score > bestScore {
			bestScore = score
			bestCell = cell
		}
	}

	return bestCell, nil
}

// minimax scores board for computerMark with toMove to play next. depth
// counts the plies already placed below the root move.
func minimax(board entity.Board, depth int, toMove, computerMark entity.Mark) float64 {
	switch result, winner := tictactoe.Outcome(board); result {
	case entity.ResultWin:
		if winner == computerMark {
			return scoreWin / float64(depth+1)
		}
		return scoreLoss / float64(depth+1)
	case entity.ResultDraw:
		return scoreDraw
	}

	maximizing := toMove == computerMark

	best := math.Inf(1)
	if maximizing {
		best = math.Inf(-1)
	}

	for _, cell := range board.EmptyCells() {
		next := board
		next[cell] = toMove

		score := minimax(next, depth+1, toMove.Opponent(), computerMark)
		if maximizing {
			best = math.Max(best, score)
		} else {
			best = math.Min(best, score)
		}
	}

	return best
}
