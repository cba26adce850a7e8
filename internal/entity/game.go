package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
)

// Mark is a player symbol occupying a cell.
type Mark string

const (
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
	EmptyCell Mark = ""
)

// Opponent returns the other player's mark. EmptyCell has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

func (that Mark) IsPlayer() bool {
	return that == PlayerX || that == PlayerO
}

// ParseMark accepts "X" or "O" (case-insensitive).
func ParseMark(value string) (Mark, error) {
	switch mark := Mark(strings.ToUpper(value)); mark {
	case PlayerX, PlayerO:
		return mark, nil
	default:
		return EmptyCell, fmt.Errorf("%w: %q", apperror.ErrInvalidMark, value)
	}
}

type Mode string

const (
	ModeTwoPlayer  Mode = "two_player"
	ModeVsComputer Mode = "vs_computer"
)

func ParseMode(value string) (Mode, error) {
	switch mode := Mode(value); mode {
	case ModeTwoPlayer, ModeVsComputer:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", apperror.ErrUnknownMode, value)
	}
}

// Result is the terminal result reported to the presentation layer.
type Result string

const (
	ResultNone Result = ""
	ResultWin  Result = "win"
	ResultDraw Result = "draw"
)

const BoardSize = 9

// Board holds the 3x3 grid in row-major order.
type Board [BoardSize]Mark

// WinPatterns lists rows, columns and diagonals in the order they are scanned.
var WinPatterns = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// EmptyCells returns the indexes of empty cells in ascending order.
func (that Board) EmptyCells() []int {
	cells := make([]int, 0, BoardSize)
	for i, cell := range that {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}
	return cells
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}
	return true
}

func (that Board) String() string {
	var sb strings.Builder
	for i, cell := range that {
		if cell == EmptyCell {
			sb.WriteByte('.')
		} else {
			sb.WriteString(string(cell))
		}
		if i%3 == 2 && i != BoardSize-1 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// Game is the whole state of one session. It is replaced, never shared,
// when a move is accepted or the game is reset.
type Game struct {
	ID           string `json:"id"`
	Board        Board  `json:"board"`
	Turn         Mark   `json:"player_turn"`
	Mode         Mode   `json:"mode"`
	ComputerMark Mark   `json:"computer_mark,omitempty"`
	Active       bool   `json:"active"`
	Result       Result `json:"result"`
	Winner       Mark   `json:"winner"`
	Moves        int    `json:"moves"`
	Generation   uint64 `json:"generation"`
}

// NewGame returns an active game with an empty board and X to move.
func NewGame(id string, mode Mode, computerMark Mark) Game {
	game := Game{
		ID:     id,
		Turn:   PlayerX,
		Mode:   mode,
		Active: true,
	}

	if mode == ModeVsComputer {
		game.ComputerMark = computerMark
	}

	return game
}

// HumanMark is the mark of the human player in vs_computer mode.
func (that *Game) HumanMark() Mark {
	return that.ComputerMark.Opponent()
}

func (that *Game) IsWithComputer() bool {
	return that.Mode == ModeVsComputer
}

// IsComputerTurn reports whether the computer is the one to move now.
func (that *Game) IsComputerTurn() bool {
	return that.Active && that.IsWithComputer() && that.Turn == that.ComputerMark
}

func (that *Game) IsFinished() bool {
	return !that.Active
}
