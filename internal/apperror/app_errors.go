package apperror

import "errors"

var (
	ErrInvalidCell   = errors.New("cell index out of range")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrGameNotActive = errors.New("game is not active")
	ErrNotYourTurn   = errors.New("it's not your turn")

	ErrNoLegalMove  = errors.New("no legal move for solver")
	ErrGameNotFound = errors.New("game not found")
	ErrUnknownMode  = errors.New("unknown game mode")
	ErrInvalidMark  = errors.New("invalid player mark")
)

// IsRejectedMove reports whether err is one of the guards that silently
// reject a move request without changing the game.
func IsRejectedMove(err error) bool {
	return errors.Is(err, ErrInvalidCell) ||
		errors.Is(err, ErrCellOccupied) ||
		errors.Is(err, ErrGameNotActive) ||
		errors.Is(err, ErrNotYourTurn)
}
