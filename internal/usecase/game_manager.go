package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/scheduler"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/tictactoe"
)

const computerTurnTimeout = 5 * time.Second

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

type botService interface {
	MakeTurn(game entity.Game) (entity.Game, error)
}

type taskScheduler interface {
	AfterDelay(delay time.Duration, task func()) scheduler.CancelFunc
}

// Notifier receives every state transition of a game: new game, accepted
// move, computer move and reset. Notify runs under the manager lock in
// transition order, so it must hand the game off without blocking.
type Notifier interface {
	Notify(ctx context.Context, game *entity.Game)
}

type Options struct {
	// ComputerDelay paces the computer's reply after a human move.
	ComputerDelay time.Duration
	// StrictInvariants turns a solver precondition violation into a panic.
	StrictInvariants bool
}

type pendingTurn struct {
	generation uint64
	cancel     scheduler.CancelFunc
}

// GameManager owns the game sessions. All state changes go through its lock,
// so there is a single writer per process.
type GameManager struct {
	logger    *slog.Logger
	gameRepo  gameRepo
	bot       botService
	scheduler taskScheduler
	opts      Options

	mu        sync.Mutex
	pending   map[string]pendingTurn
	notifiers []Notifier
}

func NewGameManager(logger *slog.Logger, gameRepo gameRepo, bot botService, sched taskScheduler, opts Options) *GameManager {
	return &GameManager{
		logger:    logger.With("component", "game_manager"),
		gameRepo:  gameRepo,
		bot:       bot,
		scheduler: sched,
		opts:      opts,
		pending:   make(map[string]pendingTurn),
	}
}

// Subscribe registers a notifier for all games.
func (that *GameManager) Subscribe(notifier Notifier) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.notifiers = append(that.notifiers, notifier)
}

func (that *GameManager) NewGame(ctx context.Context, mode entity.Mode, computerMark entity.Mark) (*entity.Game, error) {
	computerMark, err := computerMarkFor(mode, computerMark)
	if err != nil {
		return nil, err
	}

	game := entity.NewGame(uuid.NewString(), mode, computerMark)

	that.mu.Lock()
	defer that.mu.Unlock()

	if err = that.saveAndNotify(ctx, &game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.logger.Info("game created", "gameID", game.ID, "mode", game.Mode, "computer", game.ComputerMark)

	that.scheduleComputerTurn(game)

	return &game, nil
}

func (that *GameManager) GetGame(ctx context.Context, gameID string) (*entity.Game, error) {
	game, err := that.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	return game, nil
}

// MakeTurn plays cell for the player to move. A rejected move returns the
// unchanged game together with the rejection error.
func (that *GameManager) MakeTurn(ctx context.Context, gameID string, cell int) (*entity.Game, error) {
	log := that.logger.With("method", "MakeTurn", "gameID", gameID)

	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	if game.IsComputerTurn() {
		return game, apperror.ErrNotYourTurn
	}

	next, err := tictactoe.ApplyMove(*game, cell)
	if err != nil {
		log.Debug("move rejected", "cell", cell, "error", err)
		return game, fmt.Errorf("failed to make turn: %w", err)
	}

	if err = that.saveAndNotify(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	log.Debug("move accepted", "cell", cell, "board", next.Board.String())

	if next.IsFinished() {
		log.Info("game finished", "result", next.Result, "winner", next.Winner)
	}

	that.scheduleComputerTurn(next)

	return &next, nil
}

// Reset replaces the game with a fresh one under the same ID. An empty mode
// keeps the current mode and computer mark. A pending computer move of the
// old game is cancelled and would be dropped anyway by the generation check.
func (that *GameManager) Reset(ctx context.Context, gameID string, mode entity.Mode, computerMark entity.Mark) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	if mode == "" {
		mode = game.Mode
		if computerMark == entity.EmptyCell {
			computerMark = game.ComputerMark
		}
	}

	computerMark, err = computerMarkFor(mode, computerMark)
	if err != nil {
		return nil, err
	}

	that.cancelPending(gameID)

	fresh := entity.NewGame(game.ID, mode, computerMark)
	fresh.Generation = game.Generation + 1

	if err = that.saveAndNotify(ctx, &fresh); err != nil {
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}

	that.logger.Info("game reset", "gameID", gameID, "mode", fresh.Mode, "generation", fresh.Generation)

	that.scheduleComputerTurn(fresh)

	return &fresh, nil
}

// EndGame drops the game and any computer move still waiting for it.
func (that *GameManager) EndGame(ctx context.Context, gameID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.cancelPending(gameID)

	if err := that.gameRepo.DeleteByID(ctx, gameID); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	that.logger.Info("game ended", "gameID", gameID)

	return nil
}

// scheduleComputerTurn must be called with the lock held.
func (that *GameManager) scheduleComputerTurn(game entity.Game) {
	if !game.IsComputerTurn() {
		return
	}

	that.cancelPending(game.ID)

	gameID, generation := game.ID, game.Generation
	cancel := that.scheduler.AfterDelay(that.opts.ComputerDelay, func() {
		that.playComputerTurn(gameID, generation)
	})

	that.pending[gameID] = pendingTurn{generation: generation, cancel: cancel}
}

func (that *GameManager) playComputerTurn(gameID string, generation uint64) {
	log := that.logger.With("method", "playComputerTurn", "gameID", gameID, "generation", generation)

	that.mu.Lock()
	defer that.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), computerTurnTimeout)
	defer cancel()

	if turn, ok := that.pending[gameID]; ok && turn.generation == generation {
		delete(that.pending, gameID)
	}

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if errors.Is(err, apperror.ErrGameNotFound) {
		log.Debug("game ended before the computer moved")
		return
	}

	if err != nil {
		log.Error("failed to load game", "error", err)
		return
	}

	if game.Generation != generation {
		log.Debug("dropping computer move planned for a previous game", "current", game.Generation)
		return
	}

	if !game.IsComputerTurn() {
		return
	}

	next, err := that.bot.MakeTurn(*game)
	if errors.Is(err, apperror.ErrNoLegalMove) {
		that.invariantViolated(log, err)
		return
	}

	if err != nil {
		log.Error("computer failed to move", "error", err)
		return
	}

	if err = that.saveAndNotify(ctx, &next); err != nil {
		log.Error("failed to update game", "error", err)
		return
	}

	log.Debug("computer moved", "board", next.Board.String())

	if next.IsFinished() {
		log.Info("game finished", "result", next.Result, "winner", next.Winner)
	}
}

func (that *GameManager) invariantViolated(log *slog.Logger, err error) {
	if that.opts.StrictInvariants {
		panic(fmt.Errorf("computer asked to move without a legal move: %w", err))
	}

	log.Error("computer asked to move without a legal move", "error", err)
}

func (that *GameManager) cancelPending(gameID string) {
	turn, ok := that.pending[gameID]
	if !ok {
		return
	}

	turn.cancel()
	delete(that.pending, gameID)
}

func (that *GameManager) saveAndNotify(ctx context.Context, game *entity.Game) error {
	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return err
	}

	for _, notifier := range that.notifiers {
		notifier.Notify(ctx, game)
	}

	return nil
}

// computerMarkFor defaults the computer to O and clears it for two player games.
func computerMarkFor(mode entity.Mode, computerMark entity.Mark) (entity.Mark, error) {
	switch mode {
	case entity.ModeTwoPlayer:
		return entity.EmptyCell, nil
	case entity.ModeVsComputer:
		if computerMark == entity.EmptyCell {
			return entity.PlayerO, nil
		}
		if !computerMark.IsPlayer() {
			return entity.EmptyCell, fmt.Errorf("%w: %q", apperror.ErrInvalidMark, computerMark)
		}
		return computerMark, nil
	default:
		return entity.EmptyCell, fmt.Errorf("%w: %q", apperror.ErrUnknownMode, mode)
	}
}
