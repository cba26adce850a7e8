package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/scheduler"
	"github.com/stretchr/testify/mock"
)

type mockNotifier struct {
	mock.Mock
}

func (that *mockNotifier) Notify(ctx context.Context, game *entity.Game) {
	that.Called(ctx, *game)
}

// states returns the games passed to Notify, in order.
func (that *mockNotifier) states() []entity.Game {
	games := make([]entity.Game, 0, len(that.Calls))
	for _, call := range that.Calls {
		games = append(games, call.Arguments.Get(1).(entity.Game))
	}
	return games
}

type mockGameRepo struct {
	mock.Mock
}

func (that *mockGameRepo) CreateOrUpdate(ctx context.Context, game *entity.Game) error {
	return that.Called(ctx, game).Error(0)
}

func (that *mockGameRepo) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	args := that.Called(ctx, id)
	game, _ := args.Get(0).(*entity.Game)
	return game, args.Error(1)
}

func (that *mockGameRepo) DeleteByID(ctx context.Context, id string) error {
	return that.Called(ctx, id).Error(0)
}

type manualTask struct {
	delay     time.Duration
	run       func()
	done      bool
	cancelled bool
}

// manualScheduler runs tasks only when the test asks it to.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask

	// ignoreCancel simulates a task that already left the timer queue.
	ignoreCancel bool
}

func (that *manualScheduler) AfterDelay(delay time.Duration, run func()) scheduler.CancelFunc {
	that.mu.Lock()
	defer that.mu.Unlock()

	task := &manualTask{delay: delay, run: run}
	that.tasks = append(that.tasks, task)

	return func() bool {
		that.mu.Lock()
		defer that.mu.Unlock()

		if that.ignoreCancel || task.done || task.cancelled {
			return false
		}
		task.cancelled = true
		return true
	}
}

// runPending runs every waiting task and returns how many ran.
func (that *manualScheduler) runPending() int {
	that.mu.Lock()
	var ready []*manualTask
	for _, task := range that.tasks {
		if !task.done && !task.cancelled {
			task.done = true
			ready = append(ready, task)
		}
	}
	that.mu.Unlock()

	for _, task := range ready {
		task.run()
	}

	return len(ready)
}

func (that *manualScheduler) waiting() []*manualTask {
	that.mu.Lock()
	defer that.mu.Unlock()

	var waiting []*manualTask
	for _, task := range that.tasks {
		if !task.done && !task.cancelled {
			waiting = append(waiting, task)
		}
	}
	return waiting
}
