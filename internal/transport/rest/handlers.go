package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-minimax/internal/entity"
)

type gameUseCase interface {
	NewGame(ctx context.Context, mode entity.Mode, computerMark entity.Mark) (*entity.Game, error)
	GetGame(ctx context.Context, gameID string) (*entity.Game, error)
	MakeTurn(ctx context.Context, gameID string, cell int) (*entity.Game, error)
	Reset(ctx context.Context, gameID string, mode entity.Mode, computerMark entity.Mark) (*entity.Game, error)
	EndGame(ctx context.Context, gameID string) error
}

type gameRequest struct {
	Mode         string `json:"mode"`
	ComputerMark string `json:"computer_mark"`
}

type turnRequest struct {
	Cell *int `json:"cell"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	logger *slog.Logger
	games  gameUseCase
}

// NewRouter wires the game API.
func NewRouter(logger *slog.Logger, games gameUseCase) http.Handler {
	h := &handlers{
		logger: logger.With("component", "rest"),
		games:  games,
	}

	r := chi.NewRouter()
	r.Get("/ping", h.ping)
	r.Post("/games", h.createGame)
	r.Route("/games/{id}", func(r chi.Router) {
		r.Get("/", h.getGame)
		r.Delete("/", h.endGame)
		r.Post("/turns", h.makeTurn)
		r.Post("/reset", h.resetGame)
	})

	return r
}

func (that *handlers) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Error("failed to write pong", "error", err)
	}
}

func (that *handlers) createGame(w http.ResponseWriter, r *http.Request) {
	var req gameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, computerMark, err := parseGameRequest(req, false)
	if err != nil {
		that.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	game, err := that.games.NewGame(r.Context(), mode, computerMark)
	if err != nil {
		that.writeUseCaseError(w, "createGame", err)
		return
	}

	that.writeJSON(w, http.StatusCreated, game)
}

func (that *handlers) getGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.games.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeUseCaseError(w, "getGame", err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

// makeTurn answers a rejected move with the unchanged game.
func (that *handlers) makeTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cell == nil {
		that.writeError(w, http.StatusBadRequest, "cell is required")
		return
	}

	game, err := that.games.MakeTurn(r.Context(), chi.URLParam(r, "id"), *req.Cell)
	if err != nil && !apperror.IsRejectedMove(err) {
		that.writeUseCaseError(w, "makeTurn", err)
		return
	}

	if err != nil {
		that.logger.Debug("move rejected", "cell", *req.Cell, "error", err)
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *handlers) resetGame(w http.ResponseWriter, r *http.Request) {
	// the body is optional, an empty one keeps the current mode
	var req gameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		that.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, computerMark, err := parseGameRequest(req, true)
	if err != nil {
		that.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	game, err := that.games.Reset(r.Context(), chi.URLParam(r, "id"), mode, computerMark)
	if err != nil {
		that.writeUseCaseError(w, "resetGame", err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *handlers) endGame(w http.ResponseWriter, r *http.Request) {
	if err := that.games.EndGame(r.Context(), chi.URLParam(r, "id")); err != nil {
		that.writeUseCaseError(w, "endGame", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseGameRequest validates mode and mark. With keepMode an empty mode is allowed.
func parseGameRequest(req gameRequest, keepMode bool) (entity.Mode, entity.Mark, error) {
	var (
		mode         entity.Mode
		computerMark entity.Mark
		err          error
	)

	if req.Mode != "" || !keepMode {
		if mode, err = entity.ParseMode(req.Mode); err != nil {
			return "", entity.EmptyCell, err
		}
	}

	if req.ComputerMark != "" {
		if computerMark, err = entity.ParseMark(req.ComputerMark); err != nil {
			return "", entity.EmptyCell, err
		}
	}

	return mode, computerMark, nil
}

func (that *handlers) writeUseCaseError(w http.ResponseWriter, method string, err error) {
	switch {
	case errors.Is(err, apperror.ErrGameNotFound):
		that.writeError(w, http.StatusNotFound, apperror.ErrGameNotFound.Error())
	case errors.Is(err, apperror.ErrUnknownMode), errors.Is(err, apperror.ErrInvalidMark):
		that.writeError(w, http.StatusBadRequest, err.Error())
	default:
		that.logger.Error("request failed", "method", method, "error", err)
		that.writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func (that *handlers) writeError(w http.ResponseWriter, status int, message string) {
	that.writeJSON(w, status, errorResponse{Error: message})
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
