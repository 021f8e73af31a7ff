package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rocketscienceinc/bingoparty-backend/internal/apperror"
	"github.com/rocketscienceinc/bingoparty-backend/internal/bingo"
	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
	"github.com/rocketscienceinc/bingoparty-backend/internal/repository"
)

type boardRepo interface {
	CreateOrUpdate(ctx context.Context, board *entity.Board) error
	GetByOwnerID(ctx context.Context, ownerID string) (*entity.Board, error)

	SetGlobalChecked(ctx context.Context, squareID string, checked bool) error
	GlobalChecked(ctx context.Context) ([]string, error)
}

type requestRepo interface {
	CreateOrUpdate(ctx context.Context, request *entity.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*entity.ApprovalRequest, error)
	GetAll(ctx context.Context) ([]*entity.ApprovalRequest, error)
	DeleteByID(ctx context.Context, id string) error
}

type layoutGenerator interface {
	NewBoard(ownerID string) *entity.Board
	Catalogue() []entity.Square
	IsKnownSquare(squareID string) bool
}

// Engine coordinates board state, the global checked set and the approval
// pipeline. Board mutation is serialized per identity; the pending ledger,
// the global set and the mode flag share one pipeline mutex so decisions are
// linearizable per (square, state) key.
type Engine struct {
	logger    *slog.Logger
	boards    boardRepo
	requests  requestRepo
	generator layoutGenerator

	identityMu sync.Mutex
	identity   map[string]*sync.Mutex

	pipelineMu  sync.Mutex
	pending     map[string]*entity.ApprovalRequest
	global      map[string]bool
	live        bool
	approvalTTL time.Duration
}

func NewEngine(logger *slog.Logger, boards boardRepo, requests requestRepo, generator layoutGenerator, approvalTTL time.Duration, live bool) *Engine {
	return &Engine{
		logger:    logger.With("component", "engine"),
		boards:    boards,
		requests:  requests,
		generator: generator,

		identity: make(map[string]*sync.Mutex),

		pending:     make(map[string]*entity.ApprovalRequest),
		global:      make(map[string]bool),
		live:        live,
		approvalTTL: approvalTTL,
	}
}

// Restore loads the durable global set and pending ledger from storage.
// Called once during wiring, before any traffic is accepted.
func (that *Engine) Restore(ctx context.Context) error {
	squares, err := that.boards.GlobalChecked(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore global checked set: %w", err)
	}

	requests, err := that.requests.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore approval requests: %w", err)
	}

	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	for _, squareID := range squares {
		that.global[squareID] = true
	}

	for _, request := range requests {
		if request.IsPending() {
			that.pending[request.ID] = request
		}
	}

	that.logger.Info("restored engine state", "global_squares", len(squares), "pending_requests", len(that.pending))

	return nil
}

// lockIdentity serializes board mutation per player without blocking
// unrelated players.
func (that *Engine) lockIdentity(identityToken string) *sync.Mutex {
	that.identityMu.Lock()
	defer that.identityMu.Unlock()

	mu, ok := that.identity[identityToken]
	if !ok {
		mu = &sync.Mutex{}
		that.identity[identityToken] = mu
	}

	return mu
}

// SquareResult is the outcome of one board mutation: the updated board and
// whether it now holds a winning line.
type SquareResult struct {
	Board *entity.Board
	Bingo bool
}

// GetOrCreateBoard returns the player's existing board, or generates and
// stores a fresh layout for a first-time identity. The second return value
// reports whether a new board was created.
func (that *Engine) GetOrCreateBoard(ctx context.Context, identityToken string) (*entity.Board, bool, error) {
	mu := that.lockIdentity(identityToken)
	mu.Lock()
	defer mu.Unlock()

	board, err := that.boards.GetByOwnerID(ctx, identityToken)
	if err == nil {
		return board, false, nil
	}

	if !errors.Is(err, repository.ErrBoardNotFound) {
		return nil, false, fmt.Errorf("failed to get board: %w", err)
	}

	board = that.generator.NewBoard(identityToken)
	if err = that.boards.CreateOrUpdate(ctx, board); err != nil {
		return nil, false, fmt.Errorf("failed to store new board: %w", err)
	}

	that.logger.Info("created new board", "identity", identityToken)

	return board, true, nil
}

// GetBoard returns the player's board or apperror.ErrBoardNotFound.
func (that *Engine) GetBoard(ctx context.Context, identityToken string) (*entity.Board, error) {
	board, err := that.boards.GetByOwnerID(ctx, identityToken)
	if errors.Is(err, repository.ErrBoardNotFound) {
		return nil, apperror.ErrBoardNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get board: %w", err)
	}

	return board, nil
}

// SetSquare flips one square on the player's own board and reports the win
// status after the change.
func (that *Engine) SetSquare(ctx context.Context, identityToken, squareID string, checked bool) (*SquareResult, error) {
	mu := that.lockIdentity(identityToken)
	mu.Lock()
	defer mu.Unlock()

	return that.setSquareLocked(ctx, identityToken, squareID, checked)
}

func (that *Engine) setSquareLocked(ctx context.Context, identityToken, squareID string, checked bool) (*SquareResult, error) {
	board, err := that.boards.GetByOwnerID(ctx, identityToken)
	if errors.Is(err, repository.ErrBoardNotFound) {
		return nil, apperror.ErrBoardNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get board: %w", err)
	}

	if !board.HasSquare(squareID) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSquareNotFound, squareID)
	}

	board.SetChecked(squareID, checked)

	if err = that.boards.CreateOrUpdate(ctx, board); err != nil {
		return nil, fmt.Errorf("failed to update board: %w", err)
	}

	return &SquareResult{
		Board: board,
		Bingo: bingo.HasBingo(board),
	}, nil
}

// SetSquareGlobally marks a square checked or unchecked for everyone. The
// square is validated against the static catalogue, not any player's board.
// Individual boards are never touched here.
func (that *Engine) SetSquareGlobally(ctx context.Context, squareID string, checked bool) error {
	if !that.generator.IsKnownSquare(squareID) {
		return fmt.Errorf("%w: %s", apperror.ErrSquareNotFound, squareID)
	}

	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	return that.setGlobalLocked(ctx, squareID, checked)
}

func (that *Engine) setGlobalLocked(ctx context.Context, squareID string, checked bool) error {
	if checked {
		that.global[squareID] = true
	} else {
		delete(that.global, squareID)
	}

	if err := that.boards.SetGlobalChecked(ctx, squareID, checked); err != nil {
		return fmt.Errorf("failed to persist global square: %w", err)
	}

	return nil
}

// GloballyChecked returns a sorted snapshot of the global checked set.
func (that *Engine) GloballyChecked() []string {
	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	squares := make([]string, 0, len(that.global))
	for squareID := range that.global {
		squares = append(squares, squareID)
	}

	sort.Strings(squares)

	return squares
}

// Catalogue returns every recognized board square.
func (that *Engine) Catalogue() []entity.Square {
	return that.generator.Catalogue()
}
