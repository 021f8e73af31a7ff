package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/bingoparty-backend/internal/apperror"
	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
	"github.com/rocketscienceinc/bingoparty-backend/internal/repository"
)

type fakeBoardRepo struct {
	mu     sync.Mutex
	boards map[string]*entity.Board
	global map[string]bool
}

func newFakeBoardRepo() *fakeBoardRepo {
	return &fakeBoardRepo{
		boards: make(map[string]*entity.Board),
		global: make(map[string]bool),
	}
}

func (that *fakeBoardRepo) CreateOrUpdate(_ context.Context, board *entity.Board) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.boards[board.OwnerID] = board
	return nil
}

func (that *fakeBoardRepo) GetByOwnerID(_ context.Context, ownerID string) (*entity.Board, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	board, ok := that.boards[ownerID]
	if !ok {
		return nil, repository.ErrBoardNotFound
	}

	return board, nil
}

func (that *fakeBoardRepo) SetGlobalChecked(_ context.Context, squareID string, checked bool) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if checked {
		that.global[squareID] = true
	} else {
		delete(that.global, squareID)
	}

	return nil
}

func (that *fakeBoardRepo) GlobalChecked(_ context.Context) ([]string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	squares := make([]string, 0, len(that.global))
	for squareID := range that.global {
		squares = append(squares, squareID)
	}

	return squares, nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*entity.ApprovalRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[string]*entity.ApprovalRequest)}
}

func (that *fakeRequestRepo) CreateOrUpdate(_ context.Context, request *entity.ApprovalRequest) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.requests[request.ID] = request
	return nil
}

func (that *fakeRequestRepo) GetByID(_ context.Context, id string) (*entity.ApprovalRequest, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	request, ok := that.requests[id]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}

	return request, nil
}

func (that *fakeRequestRepo) GetAll(_ context.Context) ([]*entity.ApprovalRequest, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	requests := make([]*entity.ApprovalRequest, 0, len(that.requests))
	for _, request := range that.requests {
		requests = append(requests, request)
	}

	return requests, nil
}

func (that *fakeRequestRepo) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.requests, id)
	return nil
}

// fakeGenerator deals the same 25-square layout to everyone, which makes
// board assertions deterministic.
type fakeGenerator struct {
	catalogue []entity.Square
}

func newFakeGenerator() *fakeGenerator {
	catalogue := make([]entity.Square, 0, entity.BoardSquares)
	for i := 0; i < entity.BoardSquares; i++ {
		catalogue = append(catalogue, entity.Square{
			ID:    fmt.Sprintf("s%d", i),
			Label: fmt.Sprintf("Square %d", i),
		})
	}

	return &fakeGenerator{catalogue: catalogue}
}

func (that *fakeGenerator) NewBoard(ownerID string) *entity.Board {
	layout := make([]entity.Square, len(that.catalogue))
	copy(layout, that.catalogue)

	return entity.NewBoard(ownerID, layout)
}

func (that *fakeGenerator) Catalogue() []entity.Square {
	return that.catalogue
}

func (that *fakeGenerator) IsKnownSquare(squareID string) bool {
	for _, square := range that.catalogue {
		if square.ID == squareID {
			return true
		}
	}

	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, live bool) (*Engine, *fakeBoardRepo, *fakeRequestRepo) {
	t.Helper()

	boards := newFakeBoardRepo()
	requests := newFakeRequestRepo()
	engine := NewEngine(testLogger(), boards, requests, newFakeGenerator(), 10*time.Minute, live)

	return engine, boards, requests
}

func TestEngine_GetOrCreateBoard(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a board for a new identity", func(t *testing.T) {
		// Given: an engine with no boards
		engine, _, _ := newTestEngine(t, false)

		// When: a first-time identity asks for a board
		board, created, err := engine.GetOrCreateBoard(ctx, "alice")

		// Then: a fresh board is generated and stored
		require.NoError(t, err)
		require.True(t, created)
		require.NotNil(t, board)
		assert.Equal(t, "alice", board.OwnerID)
		assert.Len(t, board.Layout, entity.BoardSquares)
	})

	t.Run("repeated calls return the same board", func(t *testing.T) {
		// Given: an identity with a board
		engine, _, _ := newTestEngine(t, false)
		first, created, err := engine.GetOrCreateBoard(ctx, "alice")
		require.NoError(t, err)
		require.True(t, created)

		first.SetChecked("s3", true)
		_, err = engine.SetSquare(ctx, "alice", "s3", true)
		require.NoError(t, err)

		// When: the board is requested again
		second, created, err := engine.GetOrCreateBoard(ctx, "alice")

		// Then: the existing board comes back, state intact
		require.NoError(t, err)
		require.False(t, created)
		assert.Equal(t, first.OwnerID, second.OwnerID)
		assert.True(t, second.IsChecked("s3"))
	})
}

func TestEngine_SetSquare(t *testing.T) {
	ctx := context.Background()

	t.Run("flips a square on an existing board", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, false)
		_, _, err := engine.GetOrCreateBoard(ctx, "alice")
		require.NoError(t, err)

		// When: a square is checked
		result, err := engine.SetSquare(ctx, "alice", "s0", true)

		// Then: the board reflects it and there is no bingo yet
		require.NoError(t, err)
		assert.True(t, result.Board.IsChecked("s0"))
		assert.False(t, result.Bingo)
	})

	t.Run("reports bingo when a line completes", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, false)
		_, _, err := engine.GetOrCreateBoard(ctx, "alice")
		require.NoError(t, err)

		// When: the whole first row is checked
		var result *SquareResult
		for _, squareID := range []string{"s0", "s1", "s2", "s3", "s4"} {
			result, err = engine.SetSquare(ctx, "alice", squareID, true)
			require.NoError(t, err)
		}

		// Then: the last flip wins
		assert.True(t, result.Bingo)
	})

	t.Run("fails for an identity without a board", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, false)

		_, err := engine.SetSquare(ctx, "ghost", "s0", true)

		require.ErrorIs(t, err, apperror.ErrBoardNotFound)
	})

	t.Run("fails for a square outside the board layout", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, false)
		_, _, err := engine.GetOrCreateBoard(ctx, "alice")
		require.NoError(t, err)

		_, err = engine.SetSquare(ctx, "alice", "nope", true)

		require.ErrorIs(t, err, apperror.ErrSquareNotFound)
	})
}

func TestEngine_SetSquareGlobally(t *testing.T) {
	ctx := context.Background()

	t.Run("tracks the global checked set", func(t *testing.T) {
		engine, boards, _ := newTestEngine(t, false)

		// When: a square is called globally
		require.NoError(t, engine.SetSquareGlobally(ctx, "s7", true))

		// Then: the snapshot and storage both hold it
		assert.Equal(t, []string{"s7"}, engine.GloballyChecked())
		assert.True(t, boards.global["s7"])

		// When: it is uncalled again
		require.NoError(t, engine.SetSquareGlobally(ctx, "s7", false))

		// Then: it is gone
		assert.Empty(t, engine.GloballyChecked())
	})

	t.Run("rejects squares outside the catalogue", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, false)

		err := engine.SetSquareGlobally(ctx, "bogus", true)

		require.ErrorIs(t, err, apperror.ErrSquareNotFound)
	})

	t.Run("does not touch any player's board", func(t *testing.T) {
		// Given: a player with a board
		engine, _, _ := newTestEngine(t, false)
		_, _, err := engine.GetOrCreateBoard(ctx, "alice")
		require.NoError(t, err)

		// When: a square on their card is called globally
		require.NoError(t, engine.SetSquareGlobally(ctx, "s0", true))

		// Then: the player's own state is unchanged
		board, err := engine.GetBoard(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, board.IsChecked("s0"))
	})
}

func TestEngine_Restore(t *testing.T) {
	ctx := context.Background()

	// Given: storage holding a global square and a pending request
	boards := newFakeBoardRepo()
	boards.global["s5"] = true

	requests := newFakeRequestRepo()
	requests.requests["r1"] = &entity.ApprovalRequest{
		ID: "r1", PlayerID: "alice", SquareID: "s1", Checked: true,
		Status: entity.RequestPending, CreatedAt: time.Now(),
	}

	engine := NewEngine(testLogger(), boards, requests, newFakeGenerator(), 10*time.Minute, true)

	// When: the engine restores
	require.NoError(t, engine.Restore(ctx))

	// Then: both the global set and the ledger are back
	assert.Equal(t, []string{"s5"}, engine.GloballyChecked())

	pending, _ := engine.ListPending(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, "r1", pending[0].ID)
}
