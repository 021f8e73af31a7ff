package bingo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
)

func testBoard(t *testing.T) *entity.Board {
	t.Helper()

	layout := make([]entity.Square, 0, entity.BoardSquares)
	for i := 0; i < entity.BoardSquares; i++ {
		layout = append(layout, entity.Square{
			ID:    fmt.Sprintf("s%d", i),
			Label: fmt.Sprintf("Square %d", i),
		})
	}

	return entity.NewBoard("player-1", layout)
}

func checkPattern(board *entity.Board, pattern [5]int) {
	for _, idx := range pattern {
		board.SetChecked(board.Layout[idx].ID, true)
	}
}

func TestHasBingo(t *testing.T) {
	t.Run("empty board has no bingo", func(t *testing.T) {
		// Given: a fresh board with nothing checked
		board := testBoard(t)

		// Then: no winning line exists
		require.False(t, HasBingo(board))
	})

	t.Run("every win pattern completes a bingo", func(t *testing.T) {
		for i, pattern := range WinPatterns {
			t.Run(fmt.Sprintf("pattern_%d", i), func(t *testing.T) {
				// Given: a board with exactly one full line checked
				board := testBoard(t)
				checkPattern(board, pattern)

				// Then: the board has bingo
				assert.True(t, HasBingo(board))
			})
		}
	})

	t.Run("proper subset of a line is not a bingo", func(t *testing.T) {
		for i, pattern := range WinPatterns {
			t.Run(fmt.Sprintf("pattern_%d", i), func(t *testing.T) {
				// Given: a board with four of a line's five squares checked
				board := testBoard(t)
				checkPattern(board, pattern)
				board.SetChecked(board.Layout[pattern[2]].ID, false)

				// Then: the board has no bingo
				assert.False(t, HasBingo(board))
			})
		}
	})

	t.Run("scattered squares off any line are not a bingo", func(t *testing.T) {
		// Given: checked squares that never complete a row, column or diagonal
		board := testBoard(t)
		for _, idx := range []int{1, 5, 7, 13, 19, 21} {
			board.SetChecked(board.Layout[idx].ID, true)
		}

		// Then: the board has no bingo
		require.False(t, HasBingo(board))
	})

	t.Run("board with a short layout never wins", func(t *testing.T) {
		// Given: a malformed board missing cells
		board := entity.NewBoard("player-1", []entity.Square{{ID: "s0"}})
		board.SetChecked("s0", true)

		// Then: evaluation refuses the board
		require.False(t, HasBingo(board))
	})
}
