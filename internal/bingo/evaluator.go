package bingo

import "github.com/rocketscienceinc/bingoparty-backend/internal/entity"

// WinPatterns lists every winning line on a 5x5 card as layout indexes:
// five rows, five columns and both diagonals.
var WinPatterns = [][5]int{
	{0, 1, 2, 3, 4},
	{5, 6, 7, 8, 9},
	{10, 11, 12, 13, 14},
	{15, 16, 17, 18, 19},
	{20, 21, 22, 23, 24},
	{0, 5, 10, 15, 20},
	{1, 6, 11, 16, 21},
	{2, 7, 12, 17, 22},
	{3, 8, 13, 18, 23},
	{4, 9, 14, 19, 24},
	{0, 6, 12, 18, 24},
	{4, 8, 12, 16, 20},
}

// HasBingo reports whether the board's checked set covers a full row, column
// or diagonal. Pure function; safe to call concurrently for different boards.
func HasBingo(board *entity.Board) bool {
	if len(board.Layout) != entity.BoardSquares {
		return false
	}

	for _, pattern := range WinPatterns {
		if lineComplete(board, pattern) {
			return true
		}
	}

	return false
}

func lineComplete(board *entity.Board, pattern [5]int) bool {
	for _, idx := range pattern {
		if !board.IsChecked(board.Layout[idx].ID) {
			return false
		}
	}

	return true
}
