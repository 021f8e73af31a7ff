package layout

import (
	"fmt"
	"math/rand"

	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
)

const (
	columnHeight   = 15
	columnsPerCard = entity.BoardSize
)

// columns are the classic bingo letters; column N draws from 1-15 under "B",
// 16-30 under "I" and so on.
var columns = [columnsPerCard]string{"B", "I", "N", "G", "O"}

// Generator produces random card layouts from the fixed square catalogue.
type Generator struct {
	catalogue []entity.Square
	byID      map[string]entity.Square
}

func NewGenerator() *Generator {
	catalogue := make([]entity.Square, 0, columnsPerCard*columnHeight)
	byID := make(map[string]entity.Square, columnsPerCard*columnHeight)

	for col, letter := range columns {
		for n := 1; n <= columnHeight; n++ {
			number := col*columnHeight + n
			square := entity.Square{
				ID:    fmt.Sprintf("%s%d", letter, number),
				Label: fmt.Sprintf("%s-%d", letter, number),
			}
			catalogue = append(catalogue, square)
			byID[square.ID] = square
		}
	}

	return &Generator{
		catalogue: catalogue,
		byID:      byID,
	}
}

// Catalogue returns every square the game recognizes, in column order.
func (that *Generator) Catalogue() []entity.Square {
	out := make([]entity.Square, len(that.catalogue))
	copy(out, that.catalogue)

	return out
}

// IsKnownSquare validates a square id against the static catalogue.
func (that *Generator) IsKnownSquare(squareID string) bool {
	_, ok := that.byID[squareID]
	return ok
}

// NewBoard draws a fresh random card for the given owner: five squares per
// column, each column drawn from its own range of the catalogue. The layout
// slice is stored row-major so win patterns can index it directly.
func (that *Generator) NewBoard(ownerID string) *entity.Board {
	picks := make([][]entity.Square, columnsPerCard)

	for col := range columns {
		columnSquares := make([]entity.Square, columnHeight)
		copy(columnSquares, that.catalogue[col*columnHeight:(col+1)*columnHeight])

		rand.Shuffle(len(columnSquares), func(i, j int) {
			columnSquares[i], columnSquares[j] = columnSquares[j], columnSquares[i]
		})

		picks[col] = columnSquares[:entity.BoardSize]
	}

	cells := make([]entity.Square, 0, entity.BoardSquares)
	for row := 0; row < entity.BoardSize; row++ {
		for col := 0; col < columnsPerCard; col++ {
			cells = append(cells, picks[col][row])
		}
	}

	return entity.NewBoard(ownerID, cells)
}
