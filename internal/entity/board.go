package entity

const (
	// BoardSize is the side length of a bingo card.
	BoardSize = 5

	// BoardSquares is the number of squares on one card.
	BoardSquares = BoardSize * BoardSize
)

// Square is a static board square descriptor. The layout generator produces
// them once; they are never mutated afterwards.
type Square struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Board is one player's bingo card: a fixed layout of squares plus the
// player's own checked state, keyed by square id.
type Board struct {
	OwnerID string          `json:"owner_id"`
	Layout  []Square        `json:"layout"`
	Checked map[string]bool `json:"checked"`
}

// NewBoard builds an unchecked board for the given owner from a generated layout.
func NewBoard(ownerID string, layout []Square) *Board {
	return &Board{
		OwnerID: ownerID,
		Layout:  layout,
		Checked: make(map[string]bool, len(layout)),
	}
}

// HasSquare reports whether the square is part of this board's layout.
func (that *Board) HasSquare(squareID string) bool {
	for _, square := range that.Layout {
		if square.ID == squareID {
			return true
		}
	}

	return false
}

// SetChecked flips the player's own state for a square already validated
// against the layout.
func (that *Board) SetChecked(squareID string, checked bool) {
	if that.Checked == nil {
		that.Checked = make(map[string]bool, len(that.Layout))
	}

	if checked {
		that.Checked[squareID] = true
		return
	}

	delete(that.Checked, squareID)
}

// IsChecked reports the player's own state for a square.
func (that *Board) IsChecked(squareID string) bool {
	return that.Checked[squareID]
}
