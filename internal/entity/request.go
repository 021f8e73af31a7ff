package entity

import "time"

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDenied   = "denied"
	RequestExpired  = "expired"
)

// ApprovalRequest is one player's pending ask to flip one square to a
// requested state while live mode is active.
type ApprovalRequest struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	SquareID  string    `json:"square_id"`
	Checked   bool      `json:"checked"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RequestKey groups requests that ask for the same flip. Resolving one
// request resolves every pending request sharing its key.
type RequestKey struct {
	SquareID string
	Checked  bool
}

// Key returns the grouping key for this request.
func (that *ApprovalRequest) Key() RequestKey {
	return RequestKey{SquareID: that.SquareID, Checked: that.Checked}
}

// IsPending reports whether the request is still awaiting a decision.
func (that *ApprovalRequest) IsPending() bool {
	return that.Status == RequestPending
}
