package apperror

import "errors"

var (
	ErrBoardNotFound     = errors.New("board not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrSquareNotFound    = errors.New("square not found")
	ErrRequestNotFound   = errors.New("approval request not found")
	ErrRequestNotPending = errors.New("approval request is not pending")
	ErrNotAdmin          = errors.New("action requires admin rights")
)
