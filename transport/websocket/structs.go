package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound actions.
const (
	actionConnect       = "connect"
	actionBoardNew      = "board:new"
	actionBoardGet      = "board:get"
	actionSquareRequest = "square:request"
	actionAdminSquare   = "admin:set_square"
	actionAdminGlobal   = "admin:set_global"
	actionApprove       = "admin:approve"
	actionDeny          = "admin:deny"
	actionApproveAll    = "admin:approve_all"
	actionApprovalsList = "approvals:list"
	actionModeGet       = "mode:get"
	actionModeSet       = "mode:set"
	actionPlayersList   = "players:list"
	actionSquaresList   = "squares:list"
)

// Outbound events.
const (
	eventBoardAssigned      = "board:assigned"
	eventBoardExisting      = "board:existing"
	eventSquareUpdated      = "square:updated"
	eventGlobalUpdated      = "global:square_updated"
	eventApprovalSubmitted  = "approval:submitted"
	eventApprovalAuto       = "approval:auto_approved"
	eventApprovalApproved   = "approval:approved"
	eventApprovalDenied     = "approval:denied"
	eventApprovalExpired    = "approval:expired"
	eventBatchProcessed     = "approval:batch_processed"
	eventBingoAchieved      = "bingo:achieved"
	eventModeChanged        = "mode:changed"
	eventPlayerConnected    = "player:connected"
	eventPlayerDisconnected = "player:disconnected"
	eventError              = "error"
)

// Error codes carried by the error event.
const (
	codeNotFound     = "not_found"
	codeInvalidState = "invalid_state"
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
)

type ConnectPayload struct {
	Player struct {
		ID string `json:"id"`
	} `json:"player"`
	AdminToken string `json:"admin_token,omitempty"`
}

type SquareRequestPayload struct {
	SquareID string `json:"square_id"`
	Checked  bool   `json:"checked"`
}

type AdminSquarePayload struct {
	ClientID string `json:"client_id"`
	SquareID string `json:"square_id"`
	Checked  bool   `json:"checked"`
}

type BoardGetPayload struct {
	ClientID string `json:"client_id"`
}

type DecisionPayload struct {
	RequestID string `json:"request_id"`
	Reason    string `json:"reason,omitempty"`
}

type ModePayload struct {
	Live bool `json:"live"`
}

type PlayerPayload struct {
	ID     string `json:"id"`
	Admin  bool   `json:"admin,omitempty"`
	Online bool   `json:"online,omitempty"`
}

type ConnectResponse struct {
	Player        PlayerPayload `json:"player"`
	Live          bool          `json:"live"`
	GlobalChecked []string      `json:"global_checked"`
}

type BoardPayload struct {
	Board *entity.Board `json:"board"`
	Bingo bool          `json:"bingo,omitempty"`
}

type SquareUpdatedPayload struct {
	PlayerID string        `json:"player_id"`
	SquareID string        `json:"square_id"`
	Checked  bool          `json:"checked"`
	Board    *entity.Board `json:"board,omitempty"`
	Bingo    bool          `json:"bingo,omitempty"`
}

type GlobalUpdatedPayload struct {
	SquareID string `json:"square_id"`
	Checked  bool   `json:"checked"`
}

type ApprovalPayload struct {
	Request *entity.ApprovalRequest `json:"request"`
}

type ApprovalSubmittedPayload struct {
	Request        *entity.ApprovalRequest `json:"request"`
	AlreadyPending int                     `json:"already_pending,omitempty"`
}

type AutoApprovedPayload struct {
	SquareID string `json:"square_id"`
	Checked  bool   `json:"checked"`
}

// PendingGroupPayload collapses pending requests asking for the same flip
// into one admin-visible item.
type PendingGroupPayload struct {
	SquareID string                    `json:"square_id"`
	Checked  bool                      `json:"checked"`
	Requests []*entity.ApprovalRequest `json:"requests"`
}

type PendingListPayload struct {
	Count  int                    `json:"count"`
	Groups []*PendingGroupPayload `json:"groups"`
}

type BatchGroupPayload struct {
	SquareID string `json:"square_id"`
	Checked  bool   `json:"checked"`
	Count    int    `json:"count"`
}

type BatchProcessedPayload struct {
	Count  int                  `json:"count"`
	Groups []*BatchGroupPayload `json:"groups"`
}

type BingoPayload struct {
	PlayerID string `json:"player_id"`
}

type PlayersPayload struct {
	Players []PlayerPayload `json:"players"`
}

type SquaresPayload struct {
	Squares []entity.Square `json:"squares"`
}

type PresencePayload struct {
	ConnectionID string `json:"connection_id"`
	PlayerID     string `json:"player_id,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
