package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/bingoparty-backend/internal/apperror"
	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
	"github.com/rocketscienceinc/bingoparty-backend/internal/usecase"
)

var errIdentityNotBound = errors.New("connection has no bound identity")

// requireIdentity resolves the durable identity bound to the client.
func (that *Server) requireIdentity(client *Client) (string, error) {
	identityToken, ok := that.registry.IdentityByConnection(client.connID)
	if !ok {
		return "", fmt.Errorf("%w: %w", apperror.ErrPlayerNotFound, errIdentityNotBound)
	}

	return identityToken, nil
}

func (that *Server) requireAdmin(client *Client) error {
	if !that.registry.IsAdmin(client.connID) {
		return apperror.ErrNotAdmin
	}

	return nil
}

// handleConnect binds the connection to a durable identity, minting a fresh
// token for first-time clients. Reconnecting with the same token supersedes
// any previous connection for it.
func (that *Server) handleConnect(_ context.Context, client *Client, msg *Message) error {
	log := that.logger.With("method", "handleConnect", "conn_id", client.connID)

	var payload ConnectPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	identityToken := payload.Player.ID
	if identityToken == "" {
		identityToken = uuid.NewString()
		log.Info("registering new player", "player_id", identityToken)
	}

	admin := that.adminToken != "" && payload.AdminToken == that.adminToken

	that.registry.Bind(client.connID, identityToken, admin)

	client.Send(msg.Action, ConnectResponse{
		Player:        PlayerPayload{ID: identityToken, Admin: admin, Online: true},
		Live:          that.engine.IsLiveMode(),
		GlobalChecked: that.engine.GloballyChecked(),
	})

	log.Info("successfully connected player", "player_id", identityToken, "admin", admin)

	return nil
}

// handleNewBoard assigns the player a board: the stored one if the identity
// has played before, a fresh random layout otherwise.
func (that *Server) handleNewBoard(ctx context.Context, client *Client, _ *Message) error {
	identityToken, err := that.requireIdentity(client)
	if err != nil {
		return err
	}

	board, created, err := that.engine.GetOrCreateBoard(ctx, identityToken)
	if err != nil {
		return fmt.Errorf("failed to get or create board: %w", err)
	}

	event := eventBoardExisting
	if created {
		event = eventBoardAssigned
	}

	client.Send(event, BoardPayload{Board: board})

	return nil
}

// handleGetBoard looks up an existing board for a client-supplied id, which
// may be a durable identity token or a legacy raw connection id.
func (that *Server) handleGetBoard(ctx context.Context, client *Client, msg *Message) error {
	var payload BoardGetPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	clientID := payload.ClientID
	if clientID == "" {
		clientID = client.connID
	}

	ref := that.registry.Canonicalize(clientID)

	board, err := that.engine.GetBoard(ctx, ref.Identity)
	if err != nil {
		return fmt.Errorf("failed to get board: %w", err)
	}

	client.Send(eventBoardExisting, BoardPayload{Board: board})

	return nil
}

// handleSquareRequest arbitrates a player's own square flip through the
// approval pipeline.
func (that *Server) handleSquareRequest(ctx context.Context, client *Client, msg *Message) error {
	identityToken, err := that.requireIdentity(client)
	if err != nil {
		return err
	}

	var payload SquareRequestPayload
	if err = json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	result, err := that.engine.HandleSquareRequest(ctx, identityToken, payload.SquareID, payload.Checked)
	if err != nil {
		return fmt.Errorf("failed to handle square request: %w", err)
	}

	switch result.Outcome {
	case usecase.OutcomeApplied:
		client.Send(eventSquareUpdated, SquareUpdatedPayload{
			PlayerID: identityToken,
			SquareID: payload.SquareID,
			Checked:  payload.Checked,
			Board:    result.Square.Board,
			Bingo:    result.Square.Bingo,
		})

		if result.Square.Bingo {
			that.sendAll(eventBingoAchieved, BingoPayload{PlayerID: identityToken})
		}
	case usecase.OutcomeAutoApproved:
		// already satisfied by the global state; no ledger entry exists, so
		// nothing is announced to anyone else
		client.Send(eventApprovalAuto, AutoApprovedPayload{
			SquareID: payload.SquareID,
			Checked:  payload.Checked,
		})
	case usecase.OutcomePending:
		submitted := ApprovalSubmittedPayload{Request: result.Request, AlreadyPending: result.AlreadyPending}

		client.Send(eventApprovalSubmitted, submitted)
		that.sendExcept(client.connID, eventApprovalSubmitted, submitted)
	}

	return nil
}

// handleAdminSetSquare overrides one square on a specific player's board.
func (that *Server) handleAdminSetSquare(ctx context.Context, client *Client, msg *Message) error {
	if err := that.requireAdmin(client); err != nil {
		return err
	}

	var payload AdminSquarePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	ref := that.registry.Canonicalize(payload.ClientID)

	result, err := that.engine.SetSquare(ctx, ref.Identity, payload.SquareID, payload.Checked)
	if err != nil {
		return fmt.Errorf("failed to set square: %w", err)
	}

	update := SquareUpdatedPayload{
		PlayerID: ref.Identity,
		SquareID: payload.SquareID,
		Checked:  payload.Checked,
		Board:    result.Board,
		Bingo:    result.Bingo,
	}

	client.Send(eventSquareUpdated, update)
	that.notifyIdentity(ref.Identity, eventSquareUpdated, update)

	if result.Bingo {
		that.sendAll(eventBingoAchieved, BingoPayload{PlayerID: ref.Identity})
	}

	return nil
}

// handleAdminSetGlobal flips a square in the global checked set and tells
// everyone.
func (that *Server) handleAdminSetGlobal(ctx context.Context, client *Client, msg *Message) error {
	if err := that.requireAdmin(client); err != nil {
		return err
	}

	var payload SquareRequestPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := that.engine.SetSquareGlobally(ctx, payload.SquareID, payload.Checked); err != nil {
		return fmt.Errorf("failed to set square globally: %w", err)
	}

	that.sendAll(eventGlobalUpdated, GlobalUpdatedPayload{
		SquareID: payload.SquareID,
		Checked:  payload.Checked,
	})

	return nil
}

// handleApprove resolves one pending request and its whole related set.
func (that *Server) handleApprove(ctx context.Context, client *Client, msg *Message) error {
	if err := that.requireAdmin(client); err != nil {
		return err
	}

	var payload DecisionPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	decision, err := that.engine.Approve(ctx, payload.RequestID)
	if err != nil {
		return fmt.Errorf("failed to approve request: %w", err)
	}

	that.fanOutDecision(client, decision, eventApprovalApproved)

	if decision.Square != nil {
		that.notifyIdentity(decision.Primary.PlayerID, eventSquareUpdated, SquareUpdatedPayload{
			PlayerID: decision.Primary.PlayerID,
			SquareID: decision.Primary.SquareID,
			Checked:  decision.Primary.Checked,
			Board:    decision.Square.Board,
			Bingo:    decision.Square.Bingo,
		})

		if decision.Square.Bingo {
			that.sendAll(eventBingoAchieved, BingoPayload{PlayerID: decision.Primary.PlayerID})
		}
	}

	if decision.GlobalChanged {
		that.sendAll(eventGlobalUpdated, GlobalUpdatedPayload{
			SquareID: decision.Primary.SquareID,
			Checked:  decision.Primary.Checked,
		})
	}

	return nil
}

// handleDeny resolves one pending request and its related set without any
// board mutation.
func (that *Server) handleDeny(ctx context.Context, client *Client, msg *Message) error {
	if err := that.requireAdmin(client); err != nil {
		return err
	}

	var payload DecisionPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	decision, err := that.engine.Deny(ctx, payload.RequestID, payload.Reason)
	if err != nil {
		return fmt.Errorf("failed to deny request: %w", err)
	}

	that.fanOutDecision(client, decision, eventApprovalDenied)

	return nil
}

// fanOutDecision confirms a decision to the admin and notifies every owner in
// the resolved group exactly once.
func (that *Server) fanOutDecision(client *Client, decision *usecase.Decision, event string) {
	client.Send(event, ApprovalPayload{Request: decision.Primary})

	that.notifyIdentity(decision.Primary.PlayerID, event, ApprovalPayload{Request: decision.Primary})

	for _, request := range decision.Related {
		that.notifyIdentity(request.PlayerID, event, ApprovalPayload{Request: request})
	}
}

// handleApproveAll resolves the entire pending ledger grouped by intent.
func (that *Server) handleApproveAll(ctx context.Context, client *Client, _ *Message) error {
	if err := that.requireAdmin(client); err != nil {
		return err
	}

	groups, count, err := that.engine.ApproveAllPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to approve all pending: %w", err)
	}

	groupPayloads := make([]*BatchGroupPayload, 0, len(groups))

	for _, group := range groups {
		groupPayloads = append(groupPayloads, &BatchGroupPayload{
			SquareID: group.SquareID,
			Checked:  group.Checked,
			Count:    len(group.Requests),
		})

		for _, request := range group.Requests {
			that.notifyIdentity(request.PlayerID, eventApprovalApproved, ApprovalPayload{Request: request})
		}

		if group.GlobalChanged {
			that.sendAll(eventGlobalUpdated, GlobalUpdatedPayload{
				SquareID: group.SquareID,
				Checked:  group.Checked,
			})
		}
	}

	that.sendAll(eventBatchProcessed, BatchProcessedPayload{Count: count, Groups: groupPayloads})

	return nil
}

// handleListApprovals returns the pending ledger, sweeping stale entries
// first and telling their owners.
func (that *Server) handleListApprovals(ctx context.Context, client *Client, msg *Message) error {
	if err := that.requireAdmin(client); err != nil {
		return err
	}

	pending, expired := that.engine.ListPending(ctx)

	for _, request := range expired {
		that.notifyIdentity(request.PlayerID, eventApprovalExpired, ApprovalPayload{Request: request})
	}

	client.Send(msg.Action, PendingListPayload{Count: len(pending), Groups: groupPending(pending)})

	return nil
}

// groupPending collapses pending requests that ask for the same flip into one
// item per (square, state) pair, keeping the ledger's order of first
// appearance.
func groupPending(pending []*entity.ApprovalRequest) []*PendingGroupPayload {
	groups := make([]*PendingGroupPayload, 0, len(pending))
	byKey := make(map[entity.RequestKey]*PendingGroupPayload)

	for _, request := range pending {
		key := request.Key()

		group, ok := byKey[key]
		if !ok {
			group = &PendingGroupPayload{SquareID: request.SquareID, Checked: request.Checked}
			byKey[key] = group
			groups = append(groups, group)
		}

		group.Requests = append(group.Requests, request)
	}

	return groups
}

func (that *Server) handleGetMode(_ context.Context, client *Client, msg *Message) error {
	client.Send(msg.Action, ModePayload{Live: that.engine.IsLiveMode()})

	return nil
}

// handleSetMode switches moderation mode. Pending requests survive the
// toggle untouched.
func (that *Server) handleSetMode(_ context.Context, client *Client, msg *Message) error {
	if err := that.requireAdmin(client); err != nil {
		return err
	}

	var payload ModePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	that.engine.SetLiveMode(payload.Live)

	that.logger.Info("live mode changed", "live", payload.Live)

	that.sendAll(eventModeChanged, ModePayload{Live: payload.Live})

	return nil
}

func (that *Server) handleListPlayers(_ context.Context, client *Client, msg *Message) error {
	players := that.registry.Players()

	payloads := make([]PlayerPayload, 0, len(players))
	for _, player := range players {
		payloads = append(payloads, PlayerPayload{
			ID:     player.ID,
			Admin:  player.Admin,
			Online: player.IsOnline(),
		})
	}

	client.Send(msg.Action, PlayersPayload{Players: payloads})

	return nil
}

func (that *Server) handleListSquares(_ context.Context, client *Client, msg *Message) error {
	client.Send(msg.Action, SquaresPayload{Squares: that.engine.Catalogue()})

	return nil
}
