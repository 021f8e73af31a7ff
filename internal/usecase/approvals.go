package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/bingoparty-backend/internal/apperror"
	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
)

// RequestOutcome classifies what happened to a player's square-change request.
type RequestOutcome int

const (
	// OutcomeApplied - free-play mode, the change hit the board directly.
	OutcomeApplied RequestOutcome = iota
	// OutcomeAutoApproved - live mode, the global set already matched the
	// requested state; no ledger entry exists back this.
	OutcomeAutoApproved
	// OutcomePending - live mode, a new ledger entry awaits an admin.
	OutcomePending
)

// SquareRequestResult is the caller-visible result of HandleSquareRequest.
// Request is set only for OutcomePending; Square only for OutcomeApplied.
// AlreadyPending counts earlier pending requests sharing the new request's
// (square, state) key, so callers can collapse duplicates into one
// admin-visible item.
type SquareRequestResult struct {
	Outcome        RequestOutcome
	Request        *entity.ApprovalRequest
	Square         *SquareResult
	AlreadyPending int
}

// Decision is the result of resolving one approval request together with
// every pending request that shares its (square, state) key.
type Decision struct {
	Primary *entity.ApprovalRequest
	Related []*entity.ApprovalRequest

	// Square holds the primary owner's board mutation on approve, when the
	// square is part of their layout. Nil on deny.
	Square *SquareResult

	// GlobalChanged reports whether the decision moved the global checked
	// set, in which case exactly one global broadcast is due.
	GlobalChanged bool
}

// BatchGroup is one (square, state) intent resolved during approve-all.
type BatchGroup struct {
	SquareID      string
	Checked       bool
	Requests      []*entity.ApprovalRequest
	GlobalChanged bool
}

// IsLiveMode reports the current moderation mode.
func (that *Engine) IsLiveMode() bool {
	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	return that.live
}

// SetLiveMode switches between live approval and free-play. Existing pending
// requests are left untouched; only future submissions see the new mode.
func (that *Engine) SetLiveMode(live bool) {
	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	that.live = live
}

// HandleSquareRequest arbitrates a player's ask to flip a square. Free-play
// applies it directly. Live mode auto-approves asks that already match the
// global set, with no ledger entry, and queues everything else for an admin.
func (that *Engine) HandleSquareRequest(ctx context.Context, identityToken, squareID string, checked bool) (*SquareRequestResult, error) {
	if !that.generator.IsKnownSquare(squareID) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSquareNotFound, squareID)
	}

	that.pipelineMu.Lock()
	live := that.live
	that.pipelineMu.Unlock()

	if !live {
		square, err := that.SetSquare(ctx, identityToken, squareID, checked)
		if err != nil {
			return nil, err
		}

		return &SquareRequestResult{Outcome: OutcomeApplied, Square: square}, nil
	}

	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	if that.global[squareID] == checked {
		return &SquareRequestResult{Outcome: OutcomeAutoApproved}, nil
	}

	request := &entity.ApprovalRequest{
		ID:        uuid.NewString(),
		PlayerID:  identityToken,
		SquareID:  squareID,
		Checked:   checked,
		Status:    entity.RequestPending,
		CreatedAt: time.Now(),
	}

	alreadyPending := 0
	for _, other := range that.pending {
		if other.Key() == request.Key() {
			alreadyPending++
		}
	}

	that.pending[request.ID] = request

	if err := that.requests.CreateOrUpdate(ctx, request); err != nil {
		delete(that.pending, request.ID)
		return nil, fmt.Errorf("failed to store approval request: %w", err)
	}

	that.logger.Info("approval request queued", "request_id", request.ID, "identity", identityToken, "square", squareID, "checked", checked)

	return &SquareRequestResult{Outcome: OutcomePending, Request: request, AlreadyPending: alreadyPending}, nil
}

// Approve resolves a pending request and every related pending request in one
// decision: all transition to approved, the requested state is applied to the
// primary owner's board, and the global set takes the requested state so the
// remaining players converge via the global broadcast.
func (that *Engine) Approve(ctx context.Context, requestID string) (*Decision, error) {
	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	primary, ok := that.pending[requestID]
	if !ok {
		return nil, that.ledgerMissLocked(ctx, requestID)
	}

	related := that.resolveGroupLocked(ctx, primary, entity.RequestApproved, "")

	decision := &Decision{
		Primary: primary,
		Related: related,
	}

	if that.global[primary.SquareID] != primary.Checked {
		if err := that.setGlobalLocked(ctx, primary.SquareID, primary.Checked); err != nil {
			return nil, err
		}

		decision.GlobalChanged = true
	}

	ownerMu := that.lockIdentity(primary.PlayerID)
	ownerMu.Lock()
	square, err := that.setSquareLocked(ctx, primary.PlayerID, primary.SquareID, primary.Checked)
	ownerMu.Unlock()

	if err == nil {
		decision.Square = square
	} else {
		// the owner's board may lack the square or may be gone; the approval
		// itself stands and the global broadcast still goes out
		that.logger.Warn("approved request not applied to owner board", "request_id", primary.ID, "error", err)
	}

	that.logger.Info("approval request approved", "request_id", primary.ID, "related", len(related))

	return decision, nil
}

// Deny resolves a pending request and its related set without touching any
// board or the global set.
func (that *Engine) Deny(ctx context.Context, requestID, reason string) (*Decision, error) {
	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	primary, ok := that.pending[requestID]
	if !ok {
		return nil, that.ledgerMissLocked(ctx, requestID)
	}

	related := that.resolveGroupLocked(ctx, primary, entity.RequestDenied, reason)

	that.logger.Info("approval request denied", "request_id", primary.ID, "related", len(related))

	return &Decision{
		Primary: primary,
		Related: related,
	}, nil
}

// ApproveAllPending transitions every pending request to approved, grouped by
// (square, state) intent, and moves the global set once per group. Returns
// the groups for caller fan-out and the total number of requests resolved.
func (that *Engine) ApproveAllPending(ctx context.Context) ([]*BatchGroup, int, error) {
	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	grouped := make(map[entity.RequestKey]*BatchGroup)
	keys := make([]entity.RequestKey, 0)

	for _, request := range that.pending {
		key := request.Key()
		group, ok := grouped[key]
		if !ok {
			group = &BatchGroup{SquareID: key.SquareID, Checked: key.Checked}
			grouped[key] = group
			keys = append(keys, key)
		}

		group.Requests = append(group.Requests, request)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SquareID != keys[j].SquareID {
			return keys[i].SquareID < keys[j].SquareID
		}
		return !keys[i].Checked && keys[j].Checked
	})

	count := 0
	groups := make([]*BatchGroup, 0, len(keys))

	for _, key := range keys {
		group := grouped[key]

		for _, request := range group.Requests {
			request.Status = entity.RequestApproved
			delete(that.pending, request.ID)

			if err := that.requests.CreateOrUpdate(ctx, request); err != nil {
				that.logger.Error("failed to persist resolved request", "request_id", request.ID, "error", err)
			}
		}

		if that.global[key.SquareID] != key.Checked {
			if err := that.setGlobalLocked(ctx, key.SquareID, key.Checked); err != nil {
				return nil, count, err
			}

			group.GlobalChanged = true
		}

		count += len(group.Requests)
		groups = append(groups, group)
	}

	that.logger.Info("approved all pending requests", "count", count, "groups", len(groups))

	return groups, count, nil
}

// ListPending returns the pending ledger ordered by creation time, expiring
// stale entries first.
func (that *Engine) ListPending(ctx context.Context) ([]*entity.ApprovalRequest, []*entity.ApprovalRequest) {
	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	expired := that.expireStaleLocked(ctx)

	requests := make([]*entity.ApprovalRequest, 0, len(that.pending))
	for _, request := range that.pending {
		requests = append(requests, request)
	}

	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})

	return requests, expired
}

// ExpireStale sweeps pending requests older than the configured TTL. Shares
// the pipeline mutex with approve/deny, so a request being decided can never
// expire concurrently.
func (that *Engine) ExpireStale(ctx context.Context) []*entity.ApprovalRequest {
	that.pipelineMu.Lock()
	defer that.pipelineMu.Unlock()

	return that.expireStaleLocked(ctx)
}

func (that *Engine) expireStaleLocked(ctx context.Context) []*entity.ApprovalRequest {
	if that.approvalTTL <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-that.approvalTTL)
	expired := make([]*entity.ApprovalRequest, 0)

	for id, request := range that.pending {
		if request.CreatedAt.After(cutoff) {
			continue
		}

		request.Status = entity.RequestExpired
		delete(that.pending, id)
		expired = append(expired, request)

		if err := that.requests.DeleteByID(ctx, id); err != nil {
			that.logger.Error("failed to drop expired request from storage", "request_id", id, "error", err)
		}
	}

	if len(expired) > 0 {
		that.logger.Info("expired stale approval requests", "count", len(expired))
	}

	return expired
}

// ledgerMissLocked turns a pending-ledger miss into the right sentinel: a
// request that storage still remembers with a terminal status was decided
// earlier, anything else never existed.
func (that *Engine) ledgerMissLocked(ctx context.Context, requestID string) error {
	stored, err := that.requests.GetByID(ctx, requestID)
	if err == nil && !stored.IsPending() {
		return fmt.Errorf("%w: %s is %s", apperror.ErrRequestNotPending, requestID, stored.Status)
	}

	return fmt.Errorf("%w: %s", apperror.ErrRequestNotFound, requestID)
}

// resolveGroupLocked marks the primary request and every pending request
// sharing its key with the given terminal status and drops them from the
// ledger. The terminal record stays in storage so a repeated decision on the
// same id reports "already resolved" instead of "unknown". Returns the
// related requests, primary excluded.
func (that *Engine) resolveGroupLocked(ctx context.Context, primary *entity.ApprovalRequest, status, reason string) []*entity.ApprovalRequest {
	key := primary.Key()
	related := make([]*entity.ApprovalRequest, 0)

	for id, request := range that.pending {
		if request.Key() != key {
			continue
		}

		request.Status = status
		request.Reason = reason
		delete(that.pending, id)

		if err := that.requests.CreateOrUpdate(ctx, request); err != nil {
			that.logger.Error("failed to persist resolved request", "request_id", id, "error", err)
		}

		if request.ID != primary.ID {
			related = append(related, request)
		}
	}

	sort.Slice(related, func(i, j int) bool {
		return related[i].CreatedAt.Before(related[j].CreatedAt)
	})

	return related
}
