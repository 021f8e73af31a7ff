package websocket

import (
	"errors"

	"github.com/rocketscienceinc/bingoparty-backend/internal/apperror"
)

// Fan-out policy: state is committed before any of these run, every delivery
// leg is independent and best-effort, and a missing connection suppresses that
// one leg only.

// sendAll delivers an event to every live connection.
func (that *Server) sendAll(event string, payload any) {
	for _, sender := range that.registry.Senders() {
		sender.Send(event, payload)
	}
}

// sendExcept delivers an event to every live connection but the origin.
func (that *Server) sendExcept(originConnID, event string, payload any) {
	for connID, sender := range that.registry.Senders() {
		if connID == originConnID {
			continue
		}

		sender.Send(event, payload)
	}
}

// notifyIdentity delivers an event to the connection currently bound to an
// identity. An offline player is a soft miss, never an error.
func (that *Server) notifyIdentity(identityToken, event string, payload any) {
	connID, ok := that.registry.ConnectionByIdentity(identityToken)
	if !ok {
		return
	}

	if sender, ok := that.registry.SenderFor(connID); ok {
		sender.Send(event, payload)
	}
}

func (that *Server) sendError(client *Client, code, message string) {
	client.Send(eventError, ErrorPayload{Code: code, Message: message})
}

// sendAppError maps engine errors onto the wire taxonomy.
func (that *Server) sendAppError(client *Client, err error) {
	switch {
	case errors.Is(err, apperror.ErrBoardNotFound),
		errors.Is(err, apperror.ErrPlayerNotFound),
		errors.Is(err, apperror.ErrSquareNotFound),
		errors.Is(err, apperror.ErrRequestNotFound):
		that.sendError(client, codeNotFound, err.Error())
	case errors.Is(err, apperror.ErrRequestNotPending):
		that.sendError(client, codeInvalidState, err.Error())
	case errors.Is(err, apperror.ErrNotAdmin):
		that.sendError(client, codeUnauthorized, err.Error())
	default:
		that.sendError(client, codeBadRequest, "internal error")
	}
}
