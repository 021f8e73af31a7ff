package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/bingoparty-backend/internal/entity"
	"github.com/rocketscienceinc/bingoparty-backend/internal/registry"
	"github.com/rocketscienceinc/bingoparty-backend/internal/usecase"
)

type engine interface {
	GetOrCreateBoard(ctx context.Context, identityToken string) (*entity.Board, bool, error)
	GetBoard(ctx context.Context, identityToken string) (*entity.Board, error)
	SetSquare(ctx context.Context, identityToken, squareID string, checked bool) (*usecase.SquareResult, error)
	SetSquareGlobally(ctx context.Context, squareID string, checked bool) error

	HandleSquareRequest(ctx context.Context, identityToken, squareID string, checked bool) (*usecase.SquareRequestResult, error)
	Approve(ctx context.Context, requestID string) (*usecase.Decision, error)
	Deny(ctx context.Context, requestID, reason string) (*usecase.Decision, error)
	ApproveAllPending(ctx context.Context) ([]*usecase.BatchGroup, int, error)
	ListPending(ctx context.Context) ([]*entity.ApprovalRequest, []*entity.ApprovalRequest)

	IsLiveMode() bool
	SetLiveMode(live bool)
	GloballyChecked() []string
	Catalogue() []entity.Square
}

type Server struct {
	logger     *slog.Logger
	engine     engine
	registry   *registry.Registry
	adminToken string

	upgrader websocket.Upgrader
	handlers map[string]func(ctx context.Context, client *Client, message *Message) error
}

func New(logger *slog.Logger, eng engine, reg *registry.Registry, adminToken string) *Server {
	server := &Server{
		logger:     logger.With("component", "websocket"),
		engine:     eng,
		registry:   reg,
		adminToken: adminToken,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},

		handlers: make(map[string]func(context.Context, *Client, *Message) error),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionBoardNew] = server.handleNewBoard
	server.handlers[actionBoardGet] = server.handleGetBoard
	server.handlers[actionSquareRequest] = server.handleSquareRequest
	server.handlers[actionAdminSquare] = server.handleAdminSetSquare
	server.handlers[actionAdminGlobal] = server.handleAdminSetGlobal
	server.handlers[actionApprove] = server.handleApprove
	server.handlers[actionDeny] = server.handleDeny
	server.handlers[actionApproveAll] = server.handleApproveAll
	server.handlers[actionApprovalsList] = server.handleListApprovals
	server.handlers[actionModeGet] = server.handleGetMode
	server.handlers[actionModeSet] = server.handleSetMode
	server.handlers[actionPlayersList] = server.handleListPlayers
	server.handlers[actionSquaresList] = server.handleListSquares

	return server
}

// Start - starts the WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveConnection upgrades the request and runs the read loop until the
// client goes away.
func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(conn, that.logger)
	client.connID = that.registry.Register(client)

	go client.writePump()

	log.Info("connection established", "conn_id", client.connID)

	that.sendAll(eventPlayerConnected, PresencePayload{ConnectionID: client.connID})

	that.readLoop(ctx, client)

	identityToken, _ := that.registry.IdentityByConnection(client.connID)
	that.registry.Unregister(client.connID)
	client.close()

	log.Info("connection closed", "conn_id", client.connID)

	that.sendExcept(client.connID, eventPlayerDisconnected, PresencePayload{
		ConnectionID: client.connID,
		PlayerID:     identityToken,
	})
}

// readLoop - processes messages from the client until disconnect.
func (that *Server) readLoop(ctx context.Context, client *Client) {
	log := that.logger.With("method", "readLoop", "conn_id", client.connID)

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, reqBody, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("unexpected close", "error", err)
			}
			return
		}

		that.registry.Touch(client.connID)

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			that.sendError(client, codeBadRequest, "malformed message")
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			that.sendError(client, codeBadRequest, "unknown action: "+message.Action)
			continue
		}

		if err = handler(ctx, client, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
			that.sendAppError(client, err)
		}
	}
}
