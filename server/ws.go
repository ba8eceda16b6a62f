package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"batchrpc/registry"
	"batchrpc/wire"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 10 * 1024 * 1024 // 10MB
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// WSHandler serves batch frames over WebSocket: one {seq, calls,
// body} frame per batch, answered with a {seq, items} frame.
type WSHandler struct {
	executor *Executor
	logger   zerolog.Logger
}

// NewWSHandler creates a WSHandler
func NewWSHandler(executor *Executor, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		executor: executor,
		logger:   logger.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessageSize)

	meta := &registry.CallContext{
		Header:     r.Header,
		RemoteAddr: r.RemoteAddr,
	}

	for {
		var frame wire.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}

		resp := h.handleFrame(r, frame, meta)

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(resp); err != nil {
			h.logger.Debug().Err(err).Msg("websocket write error")
			return
		}
	}
}

func (h *WSHandler) handleFrame(r *http.Request, frame wire.Frame, meta *registry.CallContext) *wire.ResponseFrame {
	calls, err := wire.DecodeCalls(frame.Calls)
	if err != nil {
		return &wire.ResponseFrame{
			Seq:   frame.Seq,
			Error: wire.NewError(wire.CodeBadRequest, wire.NameBadRequest, err.Error()),
		}
	}

	var body []wire.BodyItem
	if len(frame.Body) > 0 {
		body, err = wire.ParseBody(frame.Body)
		if err != nil {
			return &wire.ResponseFrame{
				Seq:   frame.Seq,
				Error: wire.NewError(wire.CodeBadRequest, wire.NameBadRequest, err.Error()),
			}
		}
	}

	items := h.executor.Execute(r.Context(), calls, body, meta)
	return &wire.ResponseFrame{Seq: frame.Seq, Items: items}
}
