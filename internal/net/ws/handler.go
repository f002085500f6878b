// Package ws owns the websocket endpoint: upgrade, per-connection read
// loop, and dispatch of parsed commands into the hub.
package ws

import (
	"context"
	"errors"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	server "github.com/DanielSh-bit/tank-family-server"
	"github.com/DanielSh-bit/tank-family-server/internal/net/proto"
	"github.com/DanielSh-bit/tank-family-server/logging"
	"github.com/DanielSh-bit/tank-family-server/logging/network"
)

type HandlerConfig struct {
	Publisher logging.Publisher
}

type Handler struct {
	hub       *server.Hub
	publisher logging.Publisher
	upgrader  websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:       hub,
		publisher: publisher,
		upgrader:  upgrader,
	}
}

// Handle upgrades the request and runs the read loop until the connection
// closes. Disconnects of any flavor funnel into hub teardown; nothing here
// is fatal to the process.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		network.MalformedMessage(r.Context(), h.publisher, 0,
			logging.EntityRef{Kind: logging.EntityKindUnknown},
			network.MalformedMessagePayload{Error: err.Error()}, nil)
		return
	}

	sub := h.hub.Register(conn)
	defer h.hub.Unregister(sub)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.dispatch(sub, payload)
	}
}

// dispatch parses one payload and routes it. Malformed bodies are logged
// and skipped; unknown tags get an explicit error reply.
func (h *Handler) dispatch(sub *server.Subscriber, payload []byte) {
	cmd, err := proto.ParseClientMessage(payload)
	if err != nil {
		var unknown *proto.UnknownTypeError
		if errors.As(err, &unknown) {
			h.hub.Reject(sub, server.ErrBadRequest, unknown.Error())
			return
		}
		network.MalformedMessage(context.Background(), h.publisher, 0,
			logging.EntityRef{Kind: logging.EntityKindUnknown},
			network.MalformedMessagePayload{Error: err.Error()}, nil)
		return
	}

	switch cmd := cmd.(type) {
	case proto.JoinCommand:
		h.hub.Join(sub, cmd.Name)
	case proto.LoginCommand:
		h.hub.Login(sub, cmd.Username, cmd.Password)
	case proto.RegisterCommand:
		h.hub.RegisterUser(sub, cmd.Username, cmd.Password)
	case proto.InputCommand:
		h.hub.Input(sub, cmd.DX, cmd.DY, cmd.Angle, cmd.Fire)
	case proto.StartGameCommand:
		h.hub.StartGame(sub)
	case proto.LobbyReconnectCommand:
		h.hub.LobbyReconnect(sub)
	}
}
