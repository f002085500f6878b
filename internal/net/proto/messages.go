// Package proto parses inbound client messages into tagged command
// variants. Every recognized type maps to exactly one command; unknown tags
// are rejected explicitly rather than ignored.
package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client message type identifiers.
const (
	TypeJoin             = "join"
	TypeLogin            = "login"
	TypeRegister         = "register"
	TypeInput            = "input"
	TypeRequestStartGame = "request_start_game"
	TypeLobbyReconnect   = "lobby_reconnect"
)

// ErrMalformed marks payloads that are not a JSON object with a type tag.
var ErrMalformed = errors.New("proto: malformed message")

// UnknownTypeError marks a well-formed message with an unrecognized tag.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("proto: unknown message type %q", e.Type)
}

// ClientMessage is the raw inbound envelope. Fields beyond Type are only
// meaningful for the variant the tag selects.
type ClientMessage struct {
	Type     string  `json:"type"`
	Name     string  `json:"name,omitempty"`
	Username string  `json:"username,omitempty"`
	Password string  `json:"password,omitempty"`
	Dir      *Vector `json:"dir,omitempty"`
	Angle    float64 `json:"angle,omitempty"`
	Fire     bool    `json:"fire,omitempty"`
}

// Vector is a client-supplied direction. Components are nominally in
// [-1, 1]; the physics step normalizes over-long vectors.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Command is the closed set of parsed inbound commands.
type Command interface {
	clientCommand()
}

type JoinCommand struct {
	Name string
}

type LoginCommand struct {
	Username string
	Password string
}

type RegisterCommand struct {
	Username string
	Password string
}

type InputCommand struct {
	DX    float64
	DY    float64
	Angle float64
	Fire  bool
}

type StartGameCommand struct{}

type LobbyReconnectCommand struct{}

func (JoinCommand) clientCommand()           {}
func (LoginCommand) clientCommand()          {}
func (RegisterCommand) clientCommand()       {}
func (InputCommand) clientCommand()          {}
func (StartGameCommand) clientCommand()      {}
func (LobbyReconnectCommand) clientCommand() {}

// ParseClientMessage decodes one wire payload into its command variant.
// Parsing failures come back as errors, never as panics or silent drops;
// the caller decides whether to log or reply.
func ParseClientMessage(payload []byte) (Command, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type tag", ErrMalformed)
	}

	switch msg.Type {
	case TypeJoin:
		return JoinCommand{Name: msg.Name}, nil
	case TypeLogin:
		return LoginCommand{Username: msg.Username, Password: msg.Password}, nil
	case TypeRegister:
		return RegisterCommand{Username: msg.Username, Password: msg.Password}, nil
	case TypeInput:
		cmd := InputCommand{Angle: msg.Angle, Fire: msg.Fire}
		if msg.Dir != nil {
			cmd.DX = msg.Dir.X
			cmd.DY = msg.Dir.Y
		}
		return cmd, nil
	case TypeRequestStartGame:
		return StartGameCommand{}, nil
	case TypeLobbyReconnect:
		return LobbyReconnectCommand{}, nil
	default:
		return nil, &UnknownTypeError{Type: msg.Type}
	}
}
