package server

// Outbound wire messages. One JSON object per message; the Type field tags
// the variant. These structs are shared with cmd/schema, which reflects them
// into a machine-readable protocol document.

const (
	TypeJoined     = "joined"
	TypeLoginOK    = "login_ok"
	TypeRegisterOK = "register_ok"
	TypeError      = "error"
	TypeLobbyState = "lobby_state"
	TypeGameState  = "game_state"
)

// JoinedMessage confirms a join and carries the assigned identity.
type JoinedMessage struct {
	Type  string      `json:"type" jsonschema:"description=Always joined"`
	ID    string      `json:"id"`
	Color string      `json:"color"`
	Name  string      `json:"name"`
	Stats PlayerStats `json:"stats"`
}

// AuthOKMessage confirms a login or register and carries persisted stats.
type AuthOKMessage struct {
	Type     string      `json:"type" jsonschema:"description=login_ok or register_ok"`
	ID       string      `json:"id"`
	Color    string      `json:"color"`
	Username string      `json:"username"`
	Stats    PlayerStats `json:"stats"`
}

// ErrorMessage is the typed rejection sent for protocol violations and
// capacity/state rejections. The connection stays open.
type ErrorMessage struct {
	Type    string `json:"type" jsonschema:"description=Always error"`
	Error   string `json:"error" jsonschema:"description=Machine-readable reject reason"`
	Message string `json:"message,omitempty"`
}

// Error reasons.
const (
	ErrNotJoined        = "not_joined"
	ErrAlreadyJoined    = "already_joined"
	ErrAlreadyConnected = "already_connected"
	ErrWrongPassword    = "wrong_password"
	ErrUsernameTaken    = "username_taken"
	ErrUnknownUser      = "unknown_user"
	ErrMatchFull        = "match_full"
	ErrBadRequest       = "bad_request"
	ErrStorage          = "storage"
)

// LobbyStateMessage keeps lobby clients informed while no match is running.
type LobbyStateMessage struct {
	Type       string            `json:"type" jsonschema:"description=Always lobby_state"`
	GameState  GameState         `json:"game_state"`
	NumPlayers int               `json:"num_players"`
	Players    map[string]Player `json:"players"`
}

// GameStateMessage is the authoritative world snapshot broadcast every tick
// while a match is running or just concluded.
type GameStateMessage struct {
	Type      string            `json:"type" jsonschema:"description=Always game_state"`
	GameState GameState         `json:"game_state"`
	Players   map[string]Player `json:"players"`
	Bullets   []Bullet          `json:"bullets"`
}
