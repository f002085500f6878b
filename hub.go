package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/DanielSh-bit/tank-family-server/internal/store"
	"github.com/DanielSh-bit/tank-family-server/logging"
	"github.com/DanielSh-bit/tank-family-server/logging/lifecycle"
	"github.com/DanielSh-bit/tank-family-server/logging/match"
	"github.com/DanielSh-bit/tank-family-server/logging/network"
)

// Conn is the subset of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Subscriber binds one live connection to its session role: whether it
// receives broadcasts and which player it represents, if any. A subscriber
// exists before a player id is assigned (a connection may sit in the
// login/register handshake). The write mutex serializes conn writes; every
// other field is guarded by the hub mutex.
type Subscriber struct {
	conn Conn
	mu   sync.Mutex

	playerID string
	lobby    bool
}

func (s *Subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// CredentialStore persists per-user stats across processes. Implemented by
// store.FileStore; stubbed in tests.
type CredentialStore interface {
	Load(username string) (store.Record, bool, error)
	Save(record store.Record) error
}

// HubConfig carries the hub's injectable collaborators.
type HubConfig struct {
	Clock logging.Clock
	Rand  *rand.Rand
	Store CredentialStore
}

// DefaultHubConfig returns a config backed by the wall clock and no
// credential store (logins rejected, guests only).
func DefaultHubConfig() HubConfig {
	return HubConfig{Clock: logging.ClockFunc(time.Now)}
}

// Hub owns the world and the connection registry. One mutex guards both;
// critical sections stay short and no network write happens while it is
// held, so a slow recipient never delays the tick.
type Hub struct {
	mu          sync.Mutex
	world       *World
	subscribers map[*Subscriber]struct{}
	byPlayer    map[string]*Subscriber
	tick        uint64

	clock     logging.Clock
	store     CredentialStore
	publisher logging.Publisher
	telemetry *telemetryCounters
}

func NewHub(cfg HubConfig, publisher logging.Publisher) *Hub {
	clock := cfg.Clock
	if clock == nil {
		clock = logging.ClockFunc(time.Now)
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Hub{
		world:       newWorld(cfg.Rand),
		subscribers: make(map[*Subscriber]struct{}),
		byPlayer:    make(map[string]*Subscriber),
		clock:       clock,
		store:       cfg.Store,
		publisher:   publisher,
		telemetry:   &telemetryCounters{},
	}
}

// Register adds a fresh connection to the registry. The connection receives
// nothing until it joins, logs in, or reconnects to the lobby.
func (h *Hub) Register(conn Conn) *Subscriber {
	sub := &Subscriber{conn: conn}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unregister tears a connection down: broadcast membership, the associated
// player, and its color are released, and the implicit end-of-session check
// runs. Disconnects are lifecycle events, not errors.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subscribers, sub)

	playerID := sub.playerID
	removed := false
	var updates []statsUpdate
	ended := false
	if playerID != "" {
		delete(h.byPlayer, playerID)
		removed = h.world.removePlayer(playerID)

		if h.world.state == GameStatePlaying && len(h.world.players) < minPlayersToStart {
			updates, ended = h.world.endMatch(h.clock.Now(), "")
		}
	}
	tick := h.tick
	h.mu.Unlock()

	sub.conn.Close()

	if removed {
		lifecycle.PlayerDisconnected(context.Background(), h.publisher, tick,
			logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
			lifecycle.PlayerDisconnectedPayload{Reason: "connection closed"}, nil)
	}
	if ended {
		h.persistStats(updates)
		match.Ended(context.Background(), h.publisher, tick,
			match.EndedPayload{Reason: "players below minimum"}, nil)
	}
	if removed || ended {
		h.BroadcastLobbyState()
	}
}

// Join creates a guest player for the connection and enrolls it in the
// lobby. The display name is deduplicated; identity comes from a uuid and a
// palette color, both collision-free by construction.
func (h *Hub) Join(sub *Subscriber, requestedName string) {
	h.mu.Lock()
	if sub.playerID != "" {
		h.mu.Unlock()
		h.sendError(sub, ErrAlreadyJoined, "already joined")
		return
	}

	color, ok := h.world.colors.acquire()
	if !ok {
		h.mu.Unlock()
		h.sendError(sub, ErrMatchFull, "no free player slot")
		return
	}

	name := h.world.uniqueName(requestedName)
	state := h.newPlayerLocked(name, color, PlayerStats{}, "")
	h.attachLocked(sub, state)
	tick := h.tick
	h.mu.Unlock()

	lifecycle.PlayerJoined(context.Background(), h.publisher, tick,
		logging.EntityRef{ID: state.ID, Kind: logging.EntityKindPlayer},
		lifecycle.PlayerJoinedPayload{Name: name, SpawnX: state.X, SpawnY: state.Y}, nil)

	h.sendTo(sub, JoinedMessage{Type: TypeJoined, ID: state.ID, Color: color, Name: name, Stats: state.Stats})
	h.BroadcastLobbyState()
}

// Login authenticates against the credential store and creates the player
// with its persisted stats. One live connection per username.
func (h *Hub) Login(sub *Subscriber, username, password string) {
	if username == "" || password == "" {
		h.sendError(sub, ErrBadRequest, "username and password required")
		return
	}
	if h.store == nil {
		h.sendError(sub, ErrStorage, "credential store unavailable")
		return
	}

	record, found, err := h.store.Load(username)
	if err != nil {
		h.sendError(sub, ErrStorage, "credential store unavailable")
		return
	}
	if !found {
		h.sendError(sub, ErrUnknownUser, "no such user")
		return
	}
	if record.Password != password {
		h.sendError(sub, ErrWrongPassword, "wrong password")
		return
	}

	h.mu.Lock()
	if sub.playerID != "" {
		h.mu.Unlock()
		h.sendError(sub, ErrAlreadyJoined, "already joined")
		return
	}
	if h.world.usernameConnected(username) {
		h.mu.Unlock()
		h.sendError(sub, ErrAlreadyConnected, "user already connected")
		return
	}
	color, ok := h.world.colors.acquire()
	if !ok {
		h.mu.Unlock()
		h.sendError(sub, ErrMatchFull, "no free player slot")
		return
	}

	name := h.world.uniqueName(username)
	stats := PlayerStats{Kills: record.Kills, Wins: record.Wins, PlayTime: record.PlayTime}
	state := h.newPlayerLocked(name, color, stats, username)
	h.attachLocked(sub, state)
	tick := h.tick
	h.mu.Unlock()

	lifecycle.PlayerJoined(context.Background(), h.publisher, tick,
		logging.EntityRef{ID: state.ID, Kind: logging.EntityKindPlayer},
		lifecycle.PlayerJoinedPayload{Name: name, SpawnX: state.X, SpawnY: state.Y}, nil)

	h.sendTo(sub, AuthOKMessage{Type: TypeLoginOK, ID: state.ID, Color: color, Username: username, Stats: state.Stats})
	h.BroadcastLobbyState()
}

// Register creates a credential record, then proceeds like Login with fresh
// stats.
func (h *Hub) RegisterUser(sub *Subscriber, username, password string) {
	if username == "" || password == "" {
		h.sendError(sub, ErrBadRequest, "username and password required")
		return
	}
	if h.store == nil {
		h.sendError(sub, ErrStorage, "credential store unavailable")
		return
	}

	if _, found, err := h.store.Load(username); err != nil {
		h.sendError(sub, ErrStorage, "credential store unavailable")
		return
	} else if found {
		h.sendError(sub, ErrUsernameTaken, "username exists")
		return
	}
	if err := h.store.Save(store.Record{Username: username, Password: password}); err != nil {
		h.sendError(sub, ErrStorage, "credential store unavailable")
		return
	}

	h.mu.Lock()
	if sub.playerID != "" {
		h.mu.Unlock()
		h.sendError(sub, ErrAlreadyJoined, "already joined")
		return
	}
	color, ok := h.world.colors.acquire()
	if !ok {
		h.mu.Unlock()
		h.sendError(sub, ErrMatchFull, "no free player slot")
		return
	}

	name := h.world.uniqueName(username)
	state := h.newPlayerLocked(name, color, PlayerStats{}, username)
	h.attachLocked(sub, state)
	tick := h.tick
	h.mu.Unlock()

	lifecycle.PlayerJoined(context.Background(), h.publisher, tick,
		logging.EntityRef{ID: state.ID, Kind: logging.EntityKindPlayer},
		lifecycle.PlayerJoinedPayload{Name: name, SpawnX: state.X, SpawnY: state.Y}, nil)

	h.sendTo(sub, AuthOKMessage{Type: TypeRegisterOK, ID: state.ID, Color: color, Username: username, Stats: state.Stats})
	h.BroadcastLobbyState()
}

// newPlayerLocked builds a player at a random spawn. Caller holds h.mu and
// has already acquired the color.
func (h *Hub) newPlayerLocked(name, color string, stats PlayerStats, username string) *playerState {
	x, y := h.world.randomSpawn()
	state := &playerState{
		Player: Player{
			ID:    uuid.NewString(),
			Name:  name,
			Color: color,
			X:     x,
			Y:     y,
			Alive: true,
			Stats: stats,
		},
		username: username,
	}
	h.world.addPlayer(state)
	return state
}

func (h *Hub) attachLocked(sub *Subscriber, state *playerState) {
	sub.playerID = state.ID
	sub.lobby = true
	h.byPlayer[state.ID] = sub
}

// Input applies a movement/aim command and conditionally spawns a bullet.
// Dead players' input is dropped silently; input before join is a protocol
// violation.
func (h *Hub) Input(sub *Subscriber, dx, dy, angle float64, fire bool) {
	h.mu.Lock()
	if sub.playerID == "" {
		h.mu.Unlock()
		h.sendError(sub, ErrNotJoined, "join before sending input")
		return
	}
	state, ok := h.world.player(sub.playerID)
	if !ok || !state.Alive {
		h.mu.Unlock()
		return
	}

	h.world.setIntent(state, dx, dy, angle)

	var fired *bulletState
	now := h.clock.Now()
	if fire && now.Sub(state.lastFire) > fireCooldown {
		fired = h.world.spawnBullet(state)
		state.lastFire = now
	}
	tick := h.tick
	h.mu.Unlock()

	if fired != nil {
		match.ShotFired(context.Background(), h.publisher, tick,
			logging.EntityRef{ID: state.ID, Kind: logging.EntityKindPlayer},
			match.ShotFiredPayload{BulletID: fired.ID}, nil)
	}
}

// StartGame attempts the waiting/session_end -> playing transition. Starting
// with too few players is a quiet no-op; clients learn the state from the
// next lobby broadcast either way.
func (h *Hub) StartGame(sub *Subscriber) {
	h.mu.Lock()
	if sub.playerID == "" {
		h.mu.Unlock()
		h.sendError(sub, ErrNotJoined, "join before starting a game")
		return
	}
	started := h.world.startMatch(h.clock.Now())
	numPlayers := len(h.world.players)
	tick := h.tick
	h.mu.Unlock()

	if started {
		match.Started(context.Background(), h.publisher, tick,
			match.StartedPayload{NumPlayers: numPlayers}, nil)
	}
	h.BroadcastLobbyState()
}

// LobbyReconnect re-enrolls a connection as a broadcast recipient after it
// returned from a concluded match view.
func (h *Hub) LobbyReconnect(sub *Subscriber) {
	h.mu.Lock()
	if sub.playerID == "" {
		h.mu.Unlock()
		h.sendError(sub, ErrNotJoined, "join before rejoining the lobby")
		return
	}
	sub.lobby = true
	h.mu.Unlock()
	h.BroadcastLobbyState()
}

// RunSimulation drives physics and broadcast at a fixed cadence until the
// stop channel closes. dt is the measured wall-clock gap, so the simulation
// self-corrects for scheduling jitter; the step clamps it. Outside of
// playing the physics is skipped but lobby state still goes out so waiting
// clients stay informed.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	last := h.clock.Now()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := h.clock.Now()
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(tickRate)
			}
			last = now
			h.Tick(now, dt)
		}
	}
}

// Tick runs one scheduler iteration: physics (when playing) and the
// appropriate broadcasts. Exposed for tests driving simulated time.
func (h *Hub) Tick(now time.Time, dt float64) {
	h.mu.Lock()
	h.tick++
	tick := h.tick
	state := h.world.state

	var outcome stepOutcome
	if state == GameStatePlaying {
		outcome = h.world.step(dt, now)
		state = h.world.state
	}
	h.mu.Unlock()

	for _, kill := range outcome.kills {
		actor := logging.EntityRef{ID: kill.killerID, Kind: logging.EntityKindPlayer}
		if kill.killerID == "" {
			actor = logging.EntityRef{Kind: logging.EntityKindBullet}
		}
		match.Kill(context.Background(), h.publisher, tick, actor,
			logging.EntityRef{ID: kill.victimID, Kind: logging.EntityKindPlayer},
			match.KillPayload{BulletID: kill.bulletID}, nil)
	}
	if outcome.sessionEnded {
		h.persistStats(outcome.statsUpdates)
		match.Ended(context.Background(), h.publisher, tick,
			match.EndedPayload{WinnerID: outcome.winnerID, Reason: "last tank standing"}, nil)
	}

	switch state {
	case GameStatePlaying:
		h.BroadcastGameState()
	case GameStateSessionEnd:
		// Keep pushing the final frame so late observers see the outcome,
		// and lobby state so clients can offer a rematch.
		h.BroadcastGameState()
		h.BroadcastLobbyState()
	default:
		h.BroadcastLobbyState()
	}

	h.telemetry.RecordTickDuration(h.clock.Now().Sub(now))
}

// persistStats is the end-of-session persistence hook: logged-in players get
// their rolled-up stats written through the credential store.
func (h *Hub) persistStats(updates []statsUpdate) {
	if h.store == nil {
		return
	}
	for _, update := range updates {
		if update.username == "" {
			continue
		}
		record := store.Record{
			Username: update.username,
			Kills:    update.stats.Kills,
			Wins:     update.stats.Wins,
			PlayTime: update.stats.PlayTime,
		}
		if existing, found, err := h.store.Load(update.username); err == nil && found {
			record.Password = existing.Password
		}
		if err := h.store.Save(record); err != nil {
			network.StorageFailed(context.Background(), h.publisher, h.currentTick(),
				logging.EntityRef{ID: update.playerID, Kind: logging.EntityKindPlayer},
				network.StorageFailedPayload{Error: err.Error()}, nil)
		}
	}
}

func (h *Hub) currentTick() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tick
}

// BroadcastLobbyState fans the lobby summary out to every enrolled
// connection.
func (h *Hub) BroadcastLobbyState() {
	h.mu.Lock()
	msg := LobbyStateMessage{
		Type:       TypeLobbyState,
		GameState:  h.world.state,
		NumPlayers: len(h.world.players),
		Players:    h.world.snapshotPlayers(),
	}
	h.mu.Unlock()
	h.broadcast(msg)
}

// BroadcastGameState fans the authoritative world snapshot out to every
// enrolled connection. The snapshot is taken after physics fully completed,
// so each tick is atomic as observed by clients.
func (h *Hub) BroadcastGameState() {
	h.mu.Lock()
	msg := GameStateMessage{
		Type:      TypeGameState,
		GameState: h.world.state,
		Players:   h.world.snapshotPlayers(),
		Bullets:   h.world.snapshotBullets(),
	}
	h.mu.Unlock()
	h.broadcast(msg)
}

// broadcast serializes once and writes to every lobby subscriber. Failed
// recipients are collected during the pass and torn down afterwards; one
// broken connection never blocks delivery to the rest.
func (h *Hub) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		network.EncodeFailed(context.Background(), h.publisher, h.currentTick(),
			network.EncodeFailedPayload{Error: err.Error()}, nil)
		return
	}

	h.mu.Lock()
	recipients := make([]*Subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		if sub.lobby {
			recipients = append(recipients, sub)
		}
	}
	tick := h.tick
	h.mu.Unlock()

	var failed []*Subscriber
	for _, sub := range recipients {
		if err := sub.write(data); err != nil {
			network.BroadcastFailed(context.Background(), h.publisher, tick,
				logging.EntityRef{ID: sub.playerID, Kind: logging.EntityKindPlayer},
				network.BroadcastFailedPayload{Error: err.Error()}, nil)
			failed = append(failed, sub)
		}
	}
	for _, sub := range failed {
		h.telemetry.RecordDroppedRecipient()
		h.Unregister(sub)
	}

	h.telemetry.RecordBroadcast(len(data), len(recipients))
}

// sendTo writes a direct reply to one connection, tearing it down on
// failure.
func (h *Hub) sendTo(sub *Subscriber, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		network.EncodeFailed(context.Background(), h.publisher, h.currentTick(),
			network.EncodeFailedPayload{Error: err.Error()}, nil)
		return
	}
	if err := sub.write(data); err != nil {
		h.Unregister(sub)
	}
}

func (h *Hub) sendError(sub *Subscriber, reason, message string) {
	h.sendTo(sub, ErrorMessage{Type: TypeError, Error: reason, Message: message})
}

// Reject sends a typed error reply without mutating any state. Used by the
// transport layer for protocol-level rejects.
func (h *Hub) Reject(sub *Subscriber, reason, message string) {
	h.sendError(sub, reason, message)
}

// DiagnosticsSnapshot exposes session and telemetry data for /diagnostics.
func (h *Hub) DiagnosticsSnapshot() (GameState, int, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.state, len(h.world.players), h.tick
}

// TelemetrySnapshot exposes the broadcast counters.
func (h *Hub) TelemetrySnapshot() any {
	return h.telemetry.Snapshot()
}
