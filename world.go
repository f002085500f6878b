package server

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// World owns every mutable entity in the session: the player map, the live
// bullet list, and the session fields. It is guarded by the Hub mutex; every
// method on it assumes that mutex is held. No component outside the physics
// step moves entities or resolves collisions, everything else only reads
// snapshots or sets intent fields.
type World struct {
	players map[string]*playerState
	bullets []*bulletState

	state     GameState
	startedAt time.Time

	// lastBulletID stays monotonic across matches so bullet ids are never
	// reused within a process.
	lastBulletID uint64

	colors *colorPool
	rng    *rand.Rand
}

func newWorld(rng *rand.Rand) *World {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &World{
		players: make(map[string]*playerState),
		bullets: make([]*bulletState, 0),
		state:   GameStateWaiting,
		colors:  newColorPool(availableColors),
		rng:     rng,
	}
}

// addPlayer registers a ready-made player state. Callers allocate the id,
// name, and color beforehand.
func (w *World) addPlayer(state *playerState) {
	w.players[state.ID] = state
}

// removePlayer drops a player and releases its color back to the pool. The
// player's bullets stay in flight ownerless.
func (w *World) removePlayer(playerID string) bool {
	state, ok := w.players[playerID]
	if !ok {
		return false
	}
	delete(w.players, playerID)
	w.colors.release(state.Color)
	return true
}

func (w *World) player(playerID string) (*playerState, bool) {
	state, ok := w.players[playerID]
	return state, ok
}

// setIntent stores the latest movement vector and facing angle verbatim. The
// physics step normalizes over-long vectors on consumption.
func (w *World) setIntent(state *playerState, dx, dy, angle float64) {
	state.intentX = dx
	state.intentY = dy
	state.Angle = angle
}

// spawnBullet appends a bullet offset from the shooter's center along its
// facing angle and advances the monotonic id counter.
func (w *World) spawnBullet(owner *playerState) *bulletState {
	w.lastBulletID++
	x := owner.X + fireOffset*math.Cos(owner.Angle)
	y := owner.Y + fireOffset*math.Sin(owner.Angle)
	bullet := newBulletState(w.lastBulletID, owner.ID, x, y, owner.Angle)
	w.bullets = append(w.bullets, bullet)
	return bullet
}

// uniqueName suffixes the requested display name until it is unused among
// the connected players.
func (w *World) uniqueName(requested string) string {
	if requested == "" {
		requested = fmt.Sprintf("Tank_%d", 100+w.rng.Intn(900))
	}
	name := requested
	for i := 1; w.nameInUse(name); i++ {
		name = fmt.Sprintf("%s_%d", requested, i)
	}
	return name
}

func (w *World) nameInUse(name string) bool {
	for _, state := range w.players {
		if state.Name == name {
			return true
		}
	}
	return false
}

func (w *World) usernameConnected(username string) bool {
	for _, state := range w.players {
		if state.username == username {
			return true
		}
	}
	return false
}

// randomSpawn picks an in-bounds position with full tank clearance from the
// arena walls.
func (w *World) randomSpawn() (float64, float64) {
	x := tankRadius + w.rng.Float64()*(worldWidth-2*tankRadius)
	y := tankRadius + w.rng.Float64()*(worldHeight-2*tankRadius)
	return x, y
}

func (w *World) aliveCount() int {
	alive := 0
	for _, state := range w.players {
		if state.Alive {
			alive++
		}
	}
	return alive
}

// snapshotPlayers copies the player map for broadcasting.
func (w *World) snapshotPlayers() map[string]Player {
	players := make(map[string]Player, len(w.players))
	for id, state := range w.players {
		players[id] = state.snapshot()
	}
	return players
}

// snapshotBullets copies the bullet list for broadcasting.
func (w *World) snapshotBullets() []Bullet {
	bullets := make([]Bullet, 0, len(w.bullets))
	for _, state := range w.bullets {
		bullets = append(bullets, state.snapshot())
	}
	return bullets
}

// colorPool hands palette colors out in a fixed order and takes them back on
// disconnect. Exhaustion means the session is full; allocation never
// collides by construction.
type colorPool struct {
	palette []string
	inUse   map[string]bool
}

func newColorPool(palette []string) *colorPool {
	return &colorPool{palette: palette, inUse: make(map[string]bool, len(palette))}
}

func (p *colorPool) acquire() (string, bool) {
	for _, color := range p.palette {
		if !p.inUse[color] {
			p.inUse[color] = true
			return color, true
		}
	}
	return "", false
}

func (p *colorPool) release(color string) {
	delete(p.inUse, color)
}

func (p *colorPool) available() int {
	free := 0
	for _, color := range p.palette {
		if !p.inUse[color] {
			free++
		}
	}
	return free
}
