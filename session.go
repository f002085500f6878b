package server

import "time"

// GameState is the session lifecycle phase. Transitions are strict:
// waiting -> playing (explicit start with enough players),
// playing -> session_end (one survivor left, or the player count dropped
// below the minimum), and session_end/waiting -> playing (new-game request).
type GameState string

const (
	GameStateWaiting    GameState = "waiting"
	GameStatePlaying    GameState = "playing"
	GameStateSessionEnd GameState = "session_end"
)

// statsUpdate is the per-player rollup handed to the persistence hook when a
// session ends. Guests carry an empty username and are skipped by the hook.
type statsUpdate struct {
	playerID string
	username string
	stats    PlayerStats
}

// startMatch transitions into playing. It is a logged no-op when already
// playing or when fewer than the minimum player count is connected. Bullets
// are cleared but the bullet id counter keeps counting; every tank respawns
// alive at a fresh random position with zeroed intent.
func (w *World) startMatch(now time.Time) bool {
	if w.state == GameStatePlaying {
		return false
	}
	if len(w.players) < minPlayersToStart {
		return false
	}

	w.state = GameStatePlaying
	w.bullets = w.bullets[:0]
	w.startedAt = now

	for _, state := range w.players {
		state.Alive = true
		state.X, state.Y = w.randomSpawn()
		state.intentX = 0
		state.intentY = 0
	}
	return true
}

// endMatch transitions playing -> session_end and rolls the match results
// into player stats: elapsed time (clamped to zero) accumulates into every
// player's play time, and the winner, when given and still connected, gains
// a win. The returned updates feed the persistence hook. Calling endMatch in
// any other state changes nothing.
func (w *World) endMatch(now time.Time, winnerID string) ([]statsUpdate, bool) {
	if w.state != GameStatePlaying {
		return nil, false
	}
	w.state = GameStateSessionEnd

	elapsed := now.Sub(w.startedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	if winnerID != "" {
		if winner, ok := w.players[winnerID]; ok {
			winner.Stats.Wins++
		}
	}

	updates := make([]statsUpdate, 0, len(w.players))
	for id, state := range w.players {
		state.Stats.PlayTime += elapsed
		updates = append(updates, statsUpdate{
			playerID: id,
			username: state.username,
			stats:    state.Stats,
		})
	}
	return updates, true
}
