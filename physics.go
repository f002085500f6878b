package server

import (
	"math"
	"time"
)

// killEvent records one bullet-player collision resolved during a step.
// killerID is empty when the bullet's owner disconnected before impact.
type killEvent struct {
	bulletID uint64
	victimID string
	killerID string
}

// stepOutcome reports what a physics step changed beyond entity positions.
type stepOutcome struct {
	kills        []killEvent
	sessionEnded bool
	winnerID     string
	statsUpdates []statsUpdate
}

// step advances the world by dt seconds: tank movement with intent
// normalization and boundary clamping, bullet integration with wall bounce,
// collision resolution, bullet retention, and session-end detection. dt is
// clamped to maxStepDelta so one long stall cannot produce a huge jump.
func (w *World) step(dt float64, now time.Time) stepOutcome {
	if dt > maxStepDelta {
		dt = maxStepDelta
	}
	var outcome stepOutcome
	if dt <= 0 {
		return outcome
	}

	w.stepPlayers(dt)
	outcome.kills = w.stepBullets(dt)

	if w.state == GameStatePlaying && w.aliveCount() <= 1 {
		winnerID := ""
		for id, state := range w.players {
			if state.Alive {
				winnerID = id
				break
			}
		}
		updates, ok := w.endMatch(now, winnerID)
		if ok {
			outcome.sessionEnded = true
			outcome.winnerID = winnerID
			outcome.statsUpdates = updates
		}
	}
	return outcome
}

// stepPlayers integrates tank movement. Intent vectors longer than one unit
// are normalized so diagonals move no faster than straight lines; positions
// are clamped component-wise to the arena with tank clearance.
func (w *World) stepPlayers(dt float64) {
	for _, state := range w.players {
		if !state.Alive {
			continue
		}
		dx := state.intentX
		dy := state.intentY
		length := math.Hypot(dx, dy)
		if length > 1 {
			dx /= length
			dy /= length
		}

		state.X = clamp(state.X+dx*tankSpeed*dt, tankRadius, worldWidth-tankRadius)
		state.Y = clamp(state.Y+dy*tankSpeed*dt, tankRadius, worldHeight-tankRadius)
	}
}

// stepBullets advances every bullet, bounces shells off the arena walls, and
// resolves hits. A bullet survives to the next tick only if it hit nobody
// and has not exceeded its bounce budget.
func (w *World) stepBullets(dt float64) []killEvent {
	var kills []killEvent
	retained := w.bullets[:0]

	for _, bullet := range w.bullets {
		bullet.X += bullet.vx * dt
		bullet.Y += bullet.vy * dt

		// Wall bounce: reposition exactly on the boundary and invert the
		// penetrated axis. One bounce increment per tick no matter how many
		// axes reflected.
		hitWall := false
		if bullet.X-bulletRadius < 0 {
			bullet.X = bulletRadius
			bullet.vx = -bullet.vx
			hitWall = true
		} else if bullet.X+bulletRadius > worldWidth {
			bullet.X = worldWidth - bulletRadius
			bullet.vx = -bullet.vx
			hitWall = true
		}
		if bullet.Y-bulletRadius < 0 {
			bullet.Y = bulletRadius
			bullet.vy = -bullet.vy
			hitWall = true
		} else if bullet.Y+bulletRadius > worldHeight {
			bullet.Y = worldHeight - bulletRadius
			bullet.vy = -bullet.vy
			hitWall = true
		}
		if hitWall {
			bullet.bounces++
		}

		if victim := w.resolveHit(bullet); victim != nil {
			victim.Alive = false
			kill := killEvent{bulletID: bullet.ID, victimID: victim.ID}
			if owner, ok := w.players[bullet.OwnerID]; ok {
				owner.Stats.Kills++
				kill.killerID = owner.ID
			}
			kills = append(kills, kill)
			continue
		}

		if bullet.bounces <= maxBounces {
			retained = append(retained, bullet)
		}
	}

	// Drop references past the retained prefix so removed bullets collect.
	for i := len(retained); i < len(w.bullets); i++ {
		w.bullets[i] = nil
	}
	w.bullets = retained
	return kills
}

// resolveHit returns the first alive non-owner tank within collision range
// of the bullet. Map iteration makes the tie-break between simultaneous
// candidates implementation-defined, which is acceptable here.
func (w *World) resolveHit(bullet *bulletState) *playerState {
	for _, state := range w.players {
		if !state.Alive || state.ID == bullet.OwnerID {
			continue
		}
		if math.Hypot(state.X-bullet.X, state.Y-bullet.Y) < tankRadius+bulletRadius {
			return state
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
