package server

import (
	"fmt"
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// The step must keep every entity inside the arena and every retained bullet
// inside its bounce budget no matter what inputs arrive.
func TestStepInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := newTestWorld()
		w.state = GameStatePlaying
		w.startedAt = time.Now()

		numPlayers := rapid.IntRange(2, 6).Draw(t, "numPlayers")
		ids := make([]string, 0, numPlayers)
		for i := 0; i < numPlayers; i++ {
			id := fmt.Sprintf("p%d", i)
			p := addTestPlayer(w, id,
				rapid.Float64Range(tankRadius, worldWidth-tankRadius).Draw(t, "x"),
				rapid.Float64Range(tankRadius, worldHeight-tankRadius).Draw(t, "y"))
			p.Angle = rapid.Float64Range(0, 2*math.Pi).Draw(t, "angle")
			ids = append(ids, id)
		}

		steps := rapid.IntRange(1, 50).Draw(t, "steps")
		now := time.Now()
		for i := 0; i < steps; i++ {
			for _, id := range ids {
				p := w.players[id]
				if rapid.Bool().Draw(t, "move") {
					p.intentX = rapid.Float64Range(-2, 2).Draw(t, "dx")
					p.intentY = rapid.Float64Range(-2, 2).Draw(t, "dy")
				}
				if rapid.Bool().Draw(t, "fire") && p.Alive {
					w.spawnBullet(p)
				}
			}
			dt := rapid.Float64Range(0.001, 0.2).Draw(t, "dt")
			now = now.Add(time.Duration(dt * float64(time.Second)))
			w.step(dt, now)

			for id, p := range w.players {
				if !p.Alive {
					continue
				}
				if p.X < tankRadius || p.X > worldWidth-tankRadius ||
					p.Y < tankRadius || p.Y > worldHeight-tankRadius {
					t.Fatalf("player %s out of bounds at (%v, %v)", id, p.X, p.Y)
				}
			}
			for _, b := range w.bullets {
				if b.bounces > maxBounces {
					t.Fatalf("bullet %d retained with %d bounces", b.ID, b.bounces)
				}
				if b.X < bulletRadius-1e-9 || b.X > worldWidth-bulletRadius+1e-9 ||
					b.Y < bulletRadius-1e-9 || b.Y > worldHeight-bulletRadius+1e-9 {
					t.Fatalf("bullet %d out of bounds at (%v, %v)", b.ID, b.X, b.Y)
				}
			}
			if w.state != GameStatePlaying {
				break
			}
		}
	})
}

// Bullet ids must stay unique for the lifetime of the world, matches
// included.
func TestBulletIDsUnique(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := newTestWorld()
		p1 := addTestPlayer(w, "p1", 100, 100)
		p2 := addTestPlayer(w, "p2", 500, 500)

		seen := make(map[uint64]bool)
		rounds := rapid.IntRange(1, 5).Draw(t, "rounds")
		for i := 0; i < rounds; i++ {
			w.startMatch(time.Now())
			shots := rapid.IntRange(0, 10).Draw(t, "shots")
			for s := 0; s < shots; s++ {
				b := w.spawnBullet(p1)
				if seen[b.ID] {
					t.Fatalf("bullet id %d reused", b.ID)
				}
				seen[b.ID] = true
			}
			w.endMatch(time.Now(), p2.ID)
		}
	})
}
