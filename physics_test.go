package server

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func newTestWorld() *World {
	return newWorld(rand.New(rand.NewSource(1)))
}

func addTestPlayer(w *World, id string, x, y float64) *playerState {
	state := &playerState{
		Player: Player{ID: id, Name: id, Color: "red", X: x, Y: y, Alive: true},
	}
	w.addPlayer(state)
	return state
}

func addTestBullet(w *World, ownerID string, x, y, angle float64) *bulletState {
	w.lastBulletID++
	bullet := newBulletState(w.lastBulletID, ownerID, x, y, angle)
	w.bullets = append(w.bullets, bullet)
	return bullet
}

func TestStepPlayersClampsToArena(t *testing.T) {
	w := newTestWorld()
	p := addTestPlayer(w, "p1", tankRadius+0.5, worldHeight-tankRadius-0.5)
	p.intentX = -1
	p.intentY = 1

	w.step(0.1, time.Now())

	if p.X != tankRadius {
		t.Fatalf("expected X clamped to %v, got %v", float64(tankRadius), p.X)
	}
	if p.Y != worldHeight-tankRadius {
		t.Fatalf("expected Y clamped to %v, got %v", worldHeight-tankRadius, p.Y)
	}
}

func TestStepPlayersNormalizesDiagonalIntent(t *testing.T) {
	w := newTestWorld()
	p := addTestPlayer(w, "p1", 300, 300)
	p.intentX = 1
	p.intentY = 1

	w.step(0.1, time.Now())

	moved := math.Hypot(p.X-300, p.Y-300)
	want := tankSpeed * 0.1
	if math.Abs(moved-want) > 1e-9 {
		t.Fatalf("expected displacement %v, got %v", want, moved)
	}
}

func TestStepPlayersKeepsShortIntent(t *testing.T) {
	w := newTestWorld()
	p := addTestPlayer(w, "p1", 300, 300)
	p.intentX = 0.5
	p.intentY = 0

	w.step(0.1, time.Now())

	want := 300 + 0.5*tankSpeed*0.1
	if math.Abs(p.X-want) > 1e-9 {
		t.Fatalf("expected X %v, got %v", want, p.X)
	}
}

func TestStepClampsDelta(t *testing.T) {
	w := newTestWorld()
	p := addTestPlayer(w, "p1", 300, 300)
	p.intentX = 1

	w.step(10, time.Now())

	want := 300 + tankSpeed*maxStepDelta
	if math.Abs(p.X-want) > 1e-9 {
		t.Fatalf("expected X %v after clamped step, got %v", want, p.X)
	}
}

func TestStepIgnoresNonPositiveDelta(t *testing.T) {
	w := newTestWorld()
	p := addTestPlayer(w, "p1", 300, 300)
	p.intentX = 1

	w.step(0, time.Now())
	w.step(-1, time.Now())

	if p.X != 300 {
		t.Fatalf("expected player to stay put, got X %v", p.X)
	}
}

func TestStepSkipsDeadPlayers(t *testing.T) {
	w := newTestWorld()
	p := addTestPlayer(w, "p1", 300, 300)
	p.Alive = false
	p.intentX = 1

	w.step(0.1, time.Now())

	if p.X != 300 {
		t.Fatalf("dead player moved to X %v", p.X)
	}
}

func TestStepBulletBouncesOffWall(t *testing.T) {
	w := newTestWorld()
	b := addTestBullet(w, "p1", worldWidth-bulletRadius-0.1, 300, 0)

	w.step(0.1, time.Now())

	if b.X != worldWidth-bulletRadius {
		t.Fatalf("expected bullet repositioned to %v, got %v", worldWidth-bulletRadius, b.X)
	}
	if b.vx >= 0 {
		t.Fatalf("expected vx inverted, got %v", b.vx)
	}
	if b.bounces != 1 {
		t.Fatalf("expected 1 bounce, got %d", b.bounces)
	}
	if len(w.bullets) != 1 {
		t.Fatalf("expected bullet retained after first bounce, got %d bullets", len(w.bullets))
	}
}

func TestStepBulletRemovedAfterSecondBounce(t *testing.T) {
	w := newTestWorld()
	b := addTestBullet(w, "p1", worldWidth-bulletRadius-0.1, 300, 0)
	b.bounces = maxBounces

	w.step(0.1, time.Now())

	if len(w.bullets) != 0 {
		t.Fatalf("expected bullet removed past bounce budget, got %d bullets", len(w.bullets))
	}
}

func TestStepCornerCountsSingleBounce(t *testing.T) {
	w := newTestWorld()
	// Heading into the top-left corner: both axes reflect in the same tick.
	b := addTestBullet(w, "p1", bulletRadius+0.1, bulletRadius+0.1, math.Pi+math.Pi/4)

	w.step(0.1, time.Now())

	if b.bounces != 1 {
		t.Fatalf("expected corner hit to count one bounce, got %d", b.bounces)
	}
	if b.vx <= 0 || b.vy <= 0 {
		t.Fatalf("expected both velocity components inverted, got (%v, %v)", b.vx, b.vy)
	}
}

func TestStepKillCreditsOwner(t *testing.T) {
	w := newTestWorld()
	shooter := addTestPlayer(w, "shooter", 100, 100)
	victim := addTestPlayer(w, "victim", 110, 100)
	bystander := addTestPlayer(w, "bystander", 500, 500)
	w.state = GameStatePlaying
	w.startedAt = time.Now()

	addTestBullet(w, shooter.ID, 105, 100, 0)

	outcome := w.step(1.0/tickRate, time.Now())

	if victim.Alive {
		t.Fatal("expected victim dead")
	}
	if len(outcome.kills) != 1 {
		t.Fatalf("expected 1 kill, got %d", len(outcome.kills))
	}
	kill := outcome.kills[0]
	if kill.victimID != victim.ID || kill.killerID != shooter.ID {
		t.Fatalf("unexpected kill attribution: %+v", kill)
	}
	if shooter.Stats.Kills != 1 {
		t.Fatalf("expected shooter kill count 1, got %d", shooter.Stats.Kills)
	}
	if !bystander.Alive {
		t.Fatal("bystander should be untouched")
	}
	if len(w.bullets) != 0 {
		t.Fatalf("expected bullet consumed by the hit, got %d bullets", len(w.bullets))
	}
}

func TestStepKillWithoutOwnerLeavesCreditEmpty(t *testing.T) {
	w := newTestWorld()
	victim := addTestPlayer(w, "victim", 110, 100)
	addTestPlayer(w, "other", 500, 500)
	w.state = GameStatePlaying
	w.startedAt = time.Now()

	addTestBullet(w, "gone", 105, 100, 0)

	outcome := w.step(1.0/tickRate, time.Now())

	if victim.Alive {
		t.Fatal("expected victim dead")
	}
	if len(outcome.kills) != 1 {
		t.Fatalf("expected 1 kill, got %d", len(outcome.kills))
	}
	if outcome.kills[0].killerID != "" {
		t.Fatalf("expected empty killer id, got %q", outcome.kills[0].killerID)
	}
}

func TestStepBulletNeverHitsOwner(t *testing.T) {
	w := newTestWorld()
	shooter := addTestPlayer(w, "shooter", 100, 100)
	w.state = GameStatePlaying
	w.startedAt = time.Now()

	addTestBullet(w, shooter.ID, 101, 100, 0)

	outcome := w.step(1.0/tickRate, time.Now())

	if !shooter.Alive {
		t.Fatal("bullet killed its own shooter")
	}
	if len(outcome.kills) != 0 {
		t.Fatalf("expected no kills, got %d", len(outcome.kills))
	}
}

func TestStepEndsSessionWithLastSurvivor(t *testing.T) {
	w := newTestWorld()
	shooter := addTestPlayer(w, "shooter", 100, 100)
	victim := addTestPlayer(w, "victim", 110, 100)
	started := time.Now()
	w.state = GameStatePlaying
	w.startedAt = started

	addTestBullet(w, shooter.ID, 105, 100, 0)

	outcome := w.step(1.0/tickRate, started.Add(3*time.Second))

	if !outcome.sessionEnded {
		t.Fatal("expected session to end")
	}
	if outcome.winnerID != shooter.ID {
		t.Fatalf("expected winner %q, got %q", shooter.ID, outcome.winnerID)
	}
	if w.state != GameStateSessionEnd {
		t.Fatalf("expected state %q, got %q", GameStateSessionEnd, w.state)
	}
	if shooter.Stats.Wins != 1 {
		t.Fatalf("expected winner wins 1, got %d", shooter.Stats.Wins)
	}
	if shooter.Stats.PlayTime != 3 || victim.Stats.PlayTime != 3 {
		t.Fatalf("expected 3s play time for both, got %v and %v",
			shooter.Stats.PlayTime, victim.Stats.PlayTime)
	}
	if len(outcome.statsUpdates) != 2 {
		t.Fatalf("expected 2 stats updates, got %d", len(outcome.statsUpdates))
	}
}

func TestStepNoSessionEndWhileTwoAlive(t *testing.T) {
	w := newTestWorld()
	addTestPlayer(w, "p1", 100, 100)
	addTestPlayer(w, "p2", 500, 500)
	w.state = GameStatePlaying
	w.startedAt = time.Now()

	outcome := w.step(1.0/tickRate, time.Now())

	if outcome.sessionEnded {
		t.Fatal("session ended with two tanks alive")
	}
	if w.state != GameStatePlaying {
		t.Fatalf("expected state %q, got %q", GameStatePlaying, w.state)
	}
}
