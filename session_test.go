package server

import (
	"testing"
	"time"
)

func TestStartMatchRequiresMinimumPlayers(t *testing.T) {
	w := newTestWorld()
	addTestPlayer(w, "p1", 100, 100)

	if w.startMatch(time.Now()) {
		t.Fatal("match started with a single player")
	}
	if w.state != GameStateWaiting {
		t.Fatalf("expected state %q, got %q", GameStateWaiting, w.state)
	}
}

func TestStartMatchNoOpWhilePlaying(t *testing.T) {
	w := newTestWorld()
	addTestPlayer(w, "p1", 100, 100)
	addTestPlayer(w, "p2", 500, 500)

	if !w.startMatch(time.Now()) {
		t.Fatal("expected match to start")
	}
	if w.startMatch(time.Now()) {
		t.Fatal("start succeeded while already playing")
	}
}

func TestStartMatchResetsEntities(t *testing.T) {
	w := newTestWorld()
	p1 := addTestPlayer(w, "p1", 100, 100)
	p2 := addTestPlayer(w, "p2", 500, 500)
	p1.Alive = false
	p1.intentX = 1
	p1.intentY = -1
	addTestBullet(w, p1.ID, 300, 300, 0)
	counterBefore := w.lastBulletID

	if !w.startMatch(time.Now()) {
		t.Fatal("expected match to start")
	}

	if w.state != GameStatePlaying {
		t.Fatalf("expected state %q, got %q", GameStatePlaying, w.state)
	}
	if len(w.bullets) != 0 {
		t.Fatalf("expected bullets cleared, got %d", len(w.bullets))
	}
	if w.lastBulletID != counterBefore {
		t.Fatalf("bullet counter reset from %d to %d", counterBefore, w.lastBulletID)
	}
	for _, p := range []*playerState{p1, p2} {
		if !p.Alive {
			t.Fatalf("player %s not respawned alive", p.ID)
		}
		if p.intentX != 0 || p.intentY != 0 {
			t.Fatalf("player %s intent not cleared: (%v, %v)", p.ID, p.intentX, p.intentY)
		}
		if p.X < tankRadius || p.X > worldWidth-tankRadius ||
			p.Y < tankRadius || p.Y > worldHeight-tankRadius {
			t.Fatalf("player %s spawned out of bounds at (%v, %v)", p.ID, p.X, p.Y)
		}
	}
}

func TestStartMatchRestartsFromSessionEnd(t *testing.T) {
	w := newTestWorld()
	p1 := addTestPlayer(w, "p1", 100, 100)
	addTestPlayer(w, "p2", 500, 500)
	w.startMatch(time.Now())
	w.endMatch(time.Now(), p1.ID)

	if !w.startMatch(time.Now()) {
		t.Fatal("expected rematch to start from session_end")
	}
	if w.state != GameStatePlaying {
		t.Fatalf("expected state %q, got %q", GameStatePlaying, w.state)
	}
}

func TestEndMatchRollsUpStats(t *testing.T) {
	w := newTestWorld()
	p1 := addTestPlayer(w, "p1", 100, 100)
	p1.username = "alice"
	p2 := addTestPlayer(w, "p2", 500, 500)
	started := time.Now()
	w.startMatch(started)

	updates, ok := w.endMatch(started.Add(90*time.Second), p1.ID)
	if !ok {
		t.Fatal("expected end to succeed")
	}
	if w.state != GameStateSessionEnd {
		t.Fatalf("expected state %q, got %q", GameStateSessionEnd, w.state)
	}
	if p1.Stats.Wins != 1 {
		t.Fatalf("expected winner wins 1, got %d", p1.Stats.Wins)
	}
	if p2.Stats.Wins != 0 {
		t.Fatalf("expected loser wins 0, got %d", p2.Stats.Wins)
	}
	if p1.Stats.PlayTime != 90 || p2.Stats.PlayTime != 90 {
		t.Fatalf("expected 90s play time for both, got %v and %v",
			p1.Stats.PlayTime, p2.Stats.PlayTime)
	}

	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	byPlayer := make(map[string]statsUpdate, len(updates))
	for _, u := range updates {
		byPlayer[u.playerID] = u
	}
	if byPlayer[p1.ID].username != "alice" {
		t.Fatalf("expected username carried in update, got %q", byPlayer[p1.ID].username)
	}
	if byPlayer[p2.ID].username != "" {
		t.Fatalf("expected empty username for guest, got %q", byPlayer[p2.ID].username)
	}
}

func TestEndMatchWithUnknownWinner(t *testing.T) {
	w := newTestWorld()
	addTestPlayer(w, "p1", 100, 100)
	addTestPlayer(w, "p2", 500, 500)
	w.startMatch(time.Now())

	if _, ok := w.endMatch(time.Now(), "departed"); !ok {
		t.Fatal("expected end to succeed")
	}
	for _, p := range w.players {
		if p.Stats.Wins != 0 {
			t.Fatalf("player %s gained a win for a departed winner", p.ID)
		}
	}
}

func TestEndMatchOnlyFromPlaying(t *testing.T) {
	w := newTestWorld()
	addTestPlayer(w, "p1", 100, 100)

	if _, ok := w.endMatch(time.Now(), ""); ok {
		t.Fatal("end succeeded from waiting")
	}
	if w.state != GameStateWaiting {
		t.Fatalf("expected state %q, got %q", GameStateWaiting, w.state)
	}
}

func TestEndMatchClampsNegativeElapsed(t *testing.T) {
	w := newTestWorld()
	p1 := addTestPlayer(w, "p1", 100, 100)
	addTestPlayer(w, "p2", 500, 500)
	started := time.Now()
	w.startMatch(started)

	if _, ok := w.endMatch(started.Add(-time.Second), p1.ID); !ok {
		t.Fatal("expected end to succeed")
	}
	if p1.Stats.PlayTime != 0 {
		t.Fatalf("expected clamped play time 0, got %v", p1.Stats.PlayTime)
	}
}
