package match

import (
	"context"

	"github.com/DanielSh-bit/tank-family-server/logging"
)

const (
	// EventStarted is emitted on the waiting -> playing transition.
	EventStarted logging.EventType = "match.started"
	// EventEnded is emitted on the playing -> session_end transition.
	EventEnded logging.EventType = "match.ended"
	// EventKill is emitted for every resolved bullet-player collision.
	EventKill logging.EventType = "match.kill"
	// EventShotFired is emitted when a fire command passes the cooldown gate.
	EventShotFired logging.EventType = "match.shot_fired"
)

type StartedPayload struct {
	NumPlayers int `json:"numPlayers"`
}

type EndedPayload struct {
	WinnerID string `json:"winnerId,omitempty"`
	Reason   string `json:"reason"`
}

type KillPayload struct {
	BulletID uint64 `json:"bulletId"`
}

type ShotFiredPayload struct {
	BulletID uint64 `json:"bulletId"`
}

var sessionRef = logging.EntityRef{Kind: logging.EntityKindSession}

// Started publishes a match start event.
func Started(ctx context.Context, pub logging.Publisher, tick uint64, payload StartedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventStarted,
		Tick:     tick,
		Actor:    sessionRef,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Ended publishes a match end event.
func Ended(ctx context.Context, pub logging.Publisher, tick uint64, payload EndedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventEnded,
		Tick:     tick,
		Actor:    sessionRef,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// Kill publishes a kill event. The actor is the crediting shooter, or a bare
// bullet ref when the owner already disconnected.
func Kill(ctx context.Context, pub logging.Publisher, tick uint64, actor, victim logging.EntityRef, payload KillPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventKill,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{victim},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// ShotFired publishes a bullet spawn event.
func ShotFired(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ShotFiredPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventShotFired,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMatch,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}
