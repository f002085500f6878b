package server

import "time"

const (
	writeWait = 10 * time.Second

	tickRate = 30 // ticks per second

	// World units are pixels; speeds are units per second.
	tankSpeed   = 2.0
	bulletSpeed = 5.0

	tankRadius   = 15.0
	bulletRadius = 3.0

	worldWidth  = 600.0
	worldHeight = 600.0

	minPlayersToStart = 2

	fireCooldown = 500 * time.Millisecond
	fireOffset   = tankRadius + 5

	maxBounces = 1

	// maxStepDelta bounds the dt handed to the physics step so a scheduling
	// stall or reconnect gap cannot teleport entities across the arena.
	maxStepDelta = 0.1
)

// availableColors is the fixed palette handed out to joining tanks. Its
// length is also the player capacity of a session.
var availableColors = []string{
	"red", "blue", "green", "pink", "orange", "yellow", "cyan", "magenta",
}

// TickRate exposes the simulation cadence for diagnostics.
func TickRate() int {
	return tickRate
}

// MaxPlayers is the number of tanks a session can hold.
func MaxPlayers() int {
	return len(availableColors)
}
