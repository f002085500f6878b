package server

import "time"

// PlayerStats carries the persistent counters attached to a tank. They
// survive across sessions and, for logged-in players, across processes via
// the credential store.
type PlayerStats struct {
	Kills    int     `json:"kills"`
	Wins     int     `json:"wins"`
	PlayTime float64 `json:"play_time"`
}

// Player is the public snapshot of a tank sent to clients.
type Player struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Color string      `json:"color"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Angle float64     `json:"angle"`
	Alive bool        `json:"alive"`
	Stats PlayerStats `json:"stats"`
}

// playerState is the authoritative server-side record. The embedded Player
// holds everything broadcast to clients; the unexported fields are consumed
// by the physics step and the input router.
type playerState struct {
	Player
	intentX  float64
	intentY  float64
	lastFire time.Time

	// username is set when the player authenticated through the credential
	// store. Guests joined via the plain join command leave it empty and
	// their stats die with the connection.
	username string
}

func (s *playerState) snapshot() Player {
	return s.Player
}
