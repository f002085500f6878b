package server

import "math"

// Bullet is the public snapshot of a shell sent to clients.
type Bullet struct {
	ID      uint64  `json:"id"`
	OwnerID string  `json:"owner_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// bulletState is the authoritative record. Velocity is derived once at spawn
// from the owner's facing angle; the owner id never changes afterwards, even
// if the owner disconnects mid-flight.
type bulletState struct {
	Bullet
	vx      float64
	vy      float64
	bounces int
}

func newBulletState(id uint64, ownerID string, x, y, angle float64) *bulletState {
	return &bulletState{
		Bullet: Bullet{ID: id, OwnerID: ownerID, X: x, Y: y},
		vx:     math.Cos(angle) * bulletSpeed,
		vy:     math.Sin(angle) * bulletSpeed,
	}
}

func (s *bulletState) snapshot() Bullet {
	return s.Bullet
}
