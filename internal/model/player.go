package model

// PlayerID uniquely identifies a player. Assigned by the server.
type PlayerID string

// Player is the authenticated player aggregate
type Player struct {
	ID          PlayerID     `json:"id"`
	Name        string       `json:"name"`
	Avatar      string       `json:"avatar,omitempty"`
	Funds       float64      `json:"funds"`
	UserID      string       `json:"user_id,omitempty"`
	Labs        []Lab        `json:"labs"`
	Investments []Investment `json:"investments"`
}

// FindLab returns the index of the lab with the given id in p.Labs, or -1
func (p *Player) FindLab(id LabID) int {
	if p == nil {
		return -1
	}
	for i := range p.Labs {
		if p.Labs[i].ID == id {
			return i
		}
	}
	return -1
}

// Investor is another player holding a fractional part of a lab
type Investor struct {
	Player Player  `json:"player"`
	Part   float64 `json:"part"` // 0 < part <= 1, enforced server-side
}

// Investment pairs a lab with the investing player's part
type Investment struct {
	Lab  Lab     `json:"lab"`
	Part float64 `json:"part"`
}
