package model

// LabID uniquely identifies a lab. Assigned by the server.
type LabID string

// Location is the region a lab operates in
type Location string

const (
	LocationUS   Location = "us"
	LocationEU   Location = "eu"
	LocationAPAC Location = "apac"
)

// Valid reports whether l is one of the known regions
func (l Location) Valid() bool {
	switch l {
	case LocationUS, LocationEU, LocationAPAC:
		return true
	}
	return false
}

// Lab is a research lab owned by exactly one player
type Lab struct {
	ID         LabID      `json:"id"`
	Name       string     `json:"name"`
	Location   Location   `json:"location"`
	Valuation  float64    `json:"valuation"`
	Income     float64    `json:"income"`
	TechTreeID string     `json:"tech_tree_id,omitempty"`
	PlayerID   PlayerID   `json:"player_id"`
	Employees  []Employee `json:"employees"`
	Models     []AIModel  `json:"models"`
	Investors  []Investor `json:"investors"`
}

// Employee works in exactly one lab
type Employee struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Salary    float64 `json:"salary"`
	ImageURL  string  `json:"image_url,omitempty"`
	RoleID    int     `json:"role_id"`
	QualityID int     `json:"quality_id"`
	LabID     LabID   `json:"lab_id"`
}

// AIModel is a model trained by exactly one lab
type AIModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AIModelTypeID int    `json:"ai_model_type_id"`
	TechTreeID    string `json:"tech_tree_id"`
	LabID         LabID  `json:"lab_id"`
}
