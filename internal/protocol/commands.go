package protocol

import "github.com/mcoot/aiventure/internal/model"

// FundsUpdate is the update-funds payload pushed by the server's income loop
type FundsUpdate struct {
	Funds      float64 `json:"funds"`
	UpdateType string  `json:"update_type,omitempty"` // "increment" | "decrement"
}

// CreateLab asks the server to found a new lab for the current player
func CreateLab(name string, location model.Location) GameMessage {
	return NewMessage(ActionCreateLab, map[string]any{
		"name":     name,
		"location": string(location),
	})
}

// CreateModel asks the server to start a model in the given lab
func CreateModel(labID model.LabID, name string, modelTypeID int) GameMessage {
	return NewMessage(ActionCreateModel, map[string]any{
		"lab_id":           string(labID),
		"name":             name,
		"ai_model_type_id": modelTypeID,
	})
}

// CreatePlayer asks the server to create the player for the current user
func CreatePlayer(name string) GameMessage {
	return NewMessage(ActionCreatePlayer, map[string]any{"name": name})
}

// RetrieveLab asks the server to push the full lab
func RetrieveLab(labID model.LabID) GameMessage {
	return NewMessage(ActionRetrieveLab, map[string]any{"lab_id": string(labID)})
}

// RetrievePlayerData asks the server to push the full player
func RetrievePlayerData() GameMessage {
	return NewMessage(ActionRetrievePlayerData, nil)
}
