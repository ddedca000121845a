package protocol

// Version is the protocol revision this client speaks. The action set below
// is fixed for this version; kinds added by newer servers are ignored.
const Version = 1

// ActionKind identifies the type of a game message
type ActionKind string

const (
	ActionCreateLab          ActionKind = "create-lab"
	ActionCreateModel        ActionKind = "create-model"
	ActionCreatePlayer       ActionKind = "create-player"
	ActionRetrieveLab        ActionKind = "retrieve-lab"
	ActionRetrievePlayerData ActionKind = "retrieve-player-data"
	ActionUpdateFunds        ActionKind = "update-funds"
)

// Actions lists every action kind of the current protocol version
var Actions = []ActionKind{
	ActionCreateLab,
	ActionCreateModel,
	ActionCreatePlayer,
	ActionRetrieveLab,
	ActionRetrievePlayerData,
	ActionUpdateFunds,
}

// Known reports whether a is part of the current protocol version
func (a ActionKind) Known() bool {
	for _, k := range Actions {
		if k == a {
			return true
		}
	}
	return false
}

func (a ActionKind) String() string {
	return string(a)
}
