package models

type PresetType string

const (
	PresetParticipants PresetType = "participants"
	PresetSalon        PresetType = "salon"
)

// PresetList belongs to an organizer, not to an event.
type PresetList struct {
	ID        string       `json:"id" bson:"_id"`
	Name      string       `json:"name" bson:"name"`
	Type      PresetType   `json:"type" bson:"type"`
	CreatedBy string       `json:"createdBy" bson:"createdBy"`
	Items     []PresetItem `json:"items" bson:"items"`
	IsDefault bool         `json:"isDefault" bson:"isDefault"`
	CreatedAt int64        `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64        `json:"updatedAt" bson:"updatedAt"`
}

type PresetItem struct {
	Name       string `json:"name" bson:"name"`
	Category   string `json:"category" bson:"category"`
	Quantity   int    `json:"quantity" bson:"quantity"`
	IsRequired bool   `json:"isRequired" bson:"isRequired"`
	Notes      string `json:"notes,omitempty" bson:"notes,omitempty"`
}
