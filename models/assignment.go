package models

type AssignmentStatus string

const (
	StatusConfirmed AssignmentStatus = "confirmed"
	StatusPending   AssignmentStatus = "pending"
	StatusCompleted AssignmentStatus = "completed"
)

type Assignment struct {
	ID         string           `json:"id" bson:"id"`
	EventID    string           `json:"eventId" bson:"eventId"`
	MenuItemID string           `json:"menuItemId" bson:"menuItemId"`
	UserID     string           `json:"userId" bson:"userId"`
	UserName   string           `json:"userName" bson:"userName"`
	Quantity   int              `json:"quantity" bson:"quantity"`
	Status     AssignmentStatus `json:"status" bson:"status"`
	Notes      string           `json:"notes,omitempty" bson:"notes,omitempty"`
	AssignedAt int64            `json:"assignedAt" bson:"assignedAt"`
	UpdatedAt  int64            `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}
