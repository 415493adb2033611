package models

const (
	CategoryOther   = "other"
	CategoryMain    = "main"
	CategoryGeneral = "general"
	CategoryRides   = "rides"
)

type RideDirection string

const (
	RideToEvent   RideDirection = "to_event"
	RideFromEvent RideDirection = "from_event"
)

// Opposite returns the other leg of a ride, or "" for non-ride items.
func (d RideDirection) Opposite() RideDirection {
	switch d {
	case RideToEvent:
		return RideFromEvent
	case RideFromEvent:
		return RideToEvent
	}
	return ""
}

// MenuItem is one claimable contribution. AssignedTo, AssignedToName and
// AssignedAt are a read cache of the single assignment on an exclusive item;
// the assignments ledger stays the source of truth.
type MenuItem struct {
	ID           string `json:"id" bson:"id"`
	EventID      string `json:"eventId" bson:"eventId"`
	Name         string `json:"name" bson:"name"`
	Category     string `json:"category" bson:"category"`
	Quantity     int    `json:"quantity" bson:"quantity"`
	IsRequired   bool   `json:"isRequired" bson:"isRequired"`
	IsSplittable bool   `json:"isSplittable" bson:"isSplittable"`
	CreatorID    string `json:"creatorId" bson:"creatorId"`
	CreatorName  string `json:"creatorName" bson:"creatorName"`
	CreatedAt    int64  `json:"createdAt" bson:"createdAt"`
	Notes        string `json:"notes,omitempty" bson:"notes,omitempty"`

	AssignedTo     string `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	AssignedToName string `json:"assignedToName,omitempty" bson:"assignedToName,omitempty"`
	AssignedAt     int64  `json:"assignedAt,omitempty" bson:"assignedAt,omitempty"`

	Direction      RideDirection `json:"direction,omitempty" bson:"direction,omitempty"`
	DepartureTime  string        `json:"departureTime,omitempty" bson:"departureTime,omitempty"`
	IsFlexibleTime bool          `json:"isFlexibleTime,omitempty" bson:"isFlexibleTime,omitempty"`
	PickupLocation string        `json:"pickupLocation,omitempty" bson:"pickupLocation,omitempty"`
	PhoneNumber    string        `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
}

// Splittable is derived from quantity and must be refreshed on every write.
func Splittable(quantity int) bool {
	return quantity > 1
}
