package models

// DefaultUserItemLimit is applied when an event is created without a limit.
const DefaultUserItemLimit = 3

// Event is the root aggregate for one potluck. Everything a participant can
// see or change about the event lives inside this one document.
type Event struct {
	ID             string                 `json:"id" bson:"_id"`
	OrganizerID    string                 `json:"organizerId" bson:"organizerId"`
	OrganizerName  string                 `json:"organizerName" bson:"organizerName"`
	CreatedAt      int64                  `json:"createdAt" bson:"createdAt"`
	Details        EventDetails           `json:"details" bson:"details"`
	MenuItems      map[string]MenuItem    `json:"menuItems" bson:"menuItems"`
	Assignments    map[string]Assignment  `json:"assignments" bson:"assignments"`
	Participants   map[string]Participant `json:"participants" bson:"participants"`
	UserItemCounts map[string]int         `json:"userItemCounts" bson:"userItemCounts"`

	// Version is bumped on every write and backs optimistic transactions.
	Version int64 `json:"-" bson:"version"`
}

type EventDetails struct {
	Title             string           `json:"title" bson:"title"`
	Date              string           `json:"date" bson:"date"`
	Time              string           `json:"time" bson:"time"`
	Location          string           `json:"location" bson:"location"`
	Description       string           `json:"description,omitempty" bson:"description,omitempty"`
	EndDate           string           `json:"endDate,omitempty" bson:"endDate,omitempty"`
	EndTime           string           `json:"endTime,omitempty" bson:"endTime,omitempty"`
	IsActive          bool             `json:"isActive" bson:"isActive"`
	AllowUserItems    bool             `json:"allowUserItems" bson:"allowUserItems"`
	AllowRideOffers   bool             `json:"allowRideOffers" bson:"allowRideOffers"`
	AllowRideRequests bool             `json:"allowRideRequests" bson:"allowRideRequests"`
	UserItemLimit     int              `json:"userItemLimit" bson:"userItemLimit"`
	Categories        []CategoryConfig `json:"categories" bson:"categories"`
}

type RowType string

const (
	RowTypeNeeds  RowType = "needs"
	RowTypeOffers RowType = "offers"
)

type CategoryConfig struct {
	ID      string  `json:"id" bson:"id"`
	Name    string  `json:"name" bson:"name"`
	Icon    string  `json:"icon" bson:"icon"`
	Color   string  `json:"color" bson:"color"`
	Order   int     `json:"order" bson:"order"`
	RowType RowType `json:"rowType,omitempty" bson:"rowType,omitempty"`
}

type Participant struct {
	ID       string `json:"id" bson:"id"`
	Name     string `json:"name" bson:"name"`
	JoinedAt int64  `json:"joinedAt" bson:"joinedAt"`
}

// NewEvent returns a fully shaped aggregate. Callers never see an event with
// missing sub-maps.
func NewEvent(id, organizerID, organizerName string, details EventDetails, createdAt int64) *Event {
	if details.UserItemLimit <= 0 {
		details.UserItemLimit = DefaultUserItemLimit
	}
	if details.Categories == nil {
		details.Categories = []CategoryConfig{}
	}
	return &Event{
		ID:             id,
		OrganizerID:    organizerID,
		OrganizerName:  organizerName,
		CreatedAt:      createdAt,
		Details:        details,
		MenuItems:      map[string]MenuItem{},
		Assignments:    map[string]Assignment{},
		Participants:   map[string]Participant{},
		UserItemCounts: map[string]int{},
	}
}

// Normalize fills in sub-maps a partially written record may lack. It reports
// which top-level fields were missing so stores can persist the repair.
func (e *Event) Normalize() []string {
	var repaired []string
	if e.MenuItems == nil {
		e.MenuItems = map[string]MenuItem{}
		repaired = append(repaired, "menuItems")
	}
	if e.Assignments == nil {
		e.Assignments = map[string]Assignment{}
		repaired = append(repaired, "assignments")
	}
	if e.Participants == nil {
		e.Participants = map[string]Participant{}
		repaired = append(repaired, "participants")
	}
	if e.UserItemCounts == nil {
		e.UserItemCounts = map[string]int{}
		repaired = append(repaired, "userItemCounts")
	}
	if e.Details.Categories == nil {
		e.Details.Categories = []CategoryConfig{}
	}
	return repaired
}

func (e *Event) IsOrganizer(userID string) bool {
	return userID != "" && e.OrganizerID == userID
}

// HasCategory reports whether id is one of the configured category ids.
func (e *Event) HasCategory(id string) bool {
	for _, c := range e.Details.Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Slice names one independently subscribable part of an event.
type Slice string

const (
	SliceDetails      Slice = "details"
	SliceMenuItems    Slice = "menuItems"
	SliceAssignments  Slice = "assignments"
	SliceParticipants Slice = "participants"
)

var AllSlices = []Slice{SliceDetails, SliceMenuItems, SliceAssignments, SliceParticipants}

func ParseSlice(s string) (Slice, bool) {
	for _, sl := range AllSlices {
		if string(sl) == s {
			return sl, true
		}
	}
	return "", false
}

// Change announces that an event was written. Listeners re-read the slices
// they care about.
type Change struct {
	EventID string  `json:"eventId"`
	Slices  []Slice `json:"slices"`
	Deleted bool    `json:"deleted,omitempty"`
}

func (c Change) Touches(s Slice) bool {
	if c.Deleted {
		return true
	}
	for _, sl := range c.Slices {
		if sl == s {
			return true
		}
	}
	return false
}
