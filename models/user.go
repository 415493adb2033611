package models

// UserProfile is the identity record plus the display name used when the
// user organizes events.
type UserProfile struct {
	ID           string `json:"id" bson:"_id"`
	Email        string `json:"email,omitempty" bson:"email,omitempty"`
	DisplayName  string `json:"displayName" bson:"displayName"`
	PasswordHash string `json:"-" bson:"passwordHash,omitempty"`
	IsAnonymous  bool   `json:"isAnonymous" bson:"isAnonymous"`
	CreatedAt    int64  `json:"createdAt" bson:"createdAt"`
}
