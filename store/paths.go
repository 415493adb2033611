package store

import "potluck/models"

func DetailsPath(field string) string {
	return "details." + field
}

func ItemPath(itemID string) string {
	return string(models.SliceMenuItems) + "." + itemID
}

func ItemFieldPath(itemID, field string) string {
	return ItemPath(itemID) + "." + field
}

func AssignmentPath(assignmentID string) string {
	return string(models.SliceAssignments) + "." + assignmentID
}

func AssignmentFieldPath(assignmentID, field string) string {
	return AssignmentPath(assignmentID) + "." + field
}

func ParticipantPath(userID string) string {
	return string(models.SliceParticipants) + "." + userID
}

func CountPath(userID string) string {
	return "userItemCounts." + userID
}

// AssigneeFields are the read-cache fields kept on exclusive items.
var AssigneeFields = []string{"assignedTo", "assignedToName", "assignedAt"}

// ClearAssignee returns the unset paths for an item's assignee cache.
func ClearAssignee(itemID string) []string {
	out := make([]string, 0, len(AssigneeFields))
	for _, f := range AssigneeFields {
		out = append(out, ItemFieldPath(itemID, f))
	}
	return out
}
