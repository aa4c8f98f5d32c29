package enums

import (
	"fmt"
	"strings"
)

// AssignmentStatus tracks the loading lifecycle of a lot assigned to a flight.
type AssignmentStatus string

const (
	AssignmentStatusDraft    AssignmentStatus = "draft"
	AssignmentStatusReady    AssignmentStatus = "ready"
	AssignmentStatusLoaded   AssignmentStatus = "loaded"
	AssignmentStatusRejected AssignmentStatus = "rejected"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusDraft,
	AssignmentStatusReady,
	AssignmentStatusLoaded,
	AssignmentStatusRejected,
}

// String implements fmt.Stringer.
func (s AssignmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AssignmentStatus.
func (s AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAssignmentStatus converts raw input into an AssignmentStatus. Empty
// input yields the draft status.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return AssignmentStatusDraft, nil
	}
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
