package enums

import "fmt"

// BarterStatus maps to the barter_status enum in Postgres.
type BarterStatus string

const (
	BarterStatusPending   BarterStatus = "pending"
	BarterStatusAccepted  BarterStatus = "accepted"
	BarterStatusDeclined  BarterStatus = "declined"
	BarterStatusWithdrawn BarterStatus = "withdrawn"
)

var validBarterStatuses = []BarterStatus{
	BarterStatusPending,
	BarterStatusAccepted,
	BarterStatusDeclined,
	BarterStatusWithdrawn,
}

// String implements fmt.Stringer.
func (b BarterStatus) String() string {
	return string(b)
}

// IsValid checks whether the given status matches the canonical enum.
func (b BarterStatus) IsValid() bool {
	for _, candidate := range validBarterStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBarterStatus converts raw strings into BarterStatus.
func ParseBarterStatus(value string) (BarterStatus, error) {
	for _, candidate := range validBarterStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid barter status %q", value)
}
