package enums

import "fmt"

// SellerStatus captures the seller verification workflow.
type SellerStatus string

const (
	SellerStatusPendingVerification SellerStatus = "pending_verification"
	SellerStatusVerified            SellerStatus = "verified"
	SellerStatusRejected            SellerStatus = "rejected"
	SellerStatusSuspended           SellerStatus = "suspended"
)

var validSellerStatuses = []SellerStatus{
	SellerStatusPendingVerification,
	SellerStatusVerified,
	SellerStatusRejected,
	SellerStatusSuspended,
}

// String implements fmt.Stringer.
func (s SellerStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical enum.
func (s SellerStatus) IsValid() bool {
	for _, candidate := range validSellerStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSellerStatus converts raw input into a SellerStatus.
func ParseSellerStatus(value string) (SellerStatus, error) {
	for _, candidate := range validSellerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid seller status %q", value)
}
