package models

import "time"

// RegistrationState tracks where a delivery token is in its lifecycle.
type RegistrationState string

const (
	RegistrationUnregistered RegistrationState = "unregistered"
	RegistrationPending      RegistrationState = "pending"
	RegistrationRegistered   RegistrationState = "registered"
	RegistrationDenied       RegistrationState = "denied"
)

// Permission mirrors the platform notification permission of this installation.
type Permission string

const (
	// PermissionDefault means the user has never been asked.
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission normalises stored permission values, treating anything
// unknown as never asked.
func ParsePermission(value string) Permission {
	switch Permission(value) {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	default:
		return PermissionDefault
	}
}

// DeliveryToken is the opaque push token issued to this installation and the
// user it was associated with.
type DeliveryToken struct {
	Value             string            `json:"value,omitempty"`
	AssociatedUserID  string            `json:"associated_user_id,omitempty"`
	RegistrationState RegistrationState `json:"registration_state"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
