package device

import "time"

// Status is the admission state a device reports for itself.
type Status string

const (
	// StatusActive marks a device that is currently reporting.
	StatusActive Status = "Active"

	// StatusInactive is the state of a newly created device.
	StatusInactive Status = "Inactive"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// Device is a registered sensor unit. The token is generated at creation
// and never changes afterwards.
type Device struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Token     string    `json:"token"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the slice of a device embedded in readings and alerts.
type Summary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Summary returns the embedded view of d.
func (d *Device) Summary() Summary {
	return Summary{ID: d.ID, Name: d.Name, Location: d.Location}
}

// Input carries the administrator-editable fields of a device.
// Pointers distinguish an absent field from an empty one.
type Input struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
}
