package models

import (
	"fmt"
	"time"
)

// DefaultServiceZone is used when a zone is created without a service zone,
// and for every placeholder zone derived from a trip dataset.
const DefaultServiceZone = "Unknown"

// Zone is a TLC taxi zone. ID is the TLC LocationID, so trip datasets
// reference zones by the same key the store uses.
type Zone struct {
	ID          int       `json:"id" validate:"gt=0"`
	Borough     string    `json:"borough" validate:"min=1"`
	ZoneName    string    `json:"zone_name" validate:"min=1"`
	ServiceZone string    `json:"service_zone"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ZoneUpdate carries the fields a client may change on a zone.
// Nil fields are left untouched; ID and CreatedAt can never change.
type ZoneUpdate struct {
	Borough     *string `json:"borough"`
	ZoneName    *string `json:"zone_name"`
	ServiceZone *string `json:"service_zone"`
	Active      *bool   `json:"active"`
}

// NewZone builds a validated zone stamped with createdAt.
func NewZone(id int, borough, zoneName, serviceZone string, active bool, createdAt time.Time) (Zone, error) {
	if serviceZone == "" {
		serviceZone = DefaultServiceZone
	}
	z := Zone{
		ID:          id,
		Borough:     borough,
		ZoneName:    zoneName,
		ServiceZone: serviceZone,
		Active:      active,
		CreatedAt:   createdAt,
	}
	if err := z.Validate(); err != nil {
		return Zone{}, err
	}
	return z, nil
}

// PlaceholderZone is the zone created for a LocationID seen in a trip
// dataset that has no record yet.
func PlaceholderZone(id int, createdAt time.Time) Zone {
	return Zone{
		ID:          id,
		Borough:     "Unknown",
		ZoneName:    fmt.Sprintf("Zone %d", id),
		ServiceZone: DefaultServiceZone,
		Active:      true,
		CreatedAt:   createdAt,
	}
}

// Validate checks the zone invariants.
func (z Zone) Validate() error {
	return validate.Struct(z)
}

// Apply returns a copy of z with the non-nil fields of u applied.
func (z Zone) Apply(u ZoneUpdate) Zone {
	if u.Borough != nil {
		z.Borough = *u.Borough
	}
	if u.ZoneName != nil {
		z.ZoneName = *u.ZoneName
	}
	if u.ServiceZone != nil {
		z.ServiceZone = *u.ServiceZone
	}
	if u.Active != nil {
		z.Active = *u.Active
	}
	return z
}
