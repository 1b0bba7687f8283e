package models

import (
	"fmt"
	"time"
)

// Route is a directed pickup → dropoff pair between two zones.
// IDs are assigned by the store and never reused.
type Route struct {
	ID            int       `json:"id" validate:"gte=0"`
	PickupZoneID  int       `json:"pickup_zone_id" validate:"gt=0,nefield=DropoffZoneID"`
	DropoffZoneID int       `json:"dropoff_zone_id" validate:"gt=0"`
	Name          string    `json:"name" validate:"min=3"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// RouteUpdate carries the fields a client may change on a route.
type RouteUpdate struct {
	PickupZoneID  *int    `json:"pickup_zone_id"`
	DropoffZoneID *int    `json:"dropoff_zone_id"`
	Name          *string `json:"name"`
	Active        *bool   `json:"active"`
}

// NewRoute builds a validated route without an id; the store assigns one.
func NewRoute(pickupZoneID, dropoffZoneID int, name string, active bool, createdAt time.Time) (Route, error) {
	r := Route{
		PickupZoneID:  pickupZoneID,
		DropoffZoneID: dropoffZoneID,
		Name:          name,
		Active:        active,
		CreatedAt:     createdAt,
	}
	if err := r.Validate(); err != nil {
		return Route{}, err
	}
	return r, nil
}

// RouteName is the name given to routes derived from trip data.
func RouteName(pickupZoneID, dropoffZoneID int) string {
	return fmt.Sprintf("Route %d to %d", pickupZoneID, dropoffZoneID)
}

// Validate checks the route invariants that do not depend on the zone store.
func (r Route) Validate() error {
	return validate.Struct(r)
}

// Apply returns a copy of r with the non-nil fields of u applied.
func (r Route) Apply(u RouteUpdate) Route {
	if u.PickupZoneID != nil {
		r.PickupZoneID = *u.PickupZoneID
	}
	if u.DropoffZoneID != nil {
		r.DropoffZoneID = *u.DropoffZoneID
	}
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Active != nil {
		r.Active = *u.Active
	}
	return r
}
