// Package reconcile upserts zones and routes derived from trip data into the
// record store.
package reconcile

import (
	"fmt"

	"github.com/pkg/errors"

	"taxi_zones/internal/models"
	"taxi_zones/internal/store"
)

// Policy selects how existing routes are treated.
type Policy string

const (
	// PolicyCreate only adds missing routes; existing ones are left as is.
	PolicyCreate Policy = "create"
	// PolicyUpdate adds missing routes and reactivates existing ones.
	PolicyUpdate Policy = "update"
)

var ErrInvalidPolicy = errors.New("mode must be 'create' or 'update'")

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyCreate, PolicyUpdate:
		return p, nil
	}
	return "", ErrInvalidPolicy
}

// Outcome is what a reconcile call did to the store.
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	}
	return "unchanged"
}

// Tally counts created and updated records.
type Tally struct {
	Created int
	Updated int
}

// Add records an outcome.
func (t *Tally) Add(o Outcome) {
	switch o {
	case Created:
		t.Created++
	case Updated:
		t.Updated++
	}
}

// Reconciler applies reconcile rules against a store.
type Reconciler struct {
	store *store.Store
}

// New returns a Reconciler writing to s.
func New(s *store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// Zone creates a placeholder zone for id or reactivates the existing one.
// It never fails.
func (r *Reconciler) Zone(id int) Outcome {
	if r.store.EnsureZone(id) {
		return Created
	}
	return Updated
}

// Route upserts the route for a pickup/dropoff pair. A returned error
// describes why the pair was skipped; it never indicates a store-wide
// failure and callers should carry on with the next pair.
func (r *Reconciler) Route(pickup, dropoff int, policy Policy) (Outcome, error) {
	if pickup == dropoff {
		return Unchanged, fmt.Errorf("Pickup and dropoff are the same: %d", pickup)
	}
	if !r.store.HasZone(pickup) {
		return Unchanged, fmt.Errorf("Pickup zone %d does not exist", pickup)
	}
	if !r.store.HasZone(dropoff) {
		return Unchanged, fmt.Errorf("Dropoff zone %d does not exist", dropoff)
	}

	if existing, ok := r.store.FindRouteByPair(pickup, dropoff); ok {
		if policy != PolicyUpdate {
			return Unchanged, nil
		}
		if _, err := r.store.ActivateRoute(existing.ID); err != nil {
			return Unchanged, errors.Wrapf(err, "Error processing route %d->%d", pickup, dropoff)
		}
		return Updated, nil
	}

	route, err := models.NewRoute(pickup, dropoff, models.RouteName(pickup, dropoff), true, r.store.Now())
	if err == nil {
		_, err = r.store.CreateRoute(route)
	}
	if err != nil {
		return Unchanged, errors.Wrapf(err, "Error processing route %d->%d", pickup, dropoff)
	}
	return Created, nil
}
