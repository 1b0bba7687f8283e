// Package store holds the zone and route records for the lifetime of the
// process. Nothing is persisted.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"taxi_zones/internal/models"
)

var (
	ErrZoneNotFound  = errors.New("Zone not found")
	ErrZoneExists    = errors.New("Zone ID already exists")
	ErrRouteNotFound = errors.New("Route not found")
	ErrSameZones     = errors.New("pickup_zone_id and dropoff_zone_id must be different")
	ErrInvalid       = errors.New("invalid record")
)

// MissingZoneError is returned when a route references a zone id that is
// not in the store.
type MissingZoneError struct {
	ID int
}

func (e *MissingZoneError) Error() string {
	return fmt.Sprintf("Zone with id %d does not exist", e.ID)
}

// ZoneFilter narrows ListZones. Zero values match everything.
type ZoneFilter struct {
	Active  *bool
	Borough string
}

// RouteFilter narrows ListRoutes. Nil fields match everything.
type RouteFilter struct {
	Active        *bool
	PickupZoneID  *int
	DropoffZoneID *int
}

type pair struct {
	pickup, dropoff int
}

// Store is the in-memory record store shared by the HTTP handlers and the
// ingestion pipeline. Each method is atomic on its own; sequences of calls
// are not.
type Store struct {
	mu          sync.RWMutex
	zones       map[int]models.Zone
	routes      map[int]models.Route
	byPair      map[pair][]int // route ids per pair, ascending
	nextRouteID int
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

// Reset drops every record and restarts route ids at 1.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Store) reset() {
	s.zones = make(map[int]models.Zone)
	s.routes = make(map[int]models.Route)
	s.byPair = make(map[pair][]int)
	s.nextRouteID = 1
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// CreateZone inserts z, stamping CreatedAt.
func (s *Store) CreateZone(z models.Zone) (models.Zone, error) {
	z.CreatedAt = s.now()
	if z.ServiceZone == "" {
		z.ServiceZone = models.DefaultServiceZone
	}
	if err := z.Validate(); err != nil {
		return models.Zone{}, errors.Wrap(ErrInvalid, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[z.ID]; ok {
		return models.Zone{}, ErrZoneExists
	}
	s.zones[z.ID] = z
	return z, nil
}

// GetZone returns the zone with the given id.
func (s *Store) GetZone(id int) (models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zones[id]
	if !ok {
		return models.Zone{}, ErrZoneNotFound
	}
	return z, nil
}

// HasZone reports whether a zone with the given id exists.
func (s *Store) HasZone(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.zones[id]
	return ok
}

// ListZones returns matching zones ordered by id. Borough matches as a
// case-insensitive substring.
func (s *Store) ListZones(f ZoneFilter) []models.Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	borough := strings.ToLower(f.Borough)
	out := make([]models.Zone, 0, len(s.zones))
	for _, z := range s.zones {
		if f.Active != nil && z.Active != *f.Active {
			continue
		}
		if borough != "" && !strings.Contains(strings.ToLower(z.Borough), borough) {
			continue
		}
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateZone applies u to the zone with the given id.
func (s *Store) UpdateZone(id int, u models.ZoneUpdate) (models.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return models.Zone{}, ErrZoneNotFound
	}
	z = z.Apply(u)
	if err := z.Validate(); err != nil {
		return models.Zone{}, errors.Wrap(ErrInvalid, err.Error())
	}
	s.zones[id] = z
	return z, nil
}

// DeleteZone removes a zone. Routes that reference it are left alone.
func (s *Store) DeleteZone(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[id]; !ok {
		return ErrZoneNotFound
	}
	delete(s.zones, id)
	return nil
}

// EnsureZone creates a placeholder zone for id, or marks the existing zone
// active without touching its other fields. It reports whether a zone was
// created.
func (s *Store) EnsureZone(id int) (created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if z, ok := s.zones[id]; ok {
		z.Active = true
		s.zones[id] = z
		return false
	}
	s.zones[id] = models.PlaceholderZone(id, s.now())
	return true
}

// CreateRoute validates r against the zone store and inserts it under the
// next route id.
func (s *Store) CreateRoute(r models.Route) (models.Route, error) {
	if r.PickupZoneID == r.DropoffZoneID {
		return models.Route{}, ErrSameZones
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range []int{r.PickupZoneID, r.DropoffZoneID} {
		if _, ok := s.zones[id]; !ok {
			return models.Route{}, &MissingZoneError{ID: id}
		}
	}
	r.ID = s.nextRouteID
	r.CreatedAt = s.now()
	if err := r.Validate(); err != nil {
		return models.Route{}, errors.Wrap(ErrInvalid, err.Error())
	}
	s.nextRouteID++
	s.routes[r.ID] = r
	s.index(r)
	return r, nil
}

// GetRoute returns the route with the given id.
func (s *Store) GetRoute(id int) (models.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	if !ok {
		return models.Route{}, ErrRouteNotFound
	}
	return r, nil
}

// ListRoutes returns matching routes ordered by id.
func (s *Store) ListRoutes(f RouteFilter) []models.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Route, 0, len(s.routes))
	for _, r := range s.routes {
		if f.Active != nil && r.Active != *f.Active {
			continue
		}
		if f.PickupZoneID != nil && r.PickupZoneID != *f.PickupZoneID {
			continue
		}
		if f.DropoffZoneID != nil && r.DropoffZoneID != *f.DropoffZoneID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateRoute applies u to the route with the given id. Zone existence is
// only checked for zone ids that u changes.
func (s *Store) UpdateRoute(id int, u models.RouteUpdate) (models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.routes[id]
	if !ok {
		return models.Route{}, ErrRouteNotFound
	}
	r := old.Apply(u)
	if r.PickupZoneID == r.DropoffZoneID {
		return models.Route{}, ErrSameZones
	}
	if u.PickupZoneID != nil {
		if _, ok := s.zones[r.PickupZoneID]; !ok {
			return models.Route{}, &MissingZoneError{ID: r.PickupZoneID}
		}
	}
	if u.DropoffZoneID != nil {
		if _, ok := s.zones[r.DropoffZoneID]; !ok {
			return models.Route{}, &MissingZoneError{ID: r.DropoffZoneID}
		}
	}
	if err := r.Validate(); err != nil {
		return models.Route{}, errors.Wrap(ErrInvalid, err.Error())
	}
	s.unindex(old)
	s.routes[id] = r
	s.index(r)
	return r, nil
}

// DeleteRoute removes a route. Its id is never handed out again.
func (s *Store) DeleteRoute(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return ErrRouteNotFound
	}
	s.unindex(r)
	delete(s.routes, id)
	return nil
}

// FindRouteByPair returns the lowest-id route with the given pickup and
// dropoff zones.
func (s *Store) FindRouteByPair(pickup, dropoff int) (models.Route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPair[pair{pickup, dropoff}]
	if len(ids) == 0 {
		return models.Route{}, false
	}
	return s.routes[ids[0]], true
}

// ActivateRoute sets active=true on a route.
func (s *Store) ActivateRoute(id int) (models.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return models.Route{}, ErrRouteNotFound
	}
	r.Active = true
	s.routes[id] = r
	return r, nil
}

// Counts returns the number of zones and routes held.
func (s *Store) Counts() (zones, routes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.zones), len(s.routes)
}

func (s *Store) index(r models.Route) {
	k := pair{r.PickupZoneID, r.DropoffZoneID}
	ids := append(s.byPair[k], r.ID)
	sort.Ints(ids)
	s.byPair[k] = ids
}

func (s *Store) unindex(r models.Route) {
	k := pair{r.PickupZoneID, r.DropoffZoneID}
	ids := s.byPair[k]
	for i, id := range ids {
		if id == r.ID {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.byPair, k)
		return
	}
	s.byPair[k] = ids
}
