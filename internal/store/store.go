// Package store is the single owner of mutable taxi, order and assignment
// state. Every transition enforces the invariants of the data model; no
// other package is permitted to mutate Taxi.Status, Order.Status or the
// assignment maps directly.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bizhanchik/taxidispatch/internal/metrics"
	"github.com/bizhanchik/taxidispatch/model"
)

// ErrInvariant is returned when a requested transition would violate a
// state-model invariant (e.g. assigning a taxi that is already busy).
var ErrInvariant = errors.New("store: invariant violation")

// Snapshot is a consistent, independently-owned copy of the store's state,
// safe to serialize or iterate without holding any lock.
type Snapshot struct {
	Taxis       []*model.Taxi
	Orders      []*model.Order
	Assignments []*model.Assignment
}

// Store holds the canonical taxi/order/assignment state, guarded by a single
// mutex, mirroring the single-owner-over-shared-state pattern used for the
// engine's simulation loop.
type Store struct {
	mu sync.RWMutex

	taxis       map[string]*model.Taxi
	orders      map[string]*model.Order
	assignments map[string]*model.Assignment // keyed by order id

	orderSeq int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		taxis:       make(map[string]*model.Taxi),
		orders:      make(map[string]*model.Order),
		assignments: make(map[string]*model.Assignment),
	}
}

// SeedTaxis populates the fleet. Called once at startup before any other
// operation runs.
func (s *Store) SeedTaxis(taxis []*model.Taxi) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range taxis {
		s.taxis[t.ID] = t
	}
}

// NextOrderID returns the next monotonic order id, of the form "order_N".
func (s *Store) NextOrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("order_%d", s.orderSeq)
	s.orderSeq++
	return id
}

// AddOrder inserts a new pending order.
func (s *Store) AddOrder(o *model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	metrics.OrdersPending.Inc()
}

// PendingCount returns the number of orders with status Pending.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, o := range s.orders {
		if o.Status == model.OrderPending {
			n++
		}
	}
	return n
}

// CompletedCount returns the number of orders with status Completed.
func (s *Store) CompletedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, o := range s.orders {
		if o.Status == model.OrderCompleted {
			n++
		}
	}
	return n
}

// PruneCompleted deletes completed orders, oldest (lowest id) first, until
// at most retain remain.
func (s *Store) PruneCompleted(retain int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed []*model.Order
	for _, o := range s.orders {
		if o.Status == model.OrderCompleted {
			completed = append(completed, o)
		}
	}
	if len(completed) <= retain {
		return
	}
	// Ids share the "order_" prefix, so a shorter id carries the lower number.
	sort.Slice(completed, func(i, j int) bool {
		if len(completed[i].ID) != len(completed[j].ID) {
			return len(completed[i].ID) < len(completed[j].ID)
		}
		return completed[i].ID < completed[j].ID
	})
	for _, o := range completed[:len(completed)-retain] {
		delete(s.orders, o.ID)
	}
}

// FreeTaxis returns a snapshot of every taxi with status Free.
func (s *Store) FreeTaxis() []*model.Taxi {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Taxi
	for _, t := range s.taxis {
		if t.Status == model.TaxiFree {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingOrders returns a snapshot of every order with status Pending.
func (s *Store) PendingOrders() []*model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Order
	for _, o := range s.orders {
		if o.Status == model.OrderPending {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CommitAssignment transitions taxiID to Busy and orderID to Assigned, and
// records a bare assignment (routes attached later via AttachRoutes). It
// fails with ErrInvariant if either entity is missing or not in the expected
// state, or if either already has an assignment.
func (s *Store) CommitAssignment(taxiID, orderID string, algo model.Algorithm) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	taxi, ok := s.taxis[taxiID]
	if !ok || taxi.Status != model.TaxiFree {
		return fmt.Errorf("%w: taxi %s not free", ErrInvariant, taxiID)
	}
	order, ok := s.orders[orderID]
	if !ok || order.Status != model.OrderPending {
		return fmt.Errorf("%w: order %s not pending", ErrInvariant, orderID)
	}
	if _, exists := s.assignments[orderID]; exists {
		return fmt.Errorf("%w: order %s already assigned", ErrInvariant, orderID)
	}

	taxi.Status = model.TaxiBusy
	order.Status = model.OrderAssigned
	s.assignments[orderID] = &model.Assignment{
		TaxiID:        taxiID,
		OrderID:       orderID,
		AlgorithmUsed: algo,
	}
	metrics.TaxisBusy.Inc()
	metrics.OrdersPending.Dec()
	metrics.AssignmentsMadeTotal.Inc()
	return nil
}

// AttachRoutes records the two route legs for an already-committed
// assignment. Called after the routing client resolves both legs.
func (s *Store) AttachRoutes(orderID string, toPickup, toDropoff *model.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[orderID]
	if !ok {
		return fmt.Errorf("%w: no assignment for order %s", ErrInvariant, orderID)
	}
	a.ToPickupRoute = toPickup
	a.ToDropoffRoute = toDropoff
	return nil
}

// RollbackAssignment undoes a CommitAssignment that never reached
// AttachRoutes (the matcher calls it when AttachRoutes fails for the pair),
// restoring both entities to their prior states without affecting any other
// pair's commit.
func (s *Store) RollbackAssignment(taxiID, orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if taxi, ok := s.taxis[taxiID]; ok {
		taxi.Status = model.TaxiFree
	}
	if order, ok := s.orders[orderID]; ok {
		order.Status = model.OrderPending
	}
	delete(s.assignments, orderID)
	metrics.TaxisBusy.Dec()
	metrics.OrdersPending.Inc()
}

// CompleteAssignment is idempotent: if orderID has no assignment, it is a
// no-op. Otherwise the taxi snaps to the last point of the dropoff route,
// becomes free, the order completes, and the assignment is deleted.
func (s *Store) CompleteAssignment(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assignments[orderID]
	if !ok {
		return
	}
	if taxi, ok := s.taxis[a.TaxiID]; ok {
		if a.ToDropoffRoute != nil {
			taxi.Location = a.ToDropoffRoute.Last()
		}
		taxi.Status = model.TaxiFree
	}
	if order, ok := s.orders[orderID]; ok {
		order.Status = model.OrderCompleted
	}
	delete(s.assignments, orderID)
	metrics.TaxisBusy.Dec()
	metrics.OrdersCompletedTotal.Inc()
}

// ResetIdle deletes every order that is not completed (pending and
// assigned alike), clears all assignments and frees every taxi.
// Called when the subscriber registry transitions from non-empty to empty.
func (s *Store) ResetIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, o := range s.orders {
		if o.Status != model.OrderCompleted {
			delete(s.orders, id)
		}
	}
	s.assignments = make(map[string]*model.Assignment)
	for _, t := range s.taxis {
		t.Status = model.TaxiFree
	}
	metrics.TaxisBusy.Set(0)
	metrics.OrdersPending.Set(0)
}

// Snapshot returns a consistent, independently-owned copy of all state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Snapshot{
		Taxis:       make([]*model.Taxi, 0, len(s.taxis)),
		Orders:      make([]*model.Order, 0, len(s.orders)),
		Assignments: make([]*model.Assignment, 0, len(s.assignments)),
	}
	for _, t := range s.taxis {
		out.Taxis = append(out.Taxis, t.Clone())
	}
	for _, o := range s.orders {
		out.Orders = append(out.Orders, o.Clone())
	}
	for _, a := range s.assignments {
		out.Assignments = append(out.Assignments, a.Clone())
	}
	sort.Slice(out.Taxis, func(i, j int) bool { return out.Taxis[i].ID < out.Taxis[j].ID })
	sort.Slice(out.Orders, func(i, j int) bool { return out.Orders[i].ID < out.Orders[j].ID })
	sort.Slice(out.Assignments, func(i, j int) bool { return out.Assignments[i].OrderID < out.Assignments[j].OrderID })
	return out
}
