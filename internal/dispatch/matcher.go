// Package dispatch builds the taxi<->order cost matrix, solves the
// minimum-cost bipartite assignment, and commits the resulting pairs
// through the state store, attaching routes via the routing client.
package dispatch

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/bizhanchik/taxidispatch/internal/demand"
	"github.com/bizhanchik/taxidispatch/internal/geo"
	"github.com/bizhanchik/taxidispatch/internal/store"
	"github.com/bizhanchik/taxidispatch/model"
)

const epsilon = 1e-6

// Mode selects which cost function the matcher uses.
type Mode int

const (
	ModeProximity Mode = iota
	ModeDemand
	ModeHybrid
)

// ResolveMode reproduces the original two-boolean wire encoding: both false
// maps to proximity, exactly as get_current_algorithm_name resolves it.
func ResolveMode(proximity, supplyDemand bool) Mode {
	switch {
	case !proximity && supplyDemand:
		return ModeDemand
	case proximity && supplyDemand:
		return ModeHybrid
	default:
		return ModeProximity
	}
}

// Algorithm returns the wire name for a Mode.
func (m Mode) Algorithm() model.Algorithm {
	switch m {
	case ModeDemand:
		return model.AlgorithmDemand
	case ModeHybrid:
		return model.AlgorithmHybrid
	default:
		return model.AlgorithmProximity
	}
}

func (m Mode) String() string {
	return string(m.Algorithm())
}

// RouteGetter is the seam the matcher uses to fetch routes; satisfied by
// *routing.Client.
type RouteGetter interface {
	GetRoute(ctx context.Context, start, end model.Location) *model.Route
}

// Matcher runs one tick of the assignment loop.
type Matcher struct {
	store   *store.Store
	demand  *demand.Aggregator
	routing RouteGetter
	logger  *zap.Logger

	mu   sync.Mutex
	mode Mode
}

// New returns a Matcher defaulting to hybrid mode, matching the original
// engine's default algorithm_config.
func New(st *store.Store, agg *demand.Aggregator, router RouteGetter, logger *zap.Logger) *Matcher {
	return &Matcher{store: st, demand: agg, routing: router, logger: logger, mode: ModeHybrid}
}

// SetMode updates the active cost mode.
func (m *Matcher) SetMode(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
	if m.logger != nil {
		m.logger.Info("dispatch: algorithm config updated", zap.String("mode", mode.String()))
	}
}

func (m *Matcher) currentMode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Assign runs one matching tick: builds the cost matrix over free taxis and
// pending orders, solves the assignment, commits kept pairs through the
// store, and attaches routes. Returns the assignments created this tick.
func (m *Matcher) Assign(ctx context.Context) []*model.Assignment {
	mode := m.currentMode()

	free := m.store.FreeTaxis()
	pending := m.store.PendingOrders()
	if len(free) == 0 || len(pending) == 0 {
		return nil
	}

	if mode == ModeDemand || mode == ModeHybrid {
		m.demand.Recount(snapshotFor(free, pending))
	}

	cost := make([][]float64, len(free))
	for i, taxi := range free {
		row := make([]float64, len(pending))
		for j, order := range pending {
			row[j] = m.costOf(mode, taxi, order)
		}
		cost[i] = row
	}

	square, _ := padSquare(cost)
	rowToCol := solveAssignment(square)

	type pair struct {
		taxi  *model.Taxi
		order *model.Order
	}
	var pairs []pair
	for i := 0; i < len(free); i++ {
		j := rowToCol[i]
		if j < 0 || j >= len(pending) {
			continue
		}
		pairs = append(pairs, pair{taxi: free[i], order: pending[j]})
	}

	var out []*model.Assignment
	for _, p := range pairs {
		if err := m.store.CommitAssignment(p.taxi.ID, p.order.ID, mode.Algorithm()); err != nil {
			if m.logger != nil {
				m.logger.Error("dispatch: commit failed, skipping pair", zap.Error(err))
			}
			continue
		}

		toPickup, toDropoff := m.fetchRoutes(ctx, p.taxi, p.order)
		if err := m.store.AttachRoutes(p.order.ID, toPickup, toDropoff); err != nil {
			if m.logger != nil {
				m.logger.Error("dispatch: attach routes failed", zap.Error(err))
			}
			m.store.RollbackAssignment(p.taxi.ID, p.order.ID)
			continue
		}

		out = append(out, &model.Assignment{
			TaxiID:         p.taxi.ID,
			OrderID:        p.order.ID,
			ToPickupRoute:  toPickup,
			ToDropoffRoute: toDropoff,
			AlgorithmUsed:  mode.Algorithm(),
		})
	}
	return out
}

// fetchRoutes issues the two route legs for a pair. The two calls run
// concurrently with each other, but pairs themselves are processed
// sequentially by Assign's loop, per the ordering requirement that state
// transitions are not reordered across pairs.
func (m *Matcher) fetchRoutes(ctx context.Context, taxi *model.Taxi, order *model.Order) (*model.Route, *model.Route) {
	var toPickup, toDropoff *model.Route
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		toPickup = m.routing.GetRoute(ctx, taxi.Location, order.Pickup)
	}()
	go func() {
		defer wg.Done()
		toDropoff = m.routing.GetRoute(ctx, order.Pickup, order.Dropoff)
	}()
	wg.Wait()
	return toPickup, toDropoff
}

// Complete applies complete_assignment semantics: idempotent, a no-op on
// an unknown order id.
func (m *Matcher) Complete(orderID string) {
	m.store.CompleteAssignment(orderID)
}

func (m *Matcher) costOf(mode Mode, taxi *model.Taxi, order *model.Order) float64 {
	switch mode {
	case ModeProximity:
		return geo.Distance(taxi.Location, order.Pickup)
	case ModeDemand:
		ratio, found := m.demand.RatioOf(order.Pickup)
		if !found {
			ratio = 1.0
		}
		return demandOnlyCost(ratio)
	default: // ModeHybrid
		d := geo.Distance(taxi.Location, order.Pickup)
		ratio, found := m.demand.RatioOf(order.Pickup)
		if !found {
			ratio = 1.0
		}
		weight := demandWeight(ratio)
		return 0.6*d + 0.4*d*(1-weight)
	}
}

// demandOnlyCost mirrors assign_taxis_demand_only: an unmet-demand cell
// (ratio = +inf) saturates to a near-zero cost so it dominates; an empty
// cell (ratio 0) costs 1.0; otherwise cost is the inverse ratio.
func demandOnlyCost(ratio float64) float64 {
	switch {
	case math.IsInf(ratio, 1):
		return 0.1
	case ratio == 0:
		return 1.0
	default:
		return 1.0 / (ratio + epsilon)
	}
}

// demandWeight mirrors assign_taxis_hybrid's weight term: treating ratio as
// +inf collapses the weight toward zero, which makes unmet-demand cells
// *expensive* in hybrid mode — preserved faithfully even though it is the
// opposite of demand-only mode's intent.
func demandWeight(ratio float64) float64 {
	w := 1.0 / (ratio + epsilon)
	if w > 1.0 {
		w = 1.0
	}
	return w
}

// snapshotFor builds a minimal store.Snapshot view from already-fetched free
// taxis and pending orders, so Assign can recount demand against exactly
// the candidate set it is about to cost, without taking a second full store
// snapshot.
func snapshotFor(free []*model.Taxi, pending []*model.Order) store.Snapshot {
	return store.Snapshot{Taxis: free, Orders: pending}
}
