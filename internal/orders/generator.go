// Package orders implements the periodic synthetic order generator: pickup
// and dropoff sampling around a configured center, admission control, and
// completed-order retention pruning.
package orders

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/bizhanchik/taxidispatch/internal/store"
	"github.com/bizhanchik/taxidispatch/model"
)

const sampleHalfWidthDeg = 0.035

// Generator produces one order per Tick call, subject to admission control.
type Generator struct {
	store              *store.Store
	center             model.Location
	maxPendingOrders   int
	maxCompletedOrders int
	logger             *zap.Logger
	rng                *rand.Rand
}

// New returns a Generator bound to store around center.
func New(st *store.Store, center model.Location, maxPendingOrders, maxCompletedOrders int, logger *zap.Logger) *Generator {
	return &Generator{
		store:              st,
		center:             center,
		maxPendingOrders:   maxPendingOrders,
		maxCompletedOrders: maxCompletedOrders,
		logger:             logger,
		rng:                rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Tick attempts to create one order. If the pending admission cap has been
// reached, it logs and skips. On success it also prunes completed orders
// down to the retention bound.
func (g *Generator) Tick() {
	if g.store.PendingCount() >= g.maxPendingOrders {
		if g.logger != nil {
			g.logger.Warn("orders: admission cap reached, skipping tick", zap.Int("cap", g.maxPendingOrders))
		}
		return
	}

	pickup := jitter(g.center, sampleHalfWidthDeg, g.rng)
	dropoff := jitter(pickup, sampleHalfWidthDeg, g.rng)

	order := &model.Order{
		ID:      g.store.NextOrderID(),
		Pickup:  pickup,
		Dropoff: dropoff,
		Status:  model.OrderPending,
	}
	g.store.AddOrder(order)
	g.store.PruneCompleted(g.maxCompletedOrders)
}

// jitter samples a point uniformly in a square of half-width deg around c,
// matching (rand()-0.5)*2*deg from the reference engine.
func jitter(c model.Location, deg float64, rng *rand.Rand) model.Location {
	return model.Location{
		Lat: c.Lat + (rng.Float64()-0.5)*2*deg,
		Lng: c.Lng + (rng.Float64()-0.5)*2*deg,
	}
}
