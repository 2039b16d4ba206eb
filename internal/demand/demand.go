// Package demand recomputes per-hexagon supply/demand counts and derived
// labels from a state store snapshot, the way the teacher's sim package
// derives small, pure, clamped metrics from raw counts each tick.
package demand

import (
	"math"

	"github.com/bizhanchik/taxidispatch/internal/hexgrid"
	"github.com/bizhanchik/taxidispatch/internal/store"
	"github.com/bizhanchik/taxidispatch/model"
)

// Aggregator owns the demand hexagons and recomputes them against the fixed
// tiling supplied at construction. It never mutates the state store.
type Aggregator struct {
	grid *hexgrid.Grid
}

// New returns an Aggregator bound to grid.
func New(grid *hexgrid.Grid) *Aggregator {
	return &Aggregator{grid: grid}
}

// Recount zeroes every cell's counts, then does a single pass incrementing
// OrdersCount for each pending order's pickup cell and TaxisCount for each
// free taxi's location cell. Orders/taxis that fall outside the tiling are
// silently skipped (they remain in the store, just unaggregated). Recount
// is idempotent: calling it twice with no intervening store mutation
// produces identical output.
func (a *Aggregator) Recount(snap store.Snapshot) {
	for _, hex := range a.grid.All() {
		hex.OrdersCount = 0
		hex.TaxisCount = 0
	}

	for _, o := range snap.Orders {
		if o.Status != model.OrderPending {
			continue
		}
		if hex := a.grid.Lookup(o.Pickup); hex != nil {
			hex.OrdersCount++
		}
	}
	for _, t := range snap.Taxis {
		if t.Status != model.TaxiFree {
			continue
		}
		if hex := a.grid.Lookup(t.Location); hex != nil {
			hex.TaxisCount++
		}
	}

	for _, hex := range a.grid.All() {
		hex.Ratio, hex.Color, hex.Level = deriveLabel(hex.OrdersCount, hex.TaxisCount)
	}
}

// All returns every hexagon after the most recent Recount.
func (a *Aggregator) All() []*model.Hexagon {
	return a.grid.All()
}

// RatioOf returns the demand ratio of the hex cell containing loc, and
// whether loc falls inside the tiling at all.
func (a *Aggregator) RatioOf(loc model.Location) (ratio float64, found bool) {
	hex := a.grid.Lookup(loc)
	if hex == nil {
		return 0, false
	}
	return hex.Ratio, true
}

// deriveLabel computes the ratio/color/level triad for a cell's counts.
func deriveLabel(orders, taxis int) (ratio float64, color string, level model.DemandLevel) {
	switch {
	case orders == 0 && taxis == 0:
		return 0, "#F0F0F0", model.DemandNone
	case orders == 0 && taxis > 0:
		return 0, "#90EE90", model.DemandSupplyOnly
	case taxis == 0 && orders > 0:
		return math.Inf(1), "#FF4500", model.DemandUnmet
	default:
		r := float64(orders) / float64(taxis)
		return r, colorForRatio(r), levelForRatio(r)
	}
}

func colorForRatio(r float64) string {
	switch {
	case r < 0.5:
		return "#90EE90"
	case r < 1.0:
		return "#FFD700"
	case r < 2.0:
		return "#FFA500"
	default:
		return "#FF4500"
	}
}

func levelForRatio(r float64) model.DemandLevel {
	switch {
	case r < 0.5:
		return model.DemandLow
	case r < 1.0:
		return model.DemandModerate
	case r < 2.0:
		return model.DemandHigh
	default:
		return model.DemandVeryHigh
	}
}
