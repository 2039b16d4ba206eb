// Package hexgrid builds the fixed H3 tiling that demand aggregation counts
// against: a regular lat/lng sample grid over the operational bounding box,
// reduced to the unique set of H3 cells the samples land in.
package hexgrid

import (
	"fmt"

	"github.com/bizhanchik/taxidispatch/internal/geo"
	"github.com/bizhanchik/taxidispatch/model"
)

const (
	areaRadiusDeg = 0.10
	latSteps      = 20
	lngSteps      = 25
)

// Grid is the immutable set of hexagons sampled at startup.
type Grid struct {
	Resolution int
	byID       map[string]*model.Hexagon
	ordered    []*model.Hexagon
}

// New samples a latSteps x lngSteps grid over a square of half-width
// areaRadiusDeg centered on center, inserts the H3 cell of each sample, and
// precomputes center/boundary for every unique cell.
func New(center model.Location, resolution int) (*Grid, error) {
	g := &Grid{
		Resolution: resolution,
		byID:       make(map[string]*model.Hexagon),
	}

	latMin := center.Lat - areaRadiusDeg
	latMax := center.Lat + areaRadiusDeg
	lngMin := center.Lng - areaRadiusDeg
	lngMax := center.Lng + areaRadiusDeg

	for i := 0; i < latSteps; i++ {
		lat := latMin + (latMax-latMin)*float64(i)/float64(latSteps-1)
		for j := 0; j < lngSteps; j++ {
			lng := lngMin + (lngMax-lngMin)*float64(j)/float64(lngSteps-1)

			cell, err := geo.CellOf(model.Location{Lat: lat, Lng: lng}, resolution)
			if err != nil {
				return nil, fmt.Errorf("hexgrid: sample cell: %w", err)
			}
			hexID := cell.String()
			if _, exists := g.byID[hexID]; exists {
				continue
			}

			center, err := geo.CellCenter(cell)
			if err != nil {
				return nil, fmt.Errorf("hexgrid: cell center: %w", err)
			}
			boundary, err := geo.CellBoundary(cell)
			if err != nil {
				return nil, fmt.Errorf("hexgrid: cell boundary: %w", err)
			}

			hex := &model.Hexagon{
				HexID:    hexID,
				Center:   center,
				Boundary: boundary,
				Color:    "#F0F0F0",
				Level:    model.DemandNone,
			}
			g.byID[hexID] = hex
			g.ordered = append(g.ordered, hex)
		}
	}

	return g, nil
}

// Lookup returns the hexagon containing loc, or nil if loc falls outside
// every sampled cell.
func (g *Grid) Lookup(loc model.Location) *model.Hexagon {
	cell, err := geo.CellOf(loc, g.Resolution)
	if err != nil {
		return nil
	}
	return g.byID[cell.String()]
}

// All returns every hexagon in the tiling, in stable insertion order.
func (g *Grid) All() []*model.Hexagon {
	return g.ordered
}

// Len returns the number of distinct cells in the tiling.
func (g *Grid) Len() int {
	return len(g.ordered)
}
