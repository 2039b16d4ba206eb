// Package geo provides the haversine distance and H3 cell primitives used
// throughout the dispatch engine.
package geo

import (
	"math"

	"github.com/uber/h3-go/v4"

	"github.com/bizhanchik/taxidispatch/model"
)

// earthRadiusKM matches the value used by the routing source this engine was
// modeled on; it deliberately differs from the more precise WGS84 mean radius
// used elsewhere in this codebase's ancestry.
const earthRadiusKM = 6371.0

// Distance returns the great-circle distance between two points in km.
func Distance(a, b model.Location) float64 {
	lat1, lng1 := toRadians(a.Lat), toRadians(a.Lng)
	lat2, lng2 := toRadians(b.Lat), toRadians(b.Lng)

	dLat := lat2 - lat1
	dLng := lng2 - lng1

	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)
	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLng*sinDLng
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKM * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// CellOf returns the H3 cell id containing loc at the given resolution.
func CellOf(loc model.Location, resolution int) (h3.Cell, error) {
	return h3.LatLngToCell(h3.LatLng{Lat: loc.Lat, Lng: loc.Lng}, resolution)
}

// CellCenter returns the centroid of an H3 cell.
func CellCenter(cell h3.Cell) (model.Location, error) {
	ll, err := cell.LatLng()
	if err != nil {
		return model.Location{}, err
	}
	return model.Location{Lat: ll.Lat, Lng: ll.Lng}, nil
}

// CellBoundary returns the polygon boundary of an H3 cell.
func CellBoundary(cell h3.Cell) ([]model.Location, error) {
	boundary, err := cell.Boundary()
	if err != nil {
		return nil, err
	}
	out := make([]model.Location, 0, len(boundary))
	for _, ll := range boundary {
		out = append(out, model.Location{Lat: ll.Lat, Lng: ll.Lng})
	}
	return out, nil
}
