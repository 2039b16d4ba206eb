package model

import (
	"math/rand"
	"strconv"
)

// SeedTaxis places n taxis at random positions inside a square of
// half-width 0.035 degrees around center, with stable "taxi_N" ids.
func SeedTaxis(center Location, n int, rng *rand.Rand) []*Taxi {
	out := make([]*Taxi, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &Taxi{
			ID:     "taxi_" + strconv.Itoa(i),
			Status: TaxiFree,
			Location: Location{
				Lat: center.Lat + (rng.Float64()-0.5)*0.07,
				Lng: center.Lng + (rng.Float64()-0.5)*0.07,
			},
		})
	}
	return out
}
