// Package model holds the plain data types shared across the dispatch engine.
package model

// Location is a WGS84 decimal-degree point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
