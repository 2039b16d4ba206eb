package model

// DemandLevel is the human-facing label derived from a Hexagon's demand ratio.
type DemandLevel string

const (
	DemandNone       DemandLevel = "None"
	DemandSupplyOnly DemandLevel = "Supply Only"
	DemandUnmet      DemandLevel = "High Unmet Demand"
	DemandLow        DemandLevel = "Low"
	DemandModerate   DemandLevel = "Moderate"
	DemandHigh       DemandLevel = "High"
	DemandVeryHigh   DemandLevel = "Very High"
)

// Hexagon is one cell of the fixed H3 tiling used for demand/supply
// aggregation. Cell identity, Center and Boundary are fixed at startup;
// OrdersCount, TaxisCount and the derived fields are recomputed every tick
// by the demand aggregator, which is the sole owner of this struct's values.
type Hexagon struct {
	HexID       string      `json:"hex_id"`
	Center      Location    `json:"center"`
	Boundary    []Location  `json:"boundary"`
	OrdersCount int         `json:"orders_count"`
	TaxisCount  int         `json:"taxis_count"`
	Ratio       float64     `json:"-"`
	Color       string      `json:"color"`
	Level       DemandLevel `json:"demand_level"`
}
