package broadcast

import (
	"math"

	"github.com/bizhanchik/taxidispatch/internal/store"
	"github.com/bizhanchik/taxidispatch/model"
)

type locationWire struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func wireLocation(l model.Location) locationWire {
	return locationWire{Lat: l.Lat, Lng: l.Lng}
}

type routeWire struct {
	Path     []locationWire `json:"path"`
	Duration float64        `json:"duration"`
}

func wireRoute(r *model.Route) *routeWire {
	if r == nil {
		return nil
	}
	path := make([]locationWire, 0, len(r.Path))
	for _, p := range r.Path {
		path = append(path, wireLocation(p))
	}
	return &routeWire{Path: path, Duration: r.Duration}
}

type taxiWire struct {
	ID       string       `json:"id"`
	Location locationWire `json:"location"`
	Status   string       `json:"status"`
}

type orderWire struct {
	ID      string       `json:"id"`
	Pickup  locationWire `json:"pickup"`
	Dropoff locationWire `json:"dropoff"`
	Status  string       `json:"status"`
}

type assignmentWire struct {
	TaxiID         string     `json:"taxi_id"`
	OrderID        string     `json:"order_id"`
	ToPickupRoute  *routeWire `json:"to_pickup_route"`
	ToDropoffRoute *routeWire `json:"to_dropoff_route"`
	AlgorithmUsed  string     `json:"algorithm_used"`
}

// stateUpdateMessage is the server->client snapshot message.
type stateUpdateMessage struct {
	Type        string           `json:"type"`
	Taxis       []taxiWire       `json:"taxis"`
	Orders      []orderWire      `json:"orders"`
	Assignments []assignmentWire `json:"assignments"`
}

func newStateUpdate(snap store.Snapshot) stateUpdateMessage {
	msg := stateUpdateMessage{Type: "state_update"}
	for _, t := range snap.Taxis {
		msg.Taxis = append(msg.Taxis, taxiWire{ID: t.ID, Location: wireLocation(t.Location), Status: string(t.Status)})
	}
	for _, o := range snap.Orders {
		msg.Orders = append(msg.Orders, orderWire{ID: o.ID, Pickup: wireLocation(o.Pickup), Dropoff: wireLocation(o.Dropoff), Status: string(o.Status)})
	}
	for _, a := range snap.Assignments {
		msg.Assignments = append(msg.Assignments, assignmentWire{
			TaxiID:         a.TaxiID,
			OrderID:        a.OrderID,
			ToPickupRoute:  wireRoute(a.ToPickupRoute),
			ToDropoffRoute: wireRoute(a.ToDropoffRoute),
			AlgorithmUsed:  string(a.AlgorithmUsed),
		})
	}
	return msg
}

type hexagonWire struct {
	HexID       string         `json:"hex_id"`
	Center      locationWire   `json:"center"`
	Boundary    []locationWire `json:"boundary"`
	OrdersCount int            `json:"orders_count"`
	TaxisCount  int            `json:"taxis_count"`
	DemandRatio float64        `json:"demand_ratio"`
	Color       string         `json:"color"`
	DemandLevel string         `json:"demand_level"`
}

// demandUpdateMessage is the server->client hex-grid message.
type demandUpdateMessage struct {
	Type           string        `json:"type"`
	Hexagons       []hexagonWire `json:"hexagons"`
	TotalHexagons  int           `json:"total_hexagons"`
	ActiveHexagons int           `json:"active_hexagons"`
	H3Resolution   int           `json:"h3_resolution"`
}

func newDemandUpdate(hexagons []*model.Hexagon, resolution int) demandUpdateMessage {
	msg := demandUpdateMessage{Type: "demand_update", TotalHexagons: len(hexagons), H3Resolution: resolution}
	for _, h := range hexagons {
		ratio := h.Ratio
		if math.IsInf(ratio, 1) { // serialize +inf as -1, per the wire contract
			ratio = -1
		}
		boundary := make([]locationWire, 0, len(h.Boundary))
		for _, b := range h.Boundary {
			boundary = append(boundary, wireLocation(b))
		}
		msg.Hexagons = append(msg.Hexagons, hexagonWire{
			HexID:       h.HexID,
			Center:      wireLocation(h.Center),
			Boundary:    boundary,
			OrdersCount: h.OrdersCount,
			TaxisCount:  h.TaxisCount,
			DemandRatio: ratio,
			Color:       h.Color,
			DemandLevel: string(h.Level),
		})
	}
	msg.ActiveHexagons = len(msg.Hexagons)
	return msg
}

// inboundMessage is the envelope client->server messages are decoded into.
type inboundMessage struct {
	Type         string `json:"type"`
	OrderID      string `json:"order_id"`
	Proximity    *bool  `json:"proximity"`
	SupplyDemand *bool  `json:"supply_demand"`
}
