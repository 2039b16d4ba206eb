// Package config assembles the engine's runtime configuration from CLI flags,
// the way the teacher's main.go assembled its flags, swapping the standard
// library flag package for pflag.
package config

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bizhanchik/taxidispatch/model"
)

// Config holds every tunable named in the engine's external interface.
type Config struct {
	Addr string

	Center            model.Location
	MaxTaxis          int
	MaxPendingOrders  int
	MaxCompletedOrders int
	H3Resolution      int

	RoutingEndpoint  string
	RoutingTimeout   int // seconds
	RoutingBaseDelay int // seconds
	RoutingAttempts  int
	Credentials      []string

	GeneratorPeriodSeconds int
	MatcherPeriodSeconds   int
	DemandPeriodSeconds    int
}

// Default returns the configuration spelled out by the engine's external
// interface: center (51.111339, 71.415581), 10 taxis, 50 pending orders,
// 2 completed orders retained, H3 resolution 7, 5 rotating credentials.
func Default() Config {
	return Config{
		Addr: ":8080",

		Center:             model.Location{Lat: 51.111339, Lng: 71.415581},
		MaxTaxis:           10,
		MaxPendingOrders:   50,
		MaxCompletedOrders: 2,
		H3Resolution:       7,

		RoutingEndpoint:  "https://api.openrouteservice.org/v2/directions/driving-car/geojson",
		RoutingTimeout:   15,
		RoutingBaseDelay: 2,
		RoutingAttempts:  4,
		Credentials:      []string{"cred-0", "cred-1", "cred-2", "cred-3", "cred-4"},

		GeneratorPeriodSeconds: 3,
		MatcherPeriodSeconds:   5,
		DemandPeriodSeconds:    2,
	}
}

// ParseFlags parses args with a fresh FlagSet (never pflag.CommandLine)
// into a Config seeded with Default values.
func ParseFlags(args []string) (Config, error) {
	cfg := Default()

	fs := pflag.NewFlagSet("taxidispatchd", pflag.ContinueOnError)
	addr := fs.String("addr", cfg.Addr, "HTTP listen address")
	centerLat := fs.Float64("center-lat", cfg.Center.Lat, "operational area center latitude")
	centerLng := fs.Float64("center-lng", cfg.Center.Lng, "operational area center longitude")
	maxTaxis := fs.Int("max-taxis", cfg.MaxTaxis, "fleet size")
	maxPending := fs.Int("max-pending-orders", cfg.MaxPendingOrders, "pending order admission cap")
	maxCompleted := fs.Int("max-completed-orders", cfg.MaxCompletedOrders, "completed order retention bound")
	h3Res := fs.Int("h3-resolution", cfg.H3Resolution, "H3 cell resolution for demand aggregation")
	routingEndpoint := fs.String("routing-endpoint", cfg.RoutingEndpoint, "driving-directions provider endpoint")
	routingTimeout := fs.Int("routing-timeout-seconds", cfg.RoutingTimeout, "per-attempt routing request timeout")
	routingBaseDelay := fs.Int("routing-base-delay-seconds", cfg.RoutingBaseDelay, "base backoff delay between routing attempts")
	routingAttempts := fs.Int("routing-attempts", cfg.RoutingAttempts, "max routing attempts before falling back")
	credentials := fs.StringSlice("routing-credentials", cfg.Credentials, "rotating pool of routing provider credentials")
	genPeriod := fs.Int("generator-period-seconds", cfg.GeneratorPeriodSeconds, "order generator tick period")
	matchPeriod := fs.Int("matcher-period-seconds", cfg.MatcherPeriodSeconds, "matcher tick period")
	demandPeriod := fs.Int("demand-period-seconds", cfg.DemandPeriodSeconds, "demand broadcaster tick period")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	cfg.Addr = *addr
	cfg.Center = model.Location{Lat: *centerLat, Lng: *centerLng}
	cfg.MaxTaxis = *maxTaxis
	cfg.MaxPendingOrders = *maxPending
	cfg.MaxCompletedOrders = *maxCompleted
	cfg.H3Resolution = *h3Res
	cfg.RoutingEndpoint = *routingEndpoint
	cfg.RoutingTimeout = *routingTimeout
	cfg.RoutingBaseDelay = *routingBaseDelay
	cfg.RoutingAttempts = *routingAttempts
	cfg.Credentials = *credentials
	cfg.GeneratorPeriodSeconds = *genPeriod
	cfg.MatcherPeriodSeconds = *matchPeriod
	cfg.DemandPeriodSeconds = *demandPeriod

	return cfg, nil
}
