package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhanchik/taxidispatch/internal/broadcast"
	"github.com/bizhanchik/taxidispatch/internal/config"
	"github.com/bizhanchik/taxidispatch/internal/demand"
	"github.com/bizhanchik/taxidispatch/internal/dispatch"
	"github.com/bizhanchik/taxidispatch/internal/hexgrid"
	"github.com/bizhanchik/taxidispatch/internal/orders"
	"github.com/bizhanchik/taxidispatch/internal/store"
	"github.com/bizhanchik/taxidispatch/model"
)

type nopRouter struct{}

func (nopRouter) GetRoute(ctx context.Context, start, end model.Location) *model.Route {
	return &model.Route{Path: []model.Location{start, end}, Duration: 1}
}

func TestStartStopIsCooperativeAndReturnsPromptly(t *testing.T) {
	cfg := config.Default()
	cfg.GeneratorPeriodSeconds = 1
	cfg.MatcherPeriodSeconds = 1
	cfg.DemandPeriodSeconds = 1

	g, err := hexgrid.New(cfg.Center, cfg.H3Resolution)
	require.NoError(t, err)
	agg := demand.New(g)
	st := store.New()
	matcher := dispatch.New(st, agg, nopRouter{}, nil)
	hub := broadcast.New(st, agg, matcher, nil)
	gen := orders.New(st, cfg.Center, cfg.MaxPendingOrders, cfg.MaxCompletedOrders, nil)

	e := New(cfg, gen, matcher, hub, nil)
	e.Start()

	done := make(chan struct{})
	go func() {
		e.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return promptly")
	}
	assert.True(t, true)
}
