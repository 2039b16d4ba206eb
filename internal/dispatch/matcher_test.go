package dispatch

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhanchik/taxidispatch/internal/demand"
	"github.com/bizhanchik/taxidispatch/internal/hexgrid"
	"github.com/bizhanchik/taxidispatch/internal/store"
	"github.com/bizhanchik/taxidispatch/model"
)

type straightLineRouter struct{}

func (straightLineRouter) GetRoute(ctx context.Context, start, end model.Location) *model.Route {
	return &model.Route{Path: []model.Location{start, end}, Duration: 60}
}

var center = model.Location{Lat: 51.111339, Lng: 71.415581}

func newMatcher(t *testing.T) (*Matcher, *store.Store) {
	g, err := hexgrid.New(center, 7)
	require.NoError(t, err)
	agg := demand.New(g)
	st := store.New()
	return New(st, agg, straightLineRouter{}, nil), st
}

func TestAssignSinglePairProximity(t *testing.T) {
	m, st := newMatcher(t)
	m.SetMode(ModeProximity)

	st.SeedTaxis([]*model.Taxi{{ID: "taxi_0", Status: model.TaxiFree, Location: model.Location{Lat: 51.111, Lng: 71.416}}})
	st.AddOrder(&model.Order{ID: "order_0", Status: model.OrderPending, Pickup: model.Location{Lat: 51.120, Lng: 71.420}, Dropoff: model.Location{Lat: 51.130, Lng: 71.430}})

	out := m.Assign(context.Background())
	require.Len(t, out, 1)
	assert.Equal(t, "taxi_0", out[0].TaxiID)
	assert.Equal(t, "order_0", out[0].OrderID)
	assert.Equal(t, model.AlgorithmProximity, out[0].AlgorithmUsed)

	m.Complete("order_0")
	snap := st.Snapshot()
	for _, taxi := range snap.Taxis {
		assert.Equal(t, model.TaxiFree, taxi.Status)
		assert.Equal(t, model.Location{Lat: 51.130, Lng: 71.430}, taxi.Location)
	}
}

func TestAssignEmptyCandidatesReturnsNilAndMutatesNothing(t *testing.T) {
	m, st := newMatcher(t)
	out := m.Assign(context.Background())
	assert.Nil(t, out)

	st.SeedTaxis([]*model.Taxi{{ID: "taxi_0", Status: model.TaxiFree, Location: center}})
	out = m.Assign(context.Background())
	assert.Nil(t, out) // no pending orders yet

	snap := st.Snapshot()
	assert.Empty(t, snap.Assignments)
	require.Len(t, snap.Taxis, 1)
	assert.Equal(t, model.TaxiFree, snap.Taxis[0].Status)
}

func TestAssignTwoByTwoMinimizesTotalDistance(t *testing.T) {
	m, st := newMatcher(t)
	m.SetMode(ModeProximity)

	st.SeedTaxis([]*model.Taxi{
		{ID: "taxi_near", Status: model.TaxiFree, Location: model.Location{Lat: 51.15, Lng: 71.40}},
		{ID: "taxi_far", Status: model.TaxiFree, Location: model.Location{Lat: 51.07, Lng: 71.43}},
	})
	st.AddOrder(&model.Order{ID: "order_a", Status: model.OrderPending, Pickup: model.Location{Lat: 51.15, Lng: 71.40}})
	st.AddOrder(&model.Order{ID: "order_b", Status: model.OrderPending, Pickup: model.Location{Lat: 51.07, Lng: 71.43}})

	out := m.Assign(context.Background())
	require.Len(t, out, 2)

	byTaxi := map[string]string{}
	for _, a := range out {
		byTaxi[a.TaxiID] = a.OrderID
	}
	assert.Equal(t, "order_a", byTaxi["taxi_near"])
	assert.Equal(t, "order_b", byTaxi["taxi_far"])
}

func TestResolveModeDefaultsToProximity(t *testing.T) {
	assert.Equal(t, ModeProximity, ResolveMode(false, false))
	assert.Equal(t, ModeProximity, ResolveMode(true, false))
	assert.Equal(t, ModeDemand, ResolveMode(false, true))
	assert.Equal(t, ModeHybrid, ResolveMode(true, true))
}

func TestDemandOnlyModePrefersUnmetDemandCell(t *testing.T) {
	costUnmet := demandOnlyCost(math.Inf(1))
	costNormal := demandOnlyCost(1.0)
	assert.Less(t, costUnmet, costNormal)
}
