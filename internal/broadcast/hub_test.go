package broadcast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhanchik/taxidispatch/internal/demand"
	"github.com/bizhanchik/taxidispatch/internal/dispatch"
	"github.com/bizhanchik/taxidispatch/internal/hexgrid"
	"github.com/bizhanchik/taxidispatch/internal/store"
	"github.com/bizhanchik/taxidispatch/model"
)

type nopRouter struct{}

func (nopRouter) GetRoute(ctx context.Context, start, end model.Location) *model.Route {
	return &model.Route{Path: []model.Location{start, end}, Duration: 1}
}

func newTestHub(t *testing.T) (*Hub, *store.Store) {
	center := model.Location{Lat: 51.111339, Lng: 71.415581}
	g, err := hexgrid.New(center, 7)
	require.NoError(t, err)
	agg := demand.New(g)
	st := store.New()
	m := dispatch.New(st, agg, nopRouter{}, nil)
	return New(st, agg, m, nil), st
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestSubscriberReceivesImmediateStateOnConnect(t *testing.T) {
	hub, st := newTestHub(t)
	st.SeedTaxis([]*model.Taxi{{ID: "taxi_0", Status: model.TaxiFree, Location: model.Location{Lat: 1, Lng: 2}}})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"state_update"`)
	assert.Contains(t, string(raw), "taxi_0")
}

func TestDisconnectRemovesSubscriberAndResetsIdle(t *testing.T) {
	hub, st := newTestHub(t)
	st.SeedTaxis([]*model.Taxi{{ID: "taxi_0", Status: model.TaxiFree}})
	st.AddOrder(&model.Order{ID: "order_0", Status: model.OrderPending})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dial(t, srv)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage() // drain the immediate snapshot
	require.NoError(t, err)

	conn.Close()

	// Give the server's read pump a moment to observe the close and unregister.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.Len())

	snap := st.Snapshot()
	assert.Empty(t, snap.Orders)
	for _, taxi := range snap.Taxis {
		assert.Equal(t, model.TaxiFree, taxi.Status)
	}
}

func TestBroadcastStateIsNoOpWithoutSubscribers(t *testing.T) {
	hub, _ := newTestHub(t)
	assert.NotPanics(t, func() { hub.BroadcastState() })
	assert.NotPanics(t, func() { hub.BroadcastDemand(7) })
}
