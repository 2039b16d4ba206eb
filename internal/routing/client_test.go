package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizhanchik/taxidispatch/model"
)

func TestGetRouteRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 4 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[[71.415,51.111],[71.420,51.120]]},"properties":{"summary":{"duration":42}}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, []string{"a", "b", "c", "d", "e"}, 5, 10*time.Millisecond, time.Second, nil)
	start := time.Now()
	route := c.GetRoute(context.Background(), model.Location{Lat: 51.111, Lng: 71.415}, model.Location{Lat: 51.120, Lng: 71.420})
	elapsed := time.Since(start)

	require.NotNil(t, route)
	assert.Equal(t, float64(42), route.Duration)
	require.Len(t, route.Path, 2)
	assert.InDelta(t, 51.111, route.Path[0].Lat, 1e-6)
	assert.InDelta(t, 71.415, route.Path[0].Lng, 1e-6)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestGetRouteExhaustsToFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, []string{"a"}, 4, time.Millisecond, time.Second, nil)
	start := model.Location{Lat: 51.1, Lng: 71.4}
	end := model.Location{Lat: 51.2, Lng: 71.5}
	route := c.GetRoute(context.Background(), start, end)

	require.NotNil(t, route)
	assert.Len(t, route.Path, 21)
	assert.Equal(t, float64(60), route.Duration)
	assert.Equal(t, start, route.Path[0])
	assert.Equal(t, end, route.Path[len(route.Path)-1])
}

func TestFallbackRouteIsDeterministic(t *testing.T) {
	start := model.Location{Lat: 0, Lng: 0}
	end := model.Location{Lat: 1, Lng: 2}
	r1 := fallbackRoute(start, end)
	r2 := fallbackRoute(start, end)
	assert.Equal(t, r1, r2)
	assert.Len(t, r1.Path, 21)
}
