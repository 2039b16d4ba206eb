// Package routing fetches road-network routes from an external
// driving-directions provider, with retry, credential rotation, and a
// deterministic fallback so callers always get a Route.
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/bizhanchik/taxidispatch/internal/metrics"
	"github.com/bizhanchik/taxidispatch/model"
)

// ErrAllAttemptsFailed names an exhausted retry budget. GetRoute does not
// return it (or any error): on exhaustion it yields the fallback route.
var ErrAllAttemptsFailed = errors.New("routing: all attempts exhausted")

const fallbackSteps = 20 // 21 points
const fallbackDurationSeconds = 60

// Client calls the driving-directions provider.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	credentials []string
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger

	rng   *rand.Rand
	randMu chanMutex
}

// chanMutex is a tiny mutex built from a buffered channel; it guards the
// client's random source.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	c := make(chanMutex, 1)
	c <- struct{}{}
	return c
}

func (m chanMutex) lock()   { <-m }
func (m chanMutex) unlock() { m <- struct{}{} }

// New builds a routing Client. An empty credentials slice is replaced by a
// single placeholder credential.
func New(endpoint string, credentials []string, maxAttempts int, baseDelay, timeout time.Duration, logger *zap.Logger) *Client {
	if len(credentials) == 0 {
		credentials = []string{"cred-0"}
	}
	return &Client{
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: timeout},
		credentials: credentials,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		randMu:      newChanMutex(),
	}
}

type directionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// GetRoute fetches a route from start to end. It never returns an error: on
// exhaustion of the retry budget it returns the deterministic fallback route.
func (c *Client) GetRoute(ctx context.Context, start, end model.Location) *model.Route {
	credIdx := c.randomIndex()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = c.baseDelay * time.Duration(uint(1)<<uint(c.maxAttempts))
	bo.MaxElapsedTime = 0 // caller owns the attempt budget, not the backoff instance
	bo.Reset()

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		route, status, err := c.attempt(ctx, start, end, c.credentials[credIdx])
		if err == nil {
			return route
		}

		if status == http.StatusTooManyRequests && attempt >= c.maxAttempts-1 {
			credIdx = c.randomIndex()
		}

		metrics.RoutingRetryTotal.Inc()
		if c.logger != nil {
			c.logger.Warn("routing: attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("status", status),
				zap.Error(err),
			)
		}

		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			metrics.RoutingFallbackTotal.Inc()
			return fallbackRoute(start, end)
		}
	}

	metrics.RoutingFallbackTotal.Inc()
	if c.logger != nil {
		c.logger.Warn("routing: retry budget exhausted, using fallback route")
	}
	return fallbackRoute(start, end)
}

func (c *Client) attempt(ctx context.Context, start, end model.Location, credential string) (*model.Route, int, error) {
	body := directionsRequest{Coordinates: [][2]float64{
		{start.Lng, start.Lat},
		{end.Lng, end.Lat},
	}}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("routing: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("routing: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	q := req.URL.Query()
	q.Set("api_key", credential)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("routing: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("routing: unexpected status %d", resp.StatusCode)
	}

	var parsed directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("routing: decode response: %w", err)
	}
	if len(parsed.Features) == 0 || len(parsed.Features[0].Geometry.Coordinates) == 0 {
		return nil, resp.StatusCode, fmt.Errorf("routing: malformed response body")
	}

	feature := parsed.Features[0]
	path := make([]model.Location, 0, len(feature.Geometry.Coordinates))
	for _, pair := range feature.Geometry.Coordinates {
		path = append(path, model.Location{Lat: pair[1], Lng: pair[0]})
	}

	return &model.Route{Path: path, Duration: feature.Properties.Summary.Duration}, resp.StatusCode, nil
}

func (c *Client) randomIndex() int {
	c.randMu.lock()
	defer c.randMu.unlock()
	return c.rng.Intn(len(c.credentials))
}

// fallbackRoute produces a deterministic 21-point straight-line
// interpolation from start to end with a fixed 60s advisory duration.
func fallbackRoute(start, end model.Location) *model.Route {
	path := make([]model.Location, 0, fallbackSteps+1)
	for i := 0; i <= fallbackSteps; i++ {
		t := float64(i) / float64(fallbackSteps)
		path = append(path, model.Location{
			Lat: start.Lat + (end.Lat-start.Lat)*t,
			Lng: start.Lng + (end.Lng-start.Lng)*t,
		})
	}
	return &model.Route{Path: path, Duration: fallbackDurationSeconds}
}
