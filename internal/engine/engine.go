// Package engine runs the three periodic tasks (order generation, matching,
// demand broadcast) that drive the live dispatch loop, with cooperative
// cancellation modeled on the teacher's runner's stop-channel-plus-WaitGroup
// shutdown idiom.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bizhanchik/taxidispatch/internal/broadcast"
	"github.com/bizhanchik/taxidispatch/internal/config"
	"github.com/bizhanchik/taxidispatch/internal/dispatch"
	"github.com/bizhanchik/taxidispatch/internal/orders"
)

// Engine supervises the generator, matcher and demand broadcaster tasks.
type Engine struct {
	cfg       config.Config
	generator *orders.Generator
	matcher   *dispatch.Matcher
	hub       *broadcast.Hub
	logger    *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New returns an Engine wired to the already-constructed components.
func New(cfg config.Config, gen *orders.Generator, matcher *dispatch.Matcher, hub *broadcast.Hub, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		generator: gen,
		matcher:   matcher,
		hub:       hub,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the three periodic tasks as background goroutines.
func (e *Engine) Start() {
	e.wg.Add(3)
	go e.runGenerator()
	go e.runMatcher()
	go e.runDemandBroadcaster()
}

// Stop signals cooperative cancellation and blocks until every task has
// finished its current tick and exited.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

func (e *Engine) runGenerator() {
	defer e.wg.Done()
	ticker := time.NewTicker(time.Duration(e.cfg.GeneratorPeriodSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if e.hub.Len() == 0 {
				continue
			}
			e.generator.Tick()
			e.hub.BroadcastState()
		}
	}
}

func (e *Engine) runMatcher() {
	defer e.wg.Done()
	ticker := time.NewTicker(time.Duration(e.cfg.MatcherPeriodSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if e.hub.Len() == 0 {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(e.cfg.RoutingTimeout)*time.Second*time.Duration(e.cfg.RoutingAttempts+1))
			assignments := e.matcher.Assign(ctx)
			cancel()
			if len(assignments) > 0 {
				if e.logger != nil {
					e.logger.Info("engine: matcher tick produced assignments", zap.Int("count", len(assignments)))
				}
				e.hub.BroadcastState()
			}
		}
	}
}

func (e *Engine) runDemandBroadcaster() {
	defer e.wg.Done()
	ticker := time.NewTicker(time.Duration(e.cfg.DemandPeriodSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if e.hub.Len() == 0 {
				continue
			}
			e.hub.BroadcastDemand(e.cfg.H3Resolution)
		}
	}
}
