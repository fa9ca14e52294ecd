// Package sweepengine evicts workers whose heartbeats have gone silent.
package sweepengine

import (
	"context"
	"time"

	"gitlab.com/quantport.net/internal/config"
	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/services/registry"
)

type SweepEngine struct {
	controllerCfg *config.ControllerCfg
	registrySvc   registry.IRegistryService
	logger        primary.Logger
}

func NewSweepEngine(
	controllerCfg *config.ControllerCfg,
	registrySvc registry.IRegistryService,
	logger primary.Logger,
) *SweepEngine {
	return &SweepEngine{
		controllerCfg: controllerCfg,
		registrySvc:   registrySvc,
		logger:        logger,
	}
}

// StartStaleWorkerSweep runs the eviction loop until ctx is cancelled. A
// worker that has not heartbeated within the stale window loses its
// registration and its ports return to the pool.
func (s *SweepEngine) StartStaleWorkerSweep(ctx context.Context) {
	ticker := time.NewTicker(s.controllerCfg.SweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()
}

// SweepOnce runs a single eviction pass.
func (s *SweepEngine) SweepOnce(ctx context.Context) {
	removed, err := s.registrySvc.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("Failed to sweep stale workers", "error", err)
		return
	}
	for _, name := range removed {
		s.logger.Info("Evicted stale worker", "worker", name)
	}
}
