package board

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Refresher polls the orders backend on a fixed cadence and feeds each
// snapshot into the controller. The interval is injected so tests can
// drive refreshes deterministically.
type Refresher struct {
	controller *Controller
	interval   time.Duration
	logger     *log.Logger
}

func NewRefresher(controller *Controller, interval time.Duration, logger *log.Logger) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Refresher{controller: controller, interval: interval, logger: logger}
}

// Run refreshes immediately, then on every tick until the context ends.
// A failed refresh leaves the previous board in place and is logged; the
// next tick tries again.
func (r *Refresher) Run(ctx context.Context) {
	if err := r.controller.Refresh(ctx); err != nil {
		r.logger.WithError(err).Warn("initial board refresh failed")
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.controller.Refresh(ctx); err != nil {
				r.logger.WithError(err).Warn("board refresh failed")
			}
		}
	}
}
