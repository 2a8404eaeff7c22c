package hub

import (
	"context"
	"time"
)

// startTickers launches the three periodic producers. Each posts a tick
// command into the same channel the client commands flow through, so tick
// mutations and client mutations keep one total order. The tickers are
// independent and never synchronized with each other.
func (h *Hub) startTickers(ctx context.Context) {
	h.startTicker(ctx, h.eventInterval, cmdEventTick)
	h.startTicker(ctx, h.statsInterval, cmdStatisticsTick)
	h.startTicker(ctx, h.trafficIntvl, cmdMetricsTick)
}

func (h *Hub) startTicker(ctx context.Context, period time.Duration, kind commandKind) {
	if period <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				select {
				case h.commands <- command{kind: kind}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
