package deposit

import (
	"context"
	"time"

	"courtly/pkg/logger"
)

// Watch describes the booking a Watcher re-evaluates.
type Watch struct {
	BookingID     int64
	SlotStart     time.Time
	PaymentMethod string
	CourtFee      int64
}

// Watcher re-evaluates a deposit decision on a fixed interval, since the
// requirement lapses once the slot start enters the cancellation window.
type Watcher struct {
	policy   *Policy
	interval time.Duration
	now      func() time.Time
}

func NewWatcher(policy *Policy) *Watcher {
	interval := policy.cfg.RefreshInterval
	if interval <= 0 {
		interval = DefaultConfig().RefreshInterval
	}
	return &Watcher{
		policy:   policy,
		interval: interval,
		now:      time.Now,
	}
}

// Run emits a decision immediately and then once per interval. It stops and
// closes the channel when ctx ends or after the first decision at or past
// the slot start.
func (w *Watcher) Run(ctx context.Context, watch Watch) <-chan Decision {
	out := make(chan Decision, 1)
	go w.loop(ctx, watch, out)
	return out
}

func (w *Watcher) loop(ctx context.Context, watch Watch, out chan<- Decision) {
	defer close(out)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.GetDefault().DebugWithContext(ctx, "deposit watcher started", map[string]interface{}{
		"booking_id": watch.BookingID,
		"interval":   w.interval.String(),
	})

	var last *Decision
	for {
		now := w.now()
		d := w.policy.Evaluate(now, watch.SlotStart, watch.PaymentMethod, watch.CourtFee)
		if last != nil && last.Required != d.Required {
			d.Flipped = true
		}
		last = &d

		select {
		case out <- d:
		case <-ctx.Done():
			return
		}
		if !now.Before(watch.SlotStart) {
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
