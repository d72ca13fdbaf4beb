package audit

import (
	"context"
	"time"
)

// Run drains the buffer until ctx is cancelled, flushing every
// flushInterval or as soon as a full batch is queued. On shutdown the
// remaining records are written with a fresh deadline.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.writeTimeout)
			p.Flush(drainCtx)
			cancel()
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		case <-p.notify:
			p.Flush(ctx)
		}
	}
}
