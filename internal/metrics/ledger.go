package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/nft-auction/internal/events"
)

// LedgerRecorder counts committed ledger events by name.
type LedgerRecorder struct {
	committed metric.Int64Counter
	lastSeq   metric.Int64Gauge
}

func NewLedgerRecorder(meter metric.Meter) (*LedgerRecorder, error) {
	committed, err := meter.Int64Counter("ledger.events.committed",
		metric.WithDescription("Committed ledger events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	lastSeq, err := meter.Int64Gauge("ledger.events.last_seq",
		metric.WithDescription("Sequence number of the last committed event"),
	)
	if err != nil {
		return nil, err
	}

	return &LedgerRecorder{committed: committed, lastSeq: lastSeq}, nil
}

// Run records every event from ch until ch closes or ctx is done.
func (r *LedgerRecorder) Run(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			r.committed.Add(ctx, 1, metric.WithAttributes(attribute.String("event", e.Name)))
			r.lastSeq.Record(ctx, int64(e.Seq))
		}
	}
}
