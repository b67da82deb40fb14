package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fd1az/nft-auction/internal/events"
)

func TestLedgerRecorder(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	rec, err := NewLedgerRecorder(mp.Meter("test"))
	require.NoError(t, err)

	ch := make(chan events.Event, 3)
	ch <- events.Event{Seq: 1, Name: events.BidPlaced}
	ch <- events.Event{Seq: 2, Name: events.BidPlaced}
	ch <- events.Event{Seq: 3, Name: events.AuctionEnded}
	close(ch)
	rec.Run(ctx, ch)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byEvent := map[string]int64{}
	var last int64
	for _, m := range rm.ScopeMetrics[0].Metrics {
		switch data := m.Data.(type) {
		case metricdata.Sum[int64]:
			for _, dp := range data.DataPoints {
				name, _ := dp.Attributes.Value("event")
				byEvent[name.AsString()] += dp.Value
			}
		case metricdata.Gauge[int64]:
			last = data.DataPoints[0].Value
		}
	}

	assert.Equal(t, map[string]int64{events.BidPlaced: 2, events.AuctionEnded: 1}, byEvent)
	assert.Equal(t, int64(3), last)
}

func TestNewPrometheusServer(t *testing.T) {
	srv := NewPrometheusServer(WithPort("9191"))
	assert.Equal(t, ":9191", srv.Addr)
}
