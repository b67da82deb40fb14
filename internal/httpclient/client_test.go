package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type ticker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func newTestClient(t *testing.T, h http.HandlerFunc) (Client, *sdkmetric.ManualReader) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	reader := sdkmetric.NewManualReader()
	c, err := NewInstrumentedClient(
		WithProviderName("test"),
		WithBaseURL(srv.URL+"/"),
		WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))),
		WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	require.NoError(t, err)
	return c, reader
}

func requests(t *testing.T, reader *sdkmetric.ManualReader) map[bool]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[bool]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("success")
				out[v.AsBool()] += dp.Value
			}
		}
	}
	return out
}

func TestRequest_GetDecodesResult(t *testing.T) {
	c, reader := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "ETH USDT&x", r.URL.Query().Get("symbol"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "yes", r.Header.Get("X-Trace"))
		_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","price":"2000.5"}`))
	})

	var out ticker
	resp, err := c.NewRequest().
		SetHeader("X-Trace", "yes").
		SetQueryParam("symbol", "ETH USDT&x").
		SetResult(&out).
		Get(context.Background(), "/api/v3/ticker/price")
	require.NoError(t, err)

	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "2000.5", out.Price)
	assert.Same(t, &out, resp.Result())
	assert.Equal(t, map[bool]int64{true: 1}, requests(t, reader))
}

func TestRequest_ErrorHandler(t *testing.T) {
	c, reader := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	handlerErr := errors.New("invalid symbol")
	resp, err := c.NewRequestWithOptions(
		WithLabels(NewLabel("endpoint", "ticker")),
		WithResponseErrorHandler(func(status int, body []byte) error {
			if status >= 400 {
				return handlerErr
			}
			return nil
		}),
	).Get(context.Background(), "ticker")

	require.ErrorIs(t, err, handlerErr)
	assert.True(t, resp.IsError())
	assert.Contains(t, resp.String(), "Invalid symbol")
	assert.Equal(t, map[bool]int64{false: 1}, requests(t, reader))
}

func TestRequest_NetworkError(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	c, err := NewInstrumentedClient(
		WithBaseURL("http://127.0.0.1:1"),
		WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))),
	)
	require.NoError(t, err)

	_, err = c.NewRequest().Get(context.Background(), "/")
	require.Error(t, err)
	assert.Equal(t, map[bool]int64{false: 1}, requests(t, reader))
}
