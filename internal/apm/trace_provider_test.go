package apm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/nft-auction/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders("x-honeycomb-team=abc, api-key=k=v,broken,=empty")
	assert.Equal(t, map[string]string{"x-honeycomb-team": "abc", "api-key": "k=v"}, got)
	assert.Empty(t, ParseHeaders(""))
}

func TestNewTraceProvider(t *testing.T) {
	ctx := context.Background()
	log := logger.NewDiscard()

	tp, err := NewTraceProvider(ctx, Config{Provider: EmptyProvider}, log)
	require.NoError(t, err)
	assert.NoError(t, tp.Stop())

	tp, err = NewTraceProvider(ctx, Config{Provider: ConsoleProvider, ServiceName: "test"}, log)
	require.NoError(t, err)
	assert.NoError(t, tp.Stop())

	_, err = NewTraceProvider(ctx, Config{Provider: "jaeger"}, log)
	assert.Error(t, err)
}
