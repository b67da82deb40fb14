package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n int }

func TestContainer_LazySingleton(t *testing.T) {
	c := NewContainer()
	builds := 0
	token := NewToken[*counter]("test.counter")

	RegisterToken(c, token, func(ServiceRegistry) *counter {
		builds++
		return &counter{n: 42}
	})

	first := GetToken(c, token)
	second := GetToken(c, token)

	assert.Equal(t, 1, builds)
	assert.Same(t, first, second)
	assert.Equal(t, 42, first.n)
}

func TestContainer_RegisterValue(t *testing.T) {
	c := NewContainer()
	c.Register("answer", 42)

	require.True(t, c.Has("answer"))
	assert.Equal(t, 42, c.Get("answer"))
	assert.False(t, c.Has("missing"))
}

func TestContainer_MissingServicePanics(t *testing.T) {
	c := NewContainer()
	assert.Panics(t, func() { c.Get("missing") })
}

func TestGetToken_WrongTypePanics(t *testing.T) {
	c := NewContainer()
	c.Register("svc", "not a counter")
	assert.Panics(t, func() { GetToken(c, NewToken[*counter]("svc")) })
}
