package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/nft-auction/internal/logger"
)

type pinger struct{ err error }

func (p *pinger) Ping(context.Context) error { return p.err }

func TestServer_Health(t *testing.T) {
	store := &pinger{}
	s := NewServer(0, "v1.2.3", logger.NewDiscard())
	s.RegisterCheck("store", PingCheck(store))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var status Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "v1.2.3", status.Version)
	assert.True(t, status.Checks["store"].Healthy)

	store.err = errors.New("database is closed")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "database is closed", status.Checks["store"].Message)

	resp, err = http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_Live(t *testing.T) {
	s := NewServer(0, "", logger.NewDiscard())
	s.RegisterCheck("never", func(context.Context) (bool, string) { return false, "down" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", rec.Body.String())
}
