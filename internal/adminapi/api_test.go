package adminapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(apiKey string) *Server {
	s := &Server{apiKey: apiKey}
	s.app = newApp()
	s.routes()
	return s
}

func TestAuthRejectsMissingKey(t *testing.T) {
	s := newTestServer("secret")

	req := httptest.NewRequest("GET", "/healthz", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestAuthRejectsWrongKey(t *testing.T) {
	s := newTestServer("secret")

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Admin-Key", "wrong")
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestAuthAcceptsCorrectKey(t *testing.T) {
	s := newTestServer("secret")

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Admin-Key", "secret")
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	// An empty configured key must lock the API, not open it.
	s := newTestServer("")

	req := httptest.NewRequest("GET", "/healthz", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestParamIDValidation(t *testing.T) {
	s := newTestServer("secret")

	req := httptest.NewRequest("GET", "/tenants/abc", nil)
	req.Header.Set("X-Admin-Key", "secret")
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
