package management_test

import (
	"net/http"
	"testing"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/test"
	"github.com/stretchr/testify/assert"
)

func TestGetHealthy(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		res := test.PerformRequest(t, s, "GET", "/-/healthy", nil, nil)
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "OK", res.Body.String())
	})
}

func TestGetReady(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		res := test.PerformRequest(t, s, "GET", "/-/ready", nil, nil)
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "Ready.", res.Body.String())
	})
}
