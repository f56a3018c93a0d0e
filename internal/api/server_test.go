package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cutagent/internal/api"
	"cutagent/internal/testsupport"
	"cutagent/internal/validation"
)

func TestServerServesUntilCancelled(t *testing.T) {
	tools := testsupport.NewFakeTools()
	srv := api.NewServer(api.ServerConfig{
		Bind:      "127.0.0.1:0",
		Version:   "test",
		Validator: validation.New(tools, nil),
	})
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
