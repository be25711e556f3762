package kv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSuccess(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Open(context.Background(), "redis://"+mr.Addr(), Options{PoolSize: 4, MaxRetries: 2})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 4, client.Options().PoolSize)
	assert.NoError(t, Ping(client)(context.Background()))
}

func TestOpenInvalidURL(t *testing.T) {
	_, err := Open(context.Background(), "invalid://url", Options{})
	assert.Error(t, err)
}

func TestOpenConnectionFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Open(context.Background(), "redis://"+addr, Options{MaxRetries: 1})
	assert.Error(t, err)
}

func TestPingAfterServerStops(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Open(context.Background(), "redis://"+mr.Addr(), Options{MaxRetries: 1})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	assert.Error(t, Ping(client)(context.Background()))
}
