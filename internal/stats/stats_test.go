package stats

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	n     int64
	calls int
	err   error
}

func (f *fakeCounter) CountUsers(context.Context) (int64, error) {
	f.calls++
	return f.n, f.err
}

func setup(t *testing.T, counter Counter) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(counter, client, time.Minute, log), mr
}

func TestCacheAside(t *testing.T) {
	counter := &fakeCounter{n: 3}
	svc, mr := setup(t, counter)
	ctx := context.Background()

	first, hit, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(3), first.UserCount)
	assert.True(t, mr.Exists("stats"))
	assert.Equal(t, time.Minute, mr.TTL("stats"))

	counter.n = 10
	second, hit, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(3), second.UserCount, "cached value should be served")
	assert.Equal(t, 1, counter.calls)

	mr.FastForward(2 * time.Minute)
	third, hit, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(10), third.UserCount)
	assert.Equal(t, 2, counter.calls)
}

func TestInvalidate(t *testing.T) {
	counter := &fakeCounter{n: 1}
	svc, mr := setup(t, counter)
	ctx := context.Background()

	_, _, err := svc.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx))
	assert.False(t, mr.Exists("stats"))
}

func TestCorruptCacheIsRecomputed(t *testing.T) {
	counter := &fakeCounter{n: 4}
	svc, mr := setup(t, counter)
	require.NoError(t, mr.Set("stats", "garbage"))

	st, hit, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(4), st.UserCount)
}

func TestCounterFailure(t *testing.T) {
	svc, _ := setup(t, &fakeCounter{err: errors.New("db down")})
	_, _, err := svc.Get(context.Background())
	assert.Error(t, err)
}

func TestCacheDownFallsBackToDatabase(t *testing.T) {
	counter := &fakeCounter{n: 8}
	svc, mr := setup(t, counter)
	mr.Close()

	st, hit, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int64(8), st.UserCount)
}
