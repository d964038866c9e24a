package util

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemo_LoadsOncePerRequest(t *testing.T) {
	ctx := WithRequestCache(context.Background(), NewRequestCache())
	calls := 0
	load := func() (string, error) {
		calls++
		return "ana", nil
	}

	for i := 0; i < 3; i++ {
		v, err := Memo(ctx, UserCacheKey(7), load)
		require.NoError(t, err)
		assert.Equal(t, "ana", v)
	}
	assert.Equal(t, 1, calls)

	Forget(ctx, UserCacheKey(7))
	_, err := Memo(ctx, UserCacheKey(7), load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestMemo_ErrorsAreNotCached(t *testing.T) {
	ctx := WithRequestCache(context.Background(), NewRequestCache())
	boom := errors.New("boom")

	_, err := Memo(ctx, RequestCacheKey("r1"), func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, RequestCacheFrom(ctx).Len())
}

func TestMemo_WithoutCacheAlwaysLoads(t *testing.T) {
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Memo(context.Background(), "k", func() (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	Forget(context.Background(), "k")
}

func TestRequestCache_IsolatedPerRequest(t *testing.T) {
	a := WithRequestCache(context.Background(), NewRequestCache())
	b := WithRequestCache(context.Background(), NewRequestCache())

	RequestCacheFrom(a).Set("x", 1)
	_, ok := RequestCacheFrom(b).Get("x")
	assert.False(t, ok)
}
