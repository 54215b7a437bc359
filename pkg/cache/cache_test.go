package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addressView struct {
	Address string `json:"address"`
	State   string `json:"state"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	var got addressView
	assert.ErrorIs(t, c.Get(ctx, "missing", &got), ErrMiss)

	in := addressView{Address: "0xabc", State: "none"}
	require.NoError(t, c.Set(ctx, "addr:1", in, time.Minute))
	in.State = "done" // must not leak into the cache

	require.NoError(t, c.Get(ctx, "addr:1", &got))
	assert.Equal(t, addressView{Address: "0xabc", State: "none"}, got)

	require.NoError(t, c.Delete(ctx, "addr:1"))
	assert.ErrorIs(t, c.Get(ctx, "addr:1", &got), ErrMiss)
}

func TestMultiLevelCacheBackfillsLocal(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(time.Minute, time.Minute)
	remote := NewMemoryCache(time.Minute, time.Minute)
	m := NewMultiLevelCache(local, remote)

	require.NoError(t, remote.Set(ctx, "addr:7", addressView{Address: "0xdef"}, time.Minute))

	var got addressView
	require.NoError(t, m.Get(ctx, "addr:7", &got))
	assert.Equal(t, "0xdef", got.Address)

	var fromLocal addressView
	require.NoError(t, local.Get(ctx, "addr:7", &fromLocal))
	assert.Equal(t, "0xdef", fromLocal.Address)

	require.NoError(t, m.Delete(ctx, "addr:7"))
	assert.ErrorIs(t, m.Get(ctx, "addr:7", &got), ErrMiss)
}
