package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitServer_EmptyAddrDisablesCache(t *testing.T) {
	c, err := InitServer(context.Background(), Config{})
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.False(t, c.Enabled())
}

func TestDisabledCache_IsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	var out []string
	hit, err := c.Get(ctx, KeyActivePlans, &out)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.NoError(t, c.Set(ctx, KeyActivePlans, []string{"x"}))
	assert.NoError(t, c.Invalidate(ctx, KeyActivePlans, PlanKey("1")))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestPlanKey(t *testing.T) {
	assert.Equal(t, "plans:id:abc", PlanKey("abc"))
}
