package seeders

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teastall/teastall/app/repositories"
)

func TestRunAllSeedsMenuOnce(t *testing.T) {
	ctx := context.Background()
	stores := repositories.NewMemoryStores()
	var out bytes.Buffer

	require.NoError(t, RunAll(ctx, stores, &out))
	assert.Contains(t, out.String(), "Running seeder: menu")

	products, err := stores.Products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), products)

	cats, err := stores.Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 3)

	featured, err := stores.Products.Featured(ctx, 12)
	require.NoError(t, err)
	assert.Len(t, featured, 4)

	require.NoError(t, RunAll(ctx, stores, &out))
	again, err := stores.Products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, products, again)
}

func TestNamesListsRegistered(t *testing.T) {
	assert.Contains(t, Names(), "menu")
}
