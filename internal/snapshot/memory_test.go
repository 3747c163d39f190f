package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanhduy633/checkout-service/domain"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	snap := &domain.CartSnapshot{
		Items: []domain.CartLine{
			{ProductID: 1, Name: "Sách", Price: 100, Quantity: 2},
			{ProductID: 2, Name: "Bút", Price: 50, Quantity: 1},
		},
		TotalAmount: 1, // advisory, must be recomputed
	}
	require.NoError(t, store.Save(ctx, "u1", snap))

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 250.0, loaded.TotalAmount)
	assert.Len(t, loaded.Items, 2)

	require.NoError(t, store.Clear(ctx, "u1"))
	require.NoError(t, store.Clear(ctx, "u1"))

	loaded, err = store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}
