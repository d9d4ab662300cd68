package storage

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/gheehive-storefront/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSQLStore(t *testing.T, ttl time.Duration) *SQL {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ClientState{}))
	return NewSQL(db, ttl)
}

func TestSQLStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := setupSQLStore(t, time.Hour)

	require.NoError(t, store.Save(ctx, "v1", SlotCartLines, []byte(`[{"productId":1}]`)))
	require.NoError(t, store.Save(ctx, "v1", SlotCartLines, []byte(`[{"productId":2}]`)))

	got, ok, err := store.Load(ctx, "v1", SlotCartLines)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"productId":2}]`, string(got))

	var count int64
	require.NoError(t, store.db.Model(&models.ClientState{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSQLStoreMissingAndDelete(t *testing.T) {
	ctx := context.Background()
	store := setupSQLStore(t, 0)

	_, ok, err := store.Load(ctx, "v1", SlotSessionToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "v1", SlotSessionToken, []byte("tok")))
	require.NoError(t, store.Save(ctx, "v1", SlotSessionUser, []byte(`{}`)))
	require.NoError(t, store.Delete(ctx, "v1", SlotSessionToken, SlotSessionUser))

	_, ok, err = store.Load(ctx, "v1", SlotSessionUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := setupSQLStore(t, time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "v1", SlotCartLines, []byte(`[]`)))
	now = now.Add(5 * time.Minute)

	_, ok, err := store.Load(ctx, "v1", SlotCartLines)
	require.NoError(t, err)
	assert.False(t, ok)

	purged, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
