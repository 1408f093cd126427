package ultrakv_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trueai-org/ultrakv/pkg/options"
	"github.com/trueai-org/ultrakv/pkg/ultrakv"
)

func openTestDB(t *testing.T, fns ...options.OptionFunc) *ultrakv.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "dir", "test.ukv")
	fns = append([]options.OptionFunc{options.WithPath(path)}, fns...)

	db, err := ultrakv.Open(context.Background(), "ultrakv_test", fns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Open_CreatesParentDirectory(t *testing.T) {
	t.Parallel()
	openTestDB(t) // succeeds only if the nested directory was created
}

func Test_PutGetDelete_RoundTrips(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, db.Put("key", []byte("value")))

	value, ok := db.Get("key")
	require.True(t, ok)
	assert.Equal(t, []byte("value"), value)

	existed, err := db.Delete("key")
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok = db.Get("key")
	assert.False(t, ok)
}

func Test_Stats_ReportsLiveEntries(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, db.Put("a", []byte("1")))
	require.NoError(t, db.Put("b", []byte("2")))

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.ActiveEntries)
}

func Test_Close_IsIdempotentErrorOnSecondCall(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, db.Close())
	assert.Error(t, db.Close())
}
