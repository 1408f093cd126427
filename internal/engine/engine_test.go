package engine_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trueai-org/ultrakv/internal/engine"
	"github.com/trueai-org/ultrakv/pkg/options"
)

func newTestEngine(t *testing.T, fns ...options.OptionFunc) *engine.Engine {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.ukv")
	fns = append([]options.OptionFunc{options.WithPath(path)}, fns...)
	opts := options.New(fns...)

	e, err := engine.New(context.Background(), &engine.Config{
		Options: opts,
		Logger:  zap.NewNop().Sugar(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Dispose() })
	return e
}

func Test_PutThenGet_RoundTripsValue(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Put("alpha", []byte("hello")))

	value, ok := e.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), value)
}

func Test_Get_MissingKey_ReturnsFalse(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	_, ok := e.Get("nope")
	assert.False(t, ok)
}

func Test_Put_RejectsEmptyKey(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	err := e.Put("", []byte("x"))
	assert.Error(t, err)
}

func Test_Put_RejectsKeyExceedingMaxLength(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, options.WithMaxKeyLength(4))
	err := e.Put("way too long", []byte("x"))
	assert.Error(t, err)
}

func Test_Put_OverwritesExistingKey(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Put("key", []byte("first")))
	require.NoError(t, e.Put("key", []byte("second, and a good bit longer than first")))

	value, ok := e.Get("key")
	require.True(t, ok)
	assert.Equal(t, []byte("second, and a good bit longer than first"), value)
}

func Test_Delete_RemovesKeyAndReportsExistence(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Put("key", []byte("value")))

	existed, err := e.Delete("key")
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok := e.Get("key")
	assert.False(t, ok)

	existedAgain, err := e.Delete("key")
	require.NoError(t, err)
	assert.False(t, existedAgain)
}

func Test_DeleteBatch_ReturnsCountOfExistingKeys(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Put("a", []byte("1")))
	require.NoError(t, e.Put("b", []byte("2")))

	count, err := e.DeleteBatch([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func Test_Contains_ReflectsLiveKeys(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Put("present", []byte("v")))

	assert.True(t, e.Contains("present"))
	assert.False(t, e.Contains("absent"))
}

func Test_GetAllKeys_ReturnsAllLiveKeys(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Put("one", []byte("1")))
	require.NoError(t, e.Put("two", []byte("2")))
	_, err := e.Delete("one")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"two"}, e.GetAllKeys())
}

func Test_Clear_RemovesEveryKey(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Put("a", []byte("1")))
	require.NoError(t, e.Put("b", []byte("2")))

	require.NoError(t, e.Clear())

	assert.Empty(t, e.GetAllKeys())
	_, ok := e.Get("a")
	assert.False(t, ok)
}

func Test_Stats_ReflectsPutAndDeleteActivity(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Put("a", []byte("1")))
	require.NoError(t, e.Put("b", []byte("2")))
	_, err := e.Delete("a")
	require.NoError(t, err)

	stats, err := e.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.ActiveEntries)
	// One of two tuples deleted crosses the page's compaction threshold, so
	// Delete compacts the page right away and the tombstone is dropped.
	assert.EqualValues(t, 0, stats.DeletedEntries)
	assert.Greater(t, stats.FileSize, int64(0))
}

func Test_Shrink_PreservesLiveValues_AndReclaimsDeletedSpace(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Put(keyOf(i), bigValue(500)))
	}
	for i := 0; i < 40; i++ {
		_, err := e.Delete(keyOf(i))
		require.NoError(t, err)
	}

	statsBefore, err := e.Stats()
	require.NoError(t, err)

	result, err := e.Shrink(true)
	require.NoError(t, err)
	assert.Less(t, result.NewSize, statsBefore.FileSize)

	for i := 40; i < 50; i++ {
		value, ok := e.Get(keyOf(i))
		require.True(t, ok)
		assert.Equal(t, bigValue(500), value)
	}
	for i := 0; i < 40; i++ {
		_, ok := e.Get(keyOf(i))
		assert.False(t, ok)
	}
}

func Test_ShouldShrink_FalseOnFreshDatabase(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	should, err := e.ShouldShrink()
	require.NoError(t, err)
	assert.False(t, should)
}

func Test_Dispose_ClosesEngineAndRejectsFurtherUse(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	require.NoError(t, e.Put("a", []byte("1")))
	require.NoError(t, e.Dispose())

	err := e.Put("b", []byte("2"))
	assert.ErrorIs(t, err, engine.ErrEngineClosed)
}

func Test_Reopen_RecoversPreviouslyWrittenKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reopen.ukv")
	opts := options.New(options.WithPath(path))

	e1, err := engine.New(context.Background(), &engine.Config{Options: opts, Logger: zap.NewNop().Sugar()})
	require.NoError(t, err)
	require.NoError(t, e1.Put("persisted", []byte("still here")))
	require.NoError(t, e1.Dispose())

	e2, err := engine.New(context.Background(), &engine.Config{Options: opts, Logger: zap.NewNop().Sugar()})
	require.NoError(t, err)
	defer e2.Dispose()

	value, ok := e2.Get("persisted")
	require.True(t, ok)
	assert.Equal(t, []byte("still here"), value)
}

func keyOf(i int) string {
	return fmt.Sprintf("key-%04d", i)
}

func bigValue(n int) []byte {
	v := make([]byte, n)
	for i := range v {
		v[i] = byte('A' + i%26)
	}
	return v
}
