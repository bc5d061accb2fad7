package localstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_LazyCreate(t *testing.T) {
	ctx := t.Context()
	dir := filepath.Join(t.TempDir(), "profile")
	b := NewFileBackend(dir, 0)

	_, err := b.Get(ctx, KeyCart)
	require.ErrorIs(t, err, ErrNotFound)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "reads must not create the profile dir")

	require.NoError(t, b.Set(ctx, KeyCart, []byte(`[]`)))
	got, err := b.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestFileBackend_Overwrite(t *testing.T) {
	ctx := t.Context()
	b := NewFileBackend(t.TempDir(), 0)

	require.NoError(t, b.Set(ctx, KeyWishlist, []byte(`[1]`)))
	require.NoError(t, b.Set(ctx, KeyWishlist, []byte(`[1,2]`)))

	got, err := b.Get(ctx, KeyWishlist)
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))

	entries, err := os.ReadDir(b.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}

func TestFileBackend_Delete(t *testing.T) {
	ctx := t.Context()
	b := NewFileBackend(t.TempDir(), 0)

	require.NoError(t, b.Delete(ctx, KeyCart), "deleting a missing key is fine")
	require.NoError(t, b.Set(ctx, KeyCart, []byte(`[]`)))
	require.NoError(t, b.Delete(ctx, KeyCart))

	_, err := b.Get(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileBackend_Quota(t *testing.T) {
	ctx := t.Context()
	b := NewFileBackend(t.TempDir(), 10)

	require.NoError(t, b.Set(ctx, KeyCart, []byte(`[1,2,3]`)))
	// replacing a key's own value only counts the new size
	require.NoError(t, b.Set(ctx, KeyCart, []byte(`[1,2,3,4]`)))
	// 9 + 5 > 10
	err := b.Set(ctx, KeyWishlist, []byte(`[1,2]`))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	got, err := b.Get(ctx, KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3,4]`, string(got), "existing value survives a rejected write")
}

func TestFileBackend_QuotaIsAbsorbedByStore(t *testing.T) {
	ctx := t.Context()
	s := New(NewFileBackend(t.TempDir(), 4), discardLogger())

	s.WriteCart(ctx, randomLines(5))
	assert.Empty(t, s.ReadCart(ctx))
}

func TestFileBackend_RejectsPathKeys(t *testing.T) {
	ctx := t.Context()
	b := NewFileBackend(t.TempDir(), 0)

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		assert.Error(t, b.Set(ctx, key, []byte(`1`)), "key %q", key)
	}
}
