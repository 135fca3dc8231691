package storage

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpool_SaveAndGet(t *testing.T) {
	sp, err := NewSpool(t.TempDir())
	require.NoError(t, err)

	info, err := sp.Save("BXF20241110T055959_CompleteAsRun.xml", strings.NewReader("<xml/>"))
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size)
	assert.Equal(t, "BXF20241110T055959_CompleteAsRun.xml", info.Name)

	got, err := sp.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.Path, got.Path)

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Equal(t, "<xml/>", string(data))
}

// Two downloads of the same remote name coexist under different IDs.
func TestSpool_SameNameDoesNotClobber(t *testing.T) {
	sp, err := NewSpool(t.TempDir())
	require.NoError(t, err)

	a, err := sp.Save("same.xml", strings.NewReader("first"))
	require.NoError(t, err)
	b, err := sp.Save("same.xml", strings.NewReader("second"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Path, b.Path)
	assert.Len(t, sp.List(0), 2)
}

func TestSpool_Remove(t *testing.T) {
	sp, err := NewSpool(t.TempDir())
	require.NoError(t, err)

	info, err := sp.Save("a.xml", strings.NewReader("data"))
	require.NoError(t, err)

	require.NoError(t, sp.Remove(info.ID))
	_, err = sp.Get(info.ID)
	assert.Error(t, err)
	_, err = os.Stat(info.Path)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, sp.Remove("missing"))
}
