package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreUploadExistsDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewLocalStore(dir, "/public/uploads/")

	url, err := s.Upload(ctx, "cover.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/public/uploads/cover.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "cover.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	ok, err := s.Exists(ctx, "cover.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "cover.jpg"))
	ok, err = s.Exists(ctx, "cover.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, "cover.jpg"))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "/u")
	for _, key := range []string{"../etc/passwd", "a/../../b", "", "/abs", `a\b`} {
		_, err := s.Upload(context.Background(), key, "", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}
