package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveWritesFileAndReturnsRef(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 1024)

	ref, err := s.Save(".png", strings.NewReader("fake-image-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, ref))
	require.NoError(t, err)
	assert.Equal(t, "fake-image-bytes", string(data))
}

func TestSaveRejectsDisallowedExtension(t *testing.T) {
	s := NewStore(t.TempDir(), 1024)
	_, err := s.Save(".exe", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestSaveRejectsOversizedUpload(t *testing.T) {
	s := NewStore(t.TempDir(), 4)
	_, err := s.Save(".png", strings.NewReader("toolongforthelimit"))
	assert.Error(t, err)
}

func TestDeleteRemovesFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 1024)

	ref, err := s.Save(".jpg", strings.NewReader("abc"))
	require.NoError(t, err)

	s.Delete(ref)

	_, err = os.Stat(filepath.Join(dir, ref))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteEmptyRefIsNoop(t *testing.T) {
	s := NewStore(t.TempDir(), 1024)
	assert.NotPanics(t, func() { s.Delete("") })
}
