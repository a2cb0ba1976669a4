package fs_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ostafen/zipsniff/internal/fs"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()

	fi, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(5), fi.Size())

	buf := make([]byte, 3)
	_, err = f.ReadAt(buf, 2)
	require.NoError(t, err)
	require.Equal(t, "llo", string(buf))

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	_, err = fs.Open(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
