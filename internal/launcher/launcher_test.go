package launcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubOpener(t *testing.T, fn func(string) error) {
	t.Helper()
	orig := openFile
	openFile = fn
	t.Cleanup(func() { openFile = orig })
}

func TestOpen(t *testing.T) {
	var got []string
	stubOpener(t, func(p string) error {
		got = append(got, p)
		return nil
	})

	path := filepath.Join(t.TempDir(), "a.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	require.NoError(t, Open(path))
	assert.Equal(t, []string{path}, got)
}

func TestOpen_Missing(t *testing.T) {
	stubOpener(t, func(string) error {
		t.Fatal("opener must not be called for a missing file")
		return nil
	})
	assert.Error(t, Open(filepath.Join(t.TempDir(), "missing.xlsx")))
}

func TestOpenAll(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.xlsx")
	bad := filepath.Join(dir, "bad.xlsx")
	for _, p := range []string{ok, bad} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}

	stubOpener(t, func(p string) error {
		if p == bad {
			return errors.New("no handler")
		}
		return nil
	})

	assert.Equal(t, 1, OpenAll([]string{ok, bad, filepath.Join(dir, "missing.xlsx")}, zerolog.Nop()))
}
