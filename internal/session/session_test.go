// SPDX-License-Identifier: MIT

package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesUniqueDirs(t *testing.T) {
	root := t.TempDir()

	a, err := Open(root)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(root)
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Dir(), b.Dir())
	assert.DirExists(t, a.Dir())
	assert.DirExists(t, b.Dir())
	assert.True(t, strings.HasPrefix(filepath.Base(a.Dir()), "mediastudio-"))
}

func TestPathConfinement(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	p, err := s.Path("clip-0.mp4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), "clip-0.mp4"), p)

	// Nested names are fine
	p, err = s.Path("intermediates/norm-1.ts")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, s.Dir()))

	for _, bad := range []string{"", ".", "..", "../escape", "/etc/passwd", "a\\b"} {
		_, err := s.Path(bad)
		assert.Error(t, err, "name %q should be rejected", bad)
	}
}

func TestCloseRemovesEverything(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	p, err := s.Path("output.mp4")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, []byte("data"), 0o600))

	s.Close()
	assert.NoDirExists(t, s.Dir())
}

func TestCloseIdempotent(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	s.Close()
	s.Close() // must not panic or log-fail loudly on a missing dir
	assert.NoDirExists(t, s.Dir())
}
