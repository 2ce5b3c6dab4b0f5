package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_CreatesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "uuid")

	first, err := LoadFrom(path)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	// the same identity must come back on every subsequent load
	second, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadFrom_ReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uuid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-uuid"), 0o600))

	id, err := LoadFrom(path)
	require.NoError(t, err)

	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestLoadFrom_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uuid")
	stored := uuid.New().String()
	require.NoError(t, os.WriteFile(path, []byte("  "+stored+"\n"), 0o600))

	id, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, stored, id)
}
