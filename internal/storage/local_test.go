package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewUploadDir_CreatesParents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "uploads")

	u, err := NewUploadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, u.Path())
	assert.NoError(t, u.Check())
}

func TestNewUploadDir_Fails(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewUploadDir(filepath.Join(blocker, "uploads"))
	assert.Error(t, err)

	_, err = NewUploadDir("")
	assert.Error(t, err)
}

func TestStagedFile_Commit(t *testing.T) {
	u, err := NewUploadDir(t.TempDir())
	require.NoError(t, err)

	staged, err := u.Stage("2024-03-09_14-05-07_bob_report.pdf")
	require.NoError(t, err)

	// Nothing is visible under the final name while writing.
	_, err = os.Stat(u.FilePath("2024-03-09_14-05-07_bob_report.pdf"))
	assert.True(t, os.IsNotExist(err))

	_, err = staged.Write([]byte("%PDF-1.4 body"))
	require.NoError(t, err)

	path, err := staged.Commit()
	require.NoError(t, err)
	assert.Equal(t, u.FilePath("2024-03-09_14-05-07_bob_report.pdf"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(content))

	assert.Equal(t, []string{"2024-03-09_14-05-07_bob_report.pdf"}, listNames(t, u.Path()))

	assert.NoError(t, staged.Discard(), "discard after commit is a no-op")
	_, err = staged.Commit()
	assert.Error(t, err)
}

func TestStagedFile_Discard(t *testing.T) {
	u, err := NewUploadDir(t.TempDir())
	require.NoError(t, err)

	staged, err := u.Stage("partial.pdf")
	require.NoError(t, err)
	_, err = staged.Write([]byte("half"))
	require.NoError(t, err)

	require.NoError(t, staged.Discard())
	assert.Empty(t, listNames(t, u.Path()))
}

func TestStage_RejectsEscapingNames(t *testing.T) {
	u, err := NewUploadDir(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "../x.pdf", "sub/x.pdf"} {
		_, err := u.Stage(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
	for _, name := range listNames(t, u.Path()) {
		assert.False(t, strings.HasPrefix(name, ".incoming-"))
	}
}
