package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewVault(t.TempDir())
	require.NoError(t, err)
	return v
}

func TestWriteNote_CreatesParentFolders(t *testing.T) {
	v := newTestVault(t)

	require.NoError(t, v.WriteNote("Work/Meetings/Standup.md", "# Standup\n"))

	assert.True(t, v.Exists("Work/Meetings/Standup.md"))
	content, err := os.ReadFile(v.Abs("Work/Meetings/Standup.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Standup\n", string(content))
}

func TestWriteNote_LeavesNoTempFiles(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.WriteNote("note.md", "body"))

	entries, err := os.ReadDir(v.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "note.md", entries[0].Name())
}

func TestWriteBinary(t *testing.T) {
	v := newTestVault(t)
	data := []byte{0x89, 0x50, 0x4e, 0x47}

	require.NoError(t, v.WriteBinary("attachments/pic.png", data))

	got, err := os.ReadFile(v.Abs("attachments/pic.png"))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestExists(t *testing.T) {
	v := newTestVault(t)
	assert.False(t, v.Exists("missing.md"))

	require.NoError(t, v.WriteNote("present.md", "x"))
	assert.True(t, v.Exists("present.md"))

	// Directories are not files.
	require.NoError(t, v.EnsureFolder("folder"))
	assert.False(t, v.Exists("folder"))
}

func TestVerify_ReportsBrokenLocalRefs(t *testing.T) {
	v := newTestVault(t)

	require.NoError(t, v.WriteBinary("Work/attachments/pic.png", []byte("img")))
	require.NoError(t, v.WriteNote("Work/Note.md",
		"![ok](attachments/pic.png)\n\n"+
			"![missing](attachments/gone.png)\n\n"+
			"[external](https://example.com/page)\n\n"+
			"[anchor](#section)\n"))

	broken, err := v.Verify()
	require.NoError(t, err)

	require.Len(t, broken, 1)
	assert.Equal(t, "Work/Note.md", broken[0].Note)
	assert.Equal(t, "attachments/gone.png", broken[0].Target)
}

func TestVerify_DecodesEscapedTargets(t *testing.T) {
	v := newTestVault(t)

	require.NoError(t, v.WriteBinary("attachments/my pic.png", []byte("img")))
	require.NoError(t, v.WriteNote("Note.md", "![ok](attachments/my%20pic.png)\n"))

	broken, err := v.Verify()
	require.NoError(t, err)
	assert.Empty(t, broken)
}

func TestNewVault_CreatesRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "vault")
	v, err := NewVault(dir)
	require.NoError(t, err)

	info, err := os.Stat(v.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
