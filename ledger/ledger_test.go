package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/tradevec/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	root := t.TempDir()
	l, err := New(filepath.Join(root, "raw"), filepath.Join(root, "processed"))
	require.NoError(t, err)
	return l
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestNew(t *testing.T) {
	t.Run("creates directories", func(t *testing.T) {
		l := newTestLedger(t)
		assert.DirExists(t, l.RawDir())
		assert.DirExists(t, l.ProcessedDir())
	})

	t.Run("requires both directories", func(t *testing.T) {
		_, err := New("", t.TempDir())
		assert.ErrorIs(t, err, ErrDirRequired)
		_, err = New(t.TempDir(), "")
		assert.ErrorIs(t, err, ErrDirRequired)
	})
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		kind core.SourceKind
		ok   bool
	}{
		{"comtrade_851712_20240101_120000.json", core.SourceComtrade, true},
		{"bl_851712_20240101_120000.json", core.SourceBillOfLading, true},
		{"bl_851712.txt", "", false},
		{"customs_851712.json", "", false},
		{"comtrade.json", "", false},
		{LockFileName, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindOf(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestPending(t *testing.T) {
	l := newTestLedger(t)
	writeFile(t, l.RawDir(), "bl_9503_2.json", "[]")
	writeFile(t, l.RawDir(), "comtrade_9503_2.json", "[]")
	writeFile(t, l.RawDir(), "bl_8517_1.json", "[]")
	writeFile(t, l.RawDir(), "comtrade_8517_1.json", "[]")
	writeFile(t, l.RawDir(), "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(l.RawDir(), "comtrade_dir.json"), 0o755))

	pending, err := l.Pending()
	require.NoError(t, err)

	var names []string
	for _, f := range pending {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"comtrade_8517_1.json",
		"comtrade_9503_2.json",
		"bl_8517_1.json",
		"bl_9503_2.json",
	}, names)

	assert.Equal(t, core.SourceComtrade, pending[0].Kind)
	assert.Equal(t, core.SourceBillOfLading, pending[3].Kind)
	assert.Equal(t, filepath.Join(l.RawDir(), "bl_9503_2.json"), pending[3].Path)
}

func TestPending_Empty(t *testing.T) {
	l := newTestLedger(t)
	pending, err := l.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCommit(t *testing.T) {
	l := newTestLedger(t)
	writeFile(t, l.RawDir(), "comtrade_8517_1.json", `[{"period":"202310"}]`)

	pending, err := l.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, l.Commit(pending[0]))

	assert.NoFileExists(t, pending[0].Path)
	data, err := os.ReadFile(filepath.Join(l.ProcessedDir(), "comtrade_8517_1.json"))
	require.NoError(t, err)
	assert.Equal(t, `[{"period":"202310"}]`, string(data))

	pending, err = l.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	committed, err := l.Committed()
	require.NoError(t, err)
	assert.Equal(t, []string{"comtrade_8517_1.json"}, committed)
}

func TestCommit_AlreadyCommitted(t *testing.T) {
	l := newTestLedger(t)
	writeFile(t, l.RawDir(), "bl_8517_1.json", "[]")
	writeFile(t, l.ProcessedDir(), "bl_8517_1.json", "[]")

	pending, err := l.Pending()
	require.NoError(t, err)

	err = l.Commit(pending[0])
	assert.ErrorIs(t, err, ErrAlreadyCommitted)
	assert.FileExists(t, pending[0].Path, "file must stay pending")
}

func TestCommit_NotPending(t *testing.T) {
	l := newTestLedger(t)
	err := l.Commit(File{Name: "bl_1_1.json", Path: filepath.Join(l.RawDir(), "bl_1_1.json"), Kind: core.SourceBillOfLading})
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestLock(t *testing.T) {
	l := newTestLedger(t)

	unlock, err := l.Lock()
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(l.RawDir(), LockFileName))
	require.NoError(t, err)
	assert.Contains(t, string(contents), "pid=")

	_, err = l.Lock()
	assert.ErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), fmt.Sprintf("pid=%d", os.Getpid()))

	// A second ledger over the same directory sees the same lock.
	other, err := New(l.RawDir(), l.ProcessedDir())
	require.NoError(t, err)
	_, err = other.Lock()
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock())
	require.NoError(t, unlock(), "release is idempotent")

	unlock, err = other.Lock()
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestLock_NotListedAsPending(t *testing.T) {
	l := newTestLedger(t)
	unlock, err := l.Lock()
	require.NoError(t, err)
	defer unlock()

	pending, err := l.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestLock_StaleFileFromCrashedRun(t *testing.T) {
	l := newTestLedger(t)
	path := filepath.Join(l.RawDir(), LockFileName)
	require.NoError(t, os.WriteFile(path, []byte("pid=999999 started=2020-01-01T00:00:00Z"), 0o644))

	unlock, err := l.Lock()
	require.NoError(t, err, "a lock file nobody holds is reclaimed")

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), fmt.Sprintf("pid=%d", os.Getpid()))
	assert.NotContains(t, string(contents), "999999")

	require.NoError(t, unlock())
	unlock, err = l.Lock()
	require.NoError(t, err, "lock can be taken again after release")
	require.NoError(t, unlock())
}
