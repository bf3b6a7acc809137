package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBundleFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveFiles_ExactAndMissing(t *testing.T) {
	root := t.TempDir()
	writeBundleFile(t, root, "var/log/messages", "hello\n")

	got := resolveFiles(root, []string{"var/log/messages", "var/log/syslog"})
	assert.Equal(t, []string{"var/log/messages"}, got)
}

func TestResolveFiles_GlobExpansion(t *testing.T) {
	root := t.TempDir()
	writeBundleFile(t, root, "sos_commands/lvm2/pvs_-a", "pv data\n")
	writeBundleFile(t, root, "sos_commands/lvm2/pvs_--all", "pv data\n")
	writeBundleFile(t, root, "sos_commands/lvm2/vgs_-v", "vg data\n")

	got := resolveFiles(root, []string{"sos_commands/lvm2/pvs_*"})
	assert.Equal(t, []string{
		"sos_commands/lvm2/pvs_--all",
		"sos_commands/lvm2/pvs_-a",
	}, got)
}

func TestResolveFiles_DoublestarGlob(t *testing.T) {
	root := t.TempDir()
	writeBundleFile(t, root, "var/log/messages", "x\n")
	writeBundleFile(t, root, "var/log/sub/messages-20260101", "x\n")

	got := resolveFiles(root, []string{"var/log/**/messages*", "var/log/messages"})
	assert.Contains(t, got, "var/log/sub/messages-20260101")
	assert.Contains(t, got, "var/log/messages")
}

func TestResolveFiles_DeclarationOrderPreserved(t *testing.T) {
	root := t.TempDir()
	writeBundleFile(t, root, "b.txt", "x\n")
	writeBundleFile(t, root, "a.txt", "x\n")

	got := resolveFiles(root, []string{"b.txt", "a.txt"})
	assert.Equal(t, []string{"b.txt", "a.txt"}, got)
}

func TestResolveFiles_DedupeAcrossPatterns(t *testing.T) {
	root := t.TempDir()
	writeBundleFile(t, root, "messages.txt", "x\n")

	got := resolveFiles(root, []string{"messages.txt", "messages*"})
	assert.Equal(t, []string{"messages.txt"}, got)
}

func TestResolveFiles_DirectoriesIgnored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sos_commands"), 0o755))

	got := resolveFiles(root, []string{"sos_commands", "sos_*"})
	assert.Empty(t, got)
}
