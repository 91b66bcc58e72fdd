package accesslist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chihaya/swarmd/bittorrent"
)

func writeHashFile(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hashes.txt")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestList_OffModeAllowsEverything(t *testing.T) {
	l := New()
	var ih bittorrent.InfoHash
	require.True(t, l.Allows(ih))
}

func TestList_AllowMode(t *testing.T) {
	var allowed, other bittorrent.InfoHash
	allowed[0] = 1
	other[0] = 2

	path := writeHashFile(t, allowed.String(), "", "# a comment")

	l := New()
	require.NoError(t, l.Reload(ModeAllow, path))

	require.True(t, l.Allows(allowed))
	require.False(t, l.Allows(other))
	require.Equal(t, 1, l.Len())
}

func TestList_DenyMode(t *testing.T) {
	var denied, other bittorrent.InfoHash
	denied[0] = 1
	other[0] = 2

	path := writeHashFile(t, denied.String())

	l := New()
	require.NoError(t, l.Reload(ModeDeny, path))

	require.False(t, l.Allows(denied))
	require.True(t, l.Allows(other))
}

func TestList_ReloadRejectsMalformedHash(t *testing.T) {
	path := writeHashFile(t, "not-hex")

	l := New()
	err := l.Reload(ModeAllow, path)
	require.Error(t, err)
}

func TestList_ReloadWithEmptyPathClearsSet(t *testing.T) {
	l := New()
	require.NoError(t, l.Reload(ModeAllow, ""))
	require.Equal(t, 0, l.Len())

	var ih bittorrent.InfoHash
	require.False(t, l.Allows(ih))
}
