package besfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/testkit"
	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

func TestOpenDecode(t *testing.T) {
	t.Parallel()

	path := testkit.WriteFile(t, t.TempDir(), "scene.bes", testkit.Sample())
	f, err := Open(path, 0)
	require.NoError(t, err)

	scene, err := f.Decode()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close(), "second close is a no-op")

	// The tree must outlive the mapping.
	assert.Equal(t, "Root", scene.Root.Name)
	require.Len(t, scene.Root.Children, 2)
	assert.Equal(t, "Wall", scene.Root.Children[0].Name)
	assert.Equal(t, "0100", scene.Header.Version)
}

func TestOpenTooLarge(t *testing.T) {
	t.Parallel()

	data := testkit.Sample()
	path := testkit.WriteFile(t, t.TempDir(), "scene.bes", data)
	_, err := Open(path, int64(len(data)-1))
	require.ErrorIs(t, err, ErrTooLarge)

	f, err := Open(path, int64(len(data)))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestOpenEmptyAndMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := testkit.WriteFile(t, dir, "empty.bes", nil)
	f, err := Open(empty, 0)
	require.NoError(t, err)
	_, err = f.Decode()
	assert.ErrorIs(t, err, bes.ErrTruncatedInput)
	require.NoError(t, f.Close())

	_, err = Open(filepath.Join(dir, "missing.bes"), 0)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Open(dir, 0)
	assert.Error(t, err, "directories are rejected")
}

func TestOpenReaderAt(t *testing.T) {
	t.Parallel()

	data := testkit.Sample()
	f, err := OpenReaderAt(bytes.NewReader(data), int64(len(data)), 0)
	require.NoError(t, err)
	scene, err := f.Decode()
	require.NoError(t, err)
	assert.Equal(t, 2, len(scene.Root.Children))

	_, err = OpenReaderAt(bytes.NewReader(data), int64(len(data)+10), 0)
	assert.Error(t, err, "short reader")

	_, err = OpenReaderAt(bytes.NewReader(data), int64(len(data)), 100)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestLoadReportsDecodeErrors(t *testing.T) {
	t.Parallel()

	data := testkit.Sample()
	path := testkit.WriteFile(t, t.TempDir(), "cut.bes", data[:len(data)-3])
	_, err := Load(path, 0)
	var de *bes.Error
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, bes.ErrTrailingBytes)
}

func TestCollect(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := testkit.WriteFile(t, dir, "a.bes", nil)
	b := testkit.WriteFile(t, dir, "sub/B.BES", nil)
	testkit.WriteFile(t, dir, "sub/readme.txt", nil)
	other := testkit.WriteFile(t, t.TempDir(), "explicit.dat", nil)

	got, err := Collect([]string{dir, other})
	require.NoError(t, err)
	sort.Strings(got)
	want := []string{a, b, other}
	sort.Strings(want)
	assert.Equal(t, want, got)

	_, err = Collect([]string{filepath.Join(dir, "nope")})
	assert.Error(t, err)
}

func TestIsBES(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBES("house.bes"))
	assert.True(t, IsBES("HOUSE.BES"))
	assert.False(t, IsBES("house.bes.bak"))
	assert.False(t, IsBES("bes"))
}
