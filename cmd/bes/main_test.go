package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/catalog"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/export"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/testkit"
)

// run executes the CLI with an empty config file and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &logs
	argv := append([]string{"bes", "--config", writeEmptyConfig(t), "--log-format", "text"}, args...)
	err := app.Run(context.Background(), argv)
	t.Log(logs.String())
	return out.String(), err
}

func brokenFile() []byte {
	return testkit.File(testkit.Object("Root", 1, testkit.Identity()), testkit.UserInfo())
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version:")
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := testkit.WriteFile(t, dir, "sample.bes", testkit.Sample())

	out, err := run(t, "inspect", "--world", path)
	require.NoError(t, err)
	assert.Contains(t, out, "version 0100")
	assert.Contains(t, out, "3 objects, 1 meshes, 4 vertices, 2 faces")
	assert.Contains(t, out, "Wall")
	assert.Contains(t, out, "PteroMat Glass")
	assert.Contains(t, out, "WALL.TGA")
	assert.Contains(t, out, "bounds")
}

func TestInspectTrace(t *testing.T) {
	path := testkit.WriteFile(t, t.TempDir(), "sample.bes", testkit.Sample())
	_, err := run(t, "--debug", "inspect", "--trace", path)
	require.NoError(t, err)
}

func TestInspectFailure(t *testing.T) {
	path := testkit.WriteFile(t, t.TempDir(), "broken.bes", brokenFile())
	_, err := run(t, "inspect", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "child count mismatch")

	_, err = run(t, "inspect")
	assert.Error(t, err)
}

func TestInspectMaxSize(t *testing.T) {
	path := testkit.WriteFile(t, t.TempDir(), "sample.bes", testkit.Sample())
	_, err := run(t, "inspect", "--max-size", "1KiB", path)
	assert.ErrorContains(t, err, "size limit")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	testkit.WriteFile(t, dir, "a.bes", testkit.Sample())
	testkit.WriteFile(t, dir, "nested/b.bes", testkit.Sample())
	testkit.WriteFile(t, dir, "notes.txt", []byte("ignored"))

	out, err := run(t, "validate", "--json", dir)
	require.NoError(t, err)

	var rep validateReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 2, rep.Files)
	assert.Zero(t, rep.Failed)
	for _, r := range rep.Results {
		assert.True(t, r.OK, r.Path)
		assert.Equal(t, "0100", r.Version)
	}
}

func TestValidateFailuresAndCatalog(t *testing.T) {
	dir := t.TempDir()
	testkit.WriteFile(t, dir, "good.bes", testkit.Sample())
	testkit.WriteFile(t, dir, "bad.bes", brokenFile())
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := run(t, "validate", "-j", "2", "--catalog", db, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "bad.bes")

	out, err = run(t, "catalog", "list", "--catalog", db, "--failed", "--json")
	require.NoError(t, err)
	var entries []catalog.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(dir, "bad.bes"), entries[0].Path)
	assert.Equal(t, "child count mismatch", entries[0].ErrorKind)
	assert.Equal(t, "Object", entries[0].ErrorPath)

	out, err = run(t, "catalog", "list", "--catalog", db)
	require.NoError(t, err)
	assert.Contains(t, out, "good.bes")
	assert.Contains(t, out, "bad.bes")
}

func TestValidateNoFiles(t *testing.T) {
	_, err := run(t, "validate", t.TempDir())
	assert.ErrorContains(t, err, "no .bes files")
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	path := testkit.WriteFile(t, dir, "sample.bes", testkit.Sample())

	out, err := run(t, "export", "--geometry", path)
	require.NoError(t, err)
	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "sample.bes", doc.Source)
	assert.Equal(t, 3, doc.Stats.Objects)
	require.NotNil(t, doc.Root)
	assert.Len(t, doc.Root.Children, 2)

	outFile := filepath.Join(dir, "sample.yaml")
	_, err = run(t, "export", "-f", "yaml", "-o", outFile, path)
	require.NoError(t, err)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, "0100", m["version"])

	_, err = run(t, "export", "-f", "xml", path)
	assert.Error(t, err)
}

func TestTextures(t *testing.T) {
	dir := t.TempDir()
	path := testkit.WriteFile(t, dir, "sample.bes", testkit.Sample())
	texDir := filepath.Join(dir, "textures")
	testkit.WriteFile(t, texDir, "wall.tga", []byte("x"))
	testkit.WriteFile(t, texDir, "glass.tga", []byte("x"))

	out, err := run(t, "textures", "-T", texDir, path)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(texDir, "wall.tga"))
	assert.Contains(t, out, "lightmap.bmp")
	assert.Contains(t, out, "MISSING")

	_, err = run(t, "textures", "-T", texDir, "--strict", path)
	assert.ErrorContains(t, err, "1 texture references")

	_, err = run(t, "textures", "--strict", path)
	assert.ErrorContains(t, err, "--texture-dir")
}

func TestConfigFromEnv(t *testing.T) {
	path := testkit.WriteFile(t, t.TempDir(), "sample.bes", testkit.Sample())
	t.Setenv("BES_MAX_FILE_SIZE", "1KiB")
	_, err := run(t, "inspect", path)
	assert.ErrorContains(t, err, "size limit")

	_, err = run(t, "inspect", "--max-size", "1MiB", path)
	assert.NoError(t, err, "flag overrides env")
}

func TestBadLogLevel(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "version")
	assert.Error(t, err)
}
