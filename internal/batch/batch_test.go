package batch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/logger"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/testkit"
	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

func TestRunIsolatesFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sample := testkit.Sample()
	good := testkit.WriteFile(t, dir, "good.bes", sample)
	cut := testkit.WriteFile(t, dir, "cut.bes", sample[:bes.DataOffset+20])
	bad := testkit.WriteFile(t, dir, "bad.bes", append([]byte("XYZ\x00"), sample[4:]...))
	missing := filepath.Join(dir, "missing.bes")

	var buf bytes.Buffer
	report, err := Run(context.Background(), Config{Workers: 2, Logger: logger.JSON(&buf, slog.LevelDebug)},
		[]string{good, cut, bad, missing})
	require.NoError(t, err)

	_, err = uuid.Parse(report.RunID)
	require.NoError(t, err)
	require.Len(t, report.Results, 4)
	assert.Equal(t, 3, report.Failed())

	ok := report.Results[0]
	assert.True(t, ok.OK())
	assert.Equal(t, good, ok.Path)
	assert.Equal(t, "0100", ok.Version)
	assert.Equal(t, 3, ok.Stats.Objects)
	assert.Equal(t, int64(len(sample)), ok.Size)
	assert.Empty(t, ok.ErrorKind())
	assert.Empty(t, ok.ErrorPath())

	assert.ErrorIs(t, report.Results[1].Err, bes.ErrTruncatedInput)
	assert.Equal(t, "truncated input", report.Results[1].ErrorKind())
	assert.Equal(t, "", report.Results[1].ErrorPath(), "root-level header")

	assert.ErrorIs(t, report.Results[2].Err, bes.ErrInvalidHeader)
	assert.Equal(t, "", report.Results[2].ErrorPath())

	assert.Equal(t, "io", report.Results[3].ErrorKind())

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"batch finished"`)
	assert.Contains(t, logs, `"failed":3`)
	assert.Contains(t, logs, report.RunID)
}

func TestRunManyFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for i := range 25 {
		paths = append(paths, testkit.WriteFile(t, dir, fmt.Sprintf("f%02d.bes", i), testkit.Sample()))
	}
	report, err := Run(context.Background(), Config{Workers: 4, Logger: logger.Discard(), Progress: time.Millisecond}, paths)
	require.NoError(t, err)
	assert.Zero(t, report.Failed())
	for i, res := range report.Results {
		assert.Equal(t, paths[i], res.Path, "results keep input order")
	}
}

func TestRunSizeLimit(t *testing.T) {
	t.Parallel()

	path := testkit.WriteFile(t, t.TempDir(), "big.bes", testkit.Sample())
	report, err := Run(context.Background(), Config{MaxSize: 100, Logger: logger.Discard()}, []string{path})
	require.NoError(t, err)
	assert.Equal(t, "too large", report.Results[0].ErrorKind())
}

func TestRunDepthOption(t *testing.T) {
	t.Parallel()

	path := testkit.WriteFile(t, t.TempDir(), "s.bes", testkit.Sample())
	report, err := Run(context.Background(), Config{
		Logger:  logger.Discard(),
		Options: []bes.Option{bes.WithMaxDepth(2)},
	}, []string{path})
	require.NoError(t, err)
	assert.ErrorIs(t, report.Results[0].Err, bes.ErrTooDeep)
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	path := testkit.WriteFile(t, t.TempDir(), "s.bes", testkit.Sample())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, Config{Logger: logger.Discard()}, []string{path, path})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, report.Results, 2)
	for _, res := range report.Results {
		assert.Equal(t, "canceled", res.ErrorKind())
	}
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()

	path := testkit.WriteFile(t, t.TempDir(), "s.bes", testkit.Sample())
	report, err := Run(context.Background(), Config{Logger: logger.Discard(), Timeout: time.Nanosecond}, []string{path})
	require.NoError(t, err)
	assert.Equal(t, "timeout", report.Results[0].ErrorKind())
	assert.ErrorIs(t, report.Results[0].Err, context.DeadlineExceeded)
}
