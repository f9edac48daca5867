// Package batch validates many BES files concurrently.
package batch

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/besfile"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/logger"
	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

type Config struct {
	// Workers bounds concurrent decodes; <= 0 means GOMAXPROCS.
	Workers int
	// Timeout bounds each file's decode; 0 disables it.
	Timeout time.Duration
	// MaxSize is the per-file byte budget; 0 disables it.
	MaxSize int64
	Options []bes.Option
	Logger  logger.Logger
	// Progress is the interval between progress log lines; 0 disables them.
	Progress time.Duration
}

// Result is the outcome for one file.
type Result struct {
	Path     string
	Size     int64
	Version  string
	Stats    bes.Stats
	Duration time.Duration
	Err      error
}

func (r Result) OK() bool { return r.Err == nil }

// ErrorPath is the chunk path of a decode failure, or "".
func (r Result) ErrorPath() string {
	var de *bes.Error
	if errors.As(r.Err, &de) {
		return de.PathString()
	}
	return ""
}

// ErrorKind classifies Err: the decode error kind, "timeout", "canceled",
// "too large" or "io". Empty for successes.
func (r Result) ErrorKind() string {
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(r.Err, context.Canceled):
		return "canceled"
	case errors.Is(r.Err, besfile.ErrTooLarge):
		return "too large"
	}
	var de *bes.Error
	if errors.As(r.Err, &de) {
		return de.Kind.Error()
	}
	return "io"
}

type Report struct {
	RunID   string
	Started time.Time
	Elapsed time.Duration
	// Results is in input order.
	Results []Result
}

func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// Run decodes every path. A failing file never stops the others; its error
// is recorded in its Result. The returned error is non-nil only when ctx
// ended before all files were processed.
func Run(ctx context.Context, cfg Config, paths []string) (*Report, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Results: make([]Result, len(paths)),
	}
	log = log.With("run", report.RunID)
	log.Info("batch started", "files", len(paths), "workers", workers)

	var processed atomic.Int64
	stop := startProgress(log, cfg.Progress, &processed, len(paths), report.Started)
	defer stop()

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(paths); j++ {
				report.Results[j] = Result{Path: paths[j], Err: err}
			}
			break
		}
		g.Go(func() error {
			res := decodeOne(ctx, cfg, path)
			report.Results[i] = res
			processed.Add(1)
			if res.OK() {
				log.Debug("file ok", "path", path, "objects", res.Stats.Objects, "took", res.Duration)
			} else {
				log.Warn("file failed", "path", path, "kind", res.ErrorKind(), "err", res.Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Elapsed = time.Since(report.Started)
	log.Info("batch finished", "files", len(paths), "failed", report.Failed(), "took", report.Elapsed)
	return report, ctx.Err()
}

func decodeOne(ctx context.Context, cfg Config, path string) Result {
	start := time.Now()
	res := Result{Path: path}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	f, err := besfile.Open(path, cfg.MaxSize)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	defer func() { _ = f.Close() }()
	res.Size = int64(len(f.Data))

	opts := append([]bes.Option{bes.WithContext(ctx)}, cfg.Options...)
	s, err := f.Decode(opts...)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	res.Version = s.Header.Version
	res.Stats = s.Root.Stats()
	return res
}

func startProgress(log logger.Logger, every time.Duration, processed *atomic.Int64, total int, start time.Time) func() {
	if every <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				rate := float64(p) / time.Since(start).Seconds()
				log.Info("progress", "done", p, "total", total, "files_per_sec", rate)
			}
		}
	}()
	return func() { close(done) }
}
