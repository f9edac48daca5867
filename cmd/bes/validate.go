package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/batch"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/besfile"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/catalog"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/logger"
)

type validateResult struct {
	Path       string  `json:"path"`
	OK         bool    `json:"ok"`
	Size       int64   `json:"size"`
	Version    string  `json:"version,omitempty"`
	Objects    int     `json:"objects"`
	Meshes     int     `json:"meshes"`
	Faces      int     `json:"faces"`
	DurationMS float64 `json:"duration_ms"`
	ErrorKind  string  `json:"error_kind,omitempty"`
	ErrorPath  string  `json:"error_path,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type validateReport struct {
	RunID   string           `json:"run_id"`
	Files   int              `json:"files"`
	Failed  int              `json:"failed"`
	Elapsed string           `json:"elapsed"`
	Results []validateResult `json:"results"`
}

func validateCmd(g *globalOptions) *cli.Command {
	var (
		d           decodeOptions
		workers     int64
		asJSON      bool
		catalogPath string
		progress    time.Duration
	)

	return &cli.Command{
		Name:      "validate",
		Usage:     "Decode files and directories in parallel and report failures",
		ArgsUsage: "<file-or-dir>...",
		Flags: append(d.flags(),
			&cli.Int64Flag{
				Name:        "workers",
				Aliases:     []string{"j"},
				Usage:       "concurrent decodes (0: GOMAXPROCS)",
				Destination: &workers,
			},
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON", Destination: &asJSON},
			&cli.StringFlag{
				Name:        "catalog",
				Usage:       "record the run in this SQLite catalog",
				Destination: &catalogPath,
			},
			&cli.DurationFlag{
				Name:        "progress",
				Usage:       "interval between progress log lines (0: off)",
				Value:       5 * time.Second,
				Destination: &progress,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("validate: at least one file or directory is required")
			}
			d.apply(cmd, g.cfg)
			if g.cfg.Workers > 0 && !cmd.IsSet("workers") {
				workers = int64(g.cfg.Workers)
			}
			if g.cfg.Catalog != "" && !cmd.IsSet("catalog") {
				catalogPath = g.cfg.Catalog
			}
			limit, err := d.sizeLimit()
			if err != nil {
				return err
			}

			paths, err := besfile.Collect(cmd.Args().Slice())
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("validate: no %s files found", besfile.Ext)
			}

			log := logger.FromContext(ctx)
			report, runErr := batch.Run(ctx, batch.Config{
				Workers:  int(workers),
				Timeout:  d.timeout,
				MaxSize:  limit,
				Options:  d.options(),
				Logger:   log,
				Progress: progress,
			}, paths)

			if catalogPath != "" {
				store, err := catalog.Open(ctx, catalogPath)
				if err != nil {
					return err
				}
				err = store.Record(context.WithoutCancel(ctx), report)
				_ = store.Close()
				if err != nil {
					return err
				}
				log.Info("recorded run", "catalog", catalogPath, "run", report.RunID)
			}

			w := outWriter(cmd)
			if asJSON {
				if err := writeReportJSON(w, report); err != nil {
					return err
				}
			} else {
				writeReportText(w, report)
			}
			if runErr != nil {
				return runErr
			}
			if n := report.Failed(); n > 0 {
				return fmt.Errorf("validate: %d of %d files failed", n, len(report.Results))
			}
			return nil
		},
	}
}

func toValidateReport(r *batch.Report) validateReport {
	out := validateReport{
		RunID:   r.RunID,
		Files:   len(r.Results),
		Failed:  r.Failed(),
		Elapsed: r.Elapsed.Round(time.Millisecond).String(),
		Results: make([]validateResult, len(r.Results)),
	}
	for i, res := range r.Results {
		v := validateResult{
			Path:       res.Path,
			OK:         res.OK(),
			Size:       res.Size,
			Version:    res.Version,
			Objects:    res.Stats.Objects,
			Meshes:     res.Stats.Meshes,
			Faces:      res.Stats.Faces,
			DurationMS: float64(res.Duration.Microseconds()) / 1000,
			ErrorKind:  res.ErrorKind(),
			ErrorPath:  res.ErrorPath(),
		}
		if res.Err != nil {
			v.Error = res.Err.Error()
		}
		out.Results[i] = v
	}
	return out
}

func writeReportJSON(w io.Writer, r *batch.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toValidateReport(r))
}

func writeReportText(w io.Writer, r *batch.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tFILE\tVERSION\tOBJECTS\tFACES\tDETAIL")
	for _, res := range r.Results {
		if res.OK() {
			fmt.Fprintf(tw, "ok\t%s\t%s\t%d\t%d\t\n", res.Path, res.Version, res.Stats.Objects, res.Stats.Faces)
			continue
		}
		fmt.Fprintf(tw, "FAIL\t%s\t\t\t\t%v\n", res.Path, res.Err)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d files, %d failed, %s (run %s)\n", len(r.Results), r.Failed(), r.Elapsed.Round(time.Millisecond), r.RunID)
}
