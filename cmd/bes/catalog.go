package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/catalog"
)

func catalogCmd(g *globalOptions) *cli.Command {
	var path string
	pathFlag := &cli.StringFlag{
		Name:        "catalog",
		Usage:       "SQLite catalog written by validate --catalog",
		Destination: &path,
	}

	return &cli.Command{
		Name:  "catalog",
		Usage: "Query recorded validation runs",
		Commands: []*cli.Command{
			catalogListCmd(g, &path, pathFlag),
		},
	}
}

func catalogListCmd(g *globalOptions, path *string, pathFlag cli.Flag) *cli.Command {
	var (
		failed bool
		runID  string
		limit  int64
		asJSON bool
	)

	return &cli.Command{
		Name:  "list",
		Usage: "List recorded file results, newest run first",
		Flags: []cli.Flag{
			pathFlag,
			&cli.BoolFlag{Name: "failed", Usage: "only failed files", Destination: &failed},
			&cli.StringFlag{Name: "run", Usage: "only this run id", Destination: &runID},
			&cli.Int64Flag{Name: "limit", Usage: "maximum rows (0: all)", Value: 50, Destination: &limit},
			&cli.BoolFlag{Name: "json", Usage: "print entries as JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if *path == "" {
				*path = g.cfg.Catalog
			}
			store, err := catalog.Open(ctx, *path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.List(ctx, catalog.Filter{RunID: runID, FailedOnly: failed, Limit: int(limit)})
			if err != nil {
				return err
			}

			w := outWriter(cmd)
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tFILE\tDETAIL")
			for _, e := range entries {
				status, detail := "ok", fmt.Sprintf("%d objects, %d faces", e.Objects, e.Faces)
				if !e.OK() {
					status, detail = "FAIL", e.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(e.RunID), e.Started.Local().Format(time.DateTime), status, e.Path, detail)
			}
			return tw.Flush()
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
