package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/export"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/logger"
)

func exportCmd(g *globalOptions) *cli.Command {
	var (
		d        decodeOptions
		format   string
		out      string
		geometry bool
	)

	return &cli.Command{
		Name:      "export",
		Usage:     "Convert a .bes file to JSON or YAML",
		ArgsUsage: "<file.bes>",
		Flags: append(d.flags(),
			d.textureFlag(),
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "output format (json, yaml)",
				Value:       export.FormatJSON,
				Destination: &format,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output file (default: stdout)",
				Destination: &out,
			},
			&cli.BoolFlag{
				Name:        "geometry",
				Usage:       "include vertex and face arrays",
				Destination: &geometry,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("export: exactly one file is required")
			}
			format = strings.ToLower(format)
			if format != export.FormatJSON && format != export.FormatYAML && format != "yml" {
				return fmt.Errorf("export: unknown format %q (want json or yaml)", format)
			}
			d.apply(cmd, g.cfg)
			res, err := d.resolver()
			if err != nil {
				return err
			}

			path := cmd.Args().First()
			scn, _, err := loadScene(ctx, path, &d, d.options())
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			doc := export.Build(scn, export.Options{Geometry: geometry, Resolver: res})
			doc.Source = filepath.Base(path)
			for _, name := range doc.Missing {
				logger.FromContext(ctx).Warn("texture not found", "file", path, "texture", name)
			}

			if out == "" || out == "-" {
				return export.Write(outWriter(cmd), doc, format)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if err := export.Write(f, doc, format); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
}
