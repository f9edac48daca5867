package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/besfile"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/logger"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/scene"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/texture"
)

func texturesCmd(g *globalOptions) *cli.Command {
	var (
		d           decodeOptions
		previewDir  string
		previewSize int64
		strict      bool
	)

	return &cli.Command{
		Name:      "textures",
		Usage:     "List texture references and resolve them against texture directories",
		ArgsUsage: "<file-or-dir>...",
		Flags: append(d.flags(),
			d.textureFlag(),
			&cli.StringFlag{
				Name:        "preview-dir",
				Usage:       "write WebP thumbnails of resolved textures here",
				Destination: &previewDir,
			},
			&cli.Int64Flag{
				Name:        "preview-size",
				Usage:       "longest thumbnail edge in pixels",
				Value:       texture.DefaultPreviewSize,
				Destination: &previewSize,
			},
			&cli.BoolFlag{
				Name:        "strict",
				Usage:       "fail when any texture is missing",
				Destination: &strict,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("textures: at least one file or directory is required")
			}
			d.apply(cmd, g.cfg)
			log := logger.FromContext(ctx)
			res, err := d.resolver()
			if err != nil {
				return err
			}
			if res == nil && (strict || previewDir != "") {
				return fmt.Errorf("textures: --texture-dir is required with --strict or --preview-dir")
			}
			paths, err := besfile.Collect(cmd.Args().Slice())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(outWriter(cmd), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tOBJECT\tMATERIAL\tSLOT\tTEXTURE\tRESOLVED")
			missing := 0
			previewed := map[string]bool{}
			for _, path := range paths {
				scn, _, err := loadScene(ctx, path, &d, d.options())
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				for _, ref := range scene.Build(scn).Textures(res) {
					resolved := "-"
					switch {
					case ref.Found:
						resolved = ref.File
					case res != nil:
						resolved = "MISSING"
						missing++
					}
					fmt.Fprintf(tw, "%s\t%s\t#%d %s\t%s\t%s\t%s\n",
						path, ref.NodePath, ref.Material, ref.Kind, ref.SlotName, ref.Name, resolved)

					if previewDir == "" || !ref.Found || previewed[ref.File] {
						continue
					}
					previewed[ref.File] = true
					out, err := texture.WritePreview(ref.File, previewDir, int(previewSize))
					if errors.Is(err, texture.ErrUnsupportedFormat) {
						log.Warn("no preview for texture", "texture", ref.File, "err", err)
						continue
					}
					if err != nil {
						return err
					}
					log.Debug("wrote preview", "texture", ref.File, "preview", out)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if missing > 0 {
				log.Warn("unresolved textures", "count", missing)
				if strict {
					return fmt.Errorf("textures: %d texture references did not resolve", missing)
				}
			}
			return nil
		},
	}
}
