package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/besfile"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/logger"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/scene"
	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

func inspectCmd(g *globalOptions) *cli.Command {
	var (
		d         decodeOptions
		trace     bool
		showMats  bool
		showWorld bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the object tree of one or more .bes files",
		ArgsUsage: "<file.bes>...",
		Flags: append(d.flags(),
			d.textureFlag(),
			&cli.BoolFlag{Name: "trace", Usage: "log every chunk header at debug level", Destination: &trace},
			&cli.BoolFlag{Name: "materials", Usage: "list materials and texture slots", Value: true, Destination: &showMats},
			&cli.BoolFlag{Name: "world", Usage: "print world-space bounds", Destination: &showWorld},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("inspect: at least one file is required")
			}
			d.apply(cmd, g.cfg)
			log := logger.FromContext(ctx)
			res, err := d.resolver()
			if err != nil {
				return err
			}

			w := outWriter(cmd)
			for _, path := range cmd.Args().Slice() {
				opts := d.options()
				if trace {
					opts = append(opts, bes.WithChunkHook(func(ci bes.ChunkInfo) {
						log.Debug("chunk", "path", formatPath(ci.Path), "offset", ci.Offset, "length", ci.Length)
					}))
				}
				scn, size, err := loadScene(ctx, path, &d, opts)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				printScene(w, path, size, scn, res, showMats, showWorld)
			}
			return nil
		},
	}
}

// loadScene opens and decodes one file under the decode options' size limit and timeout.
func loadScene(ctx context.Context, path string, d *decodeOptions, opts []bes.Option) (*bes.Scene, int, error) {
	limit, err := d.sizeLimit()
	if err != nil {
		return nil, 0, err
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	f, err := besfile.Open(path, limit)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()
	scn, err := f.Decode(append(opts, bes.WithContext(ctx))...)
	return scn, len(f.Data), err
}

func printScene(w io.Writer, path string, size int, s *bes.Scene, r scene.TextureResolver, showMats, showWorld bool) {
	st := s.Root.Stats()
	fmt.Fprintf(w, "%s  version %s  %s\n", path, s.Header.Version, humanize.Bytes(uint64(size)))
	fmt.Fprintf(w, "  %d objects, %d meshes, %d vertices, %d faces, %d materials, %d textures\n",
		st.Objects, st.Meshes, st.Vertices, st.Faces, st.Materials, st.Textures)

	g := scene.Build(s)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		indent := strings.Repeat("  ", n.Depth+1)
		t := n.Object.Transform
		fmt.Fprintf(w, "%s%s  t=%v r=%v s=%v\n", indent, displayName(n.Name), vec(t.Translation), vec(t.Rotation), vec(t.Scale))
		for mi := range n.Object.Meshes {
			m := &n.Object.Meshes[mi]
			mat := "none"
			if m.HasMaterial() {
				mat = fmt.Sprintf("#%d", m.Material)
			}
			fmt.Fprintf(w, "%s  mesh %d: %d vertices, %d faces, material %s\n", indent, mi, len(m.Vertices), len(m.Faces), mat)
		}
		if !showMats {
			continue
		}
		for mi := range n.Object.Materials {
			mat := &n.Object.Materials[mi]
			label := mat.Kind.String()
			if mat.Name != "" {
				label += " " + mat.Name
			}
			fmt.Fprintf(w, "%s  material #%d: %s\n", indent, mi, label)
			for _, tex := range mat.Textures {
				line := fmt.Sprintf("%s    %s: %s (uv %d)", indent, bes.SlotName(mat.Kind, tex.Slot), tex.Name, tex.Coord)
				if r != nil {
					if file, ok := r.Resolve(tex.Name); ok {
						line += " -> " + file
					} else {
						line += " [missing]"
					}
				}
				fmt.Fprintln(w, line)
			}
		}
	}
	if showWorld {
		if lo, hi, ok := g.Bounds(); ok {
			fmt.Fprintf(w, "  bounds %v .. %v\n", vec(lo), vec(hi))
		}
	}
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

func vec(v [3]float32) string {
	return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2])
}
