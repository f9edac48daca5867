package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/logger"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/scene"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/texture"
	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

// globalOptions holds root flags and the loaded configuration.
type globalOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	debug      bool
	cfg        Config
}

func (g *globalOptions) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Destination: &g.configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &g.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &g.logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &g.debug,
		},
	}
}

// before loads configuration and installs the logger into the command context.
func (g *globalOptions) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(g.configFile)
	if err != nil {
		return ctx, err
	}
	g.cfg = cfg
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		g.logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		g.logFormat = cfg.LogFormat
	}

	level, err := logger.ParseLevel(g.logLevel)
	if err != nil {
		return ctx, err
	}
	if g.debug {
		level = slog.LevelDebug
	}
	log, err := logger.ForFormat(g.logFormat, level, errWriter(cmd))
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}

// decodeOptions holds the flags shared by commands that decode files.
type decodeOptions struct {
	maxDepth    int64
	maxSize     string
	timeout     time.Duration
	textureDirs []string
}

func (d *decodeOptions) flags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "max-depth",
			Usage:       "maximum chunk nesting depth",
			Value:       bes.DefaultMaxDepth,
			Destination: &d.maxDepth,
		},
		&cli.StringFlag{
			Name:        "max-size",
			Usage:       "largest file to load, e.g. 256MiB (empty: no limit)",
			Destination: &d.maxSize,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "per-file decode timeout (0: none)",
			Destination: &d.timeout,
		},
	}
}

func (d *decodeOptions) textureFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:        "texture-dir",
		Aliases:     []string{"T"},
		Usage:       "directory searched for texture files (repeatable)",
		Destination: &d.textureDirs,
	}
}

// apply fills unset flags from cfg.
func (d *decodeOptions) apply(cmd *cli.Command, cfg Config) {
	if cfg.MaxDepth > 0 && !cmd.IsSet("max-depth") {
		d.maxDepth = int64(cfg.MaxDepth)
	}
	if cfg.MaxFileSize != "" && !cmd.IsSet("max-size") {
		d.maxSize = cfg.MaxFileSize
	}
	if cfg.Timeout > 0 && !cmd.IsSet("timeout") {
		d.timeout = cfg.Timeout
	}
	if len(cfg.TextureDirs) > 0 && !cmd.IsSet("texture-dir") {
		d.textureDirs = cfg.TextureDirs
	}
}

func (d *decodeOptions) options() []bes.Option {
	return []bes.Option{bes.WithMaxDepth(int(d.maxDepth))}
}

func (d *decodeOptions) sizeLimit() (int64, error) {
	return parseSize(d.maxSize)
}

// resolver indexes the texture directories, or returns nil when none are configured.
func (d *decodeOptions) resolver() (scene.TextureResolver, error) {
	if len(d.textureDirs) == 0 {
		return nil, nil
	}
	idx, err := texture.BuildIndex(d.textureDirs...)
	if err != nil {
		return nil, fmt.Errorf("index textures: %w", err)
	}
	return idx, nil
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

func formatPath(path []bes.Tag) string {
	parts := make([]string, len(path))
	for i, t := range path {
		parts[i] = t.String()
	}
	return strings.Join(parts, "->")
}
