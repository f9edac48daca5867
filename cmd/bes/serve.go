package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/api"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/logger"
)

func serveCmd(g *globalOptions) *cli.Command {
	var (
		d           decodeOptions
		addr        string
		rps         float64
		burst       int64
		maxBody     string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the decode API over HTTP",
		Flags: append(d.flags(),
			d.textureFlag(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.Float64Flag{
				Name:        "rate",
				Usage:       "decode requests per second (0: unlimited)",
				Destination: &rps,
			},
			&cli.Int64Flag{
				Name:        "burst",
				Usage:       "rate limiter burst",
				Destination: &burst,
			},
			&cli.StringFlag{
				Name:        "max-body",
				Usage:       "largest accepted upload",
				Value:       "64MiB",
				Destination: &maxBody,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			d.apply(cmd, g.cfg)
			if g.cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = g.cfg.ServerAddress
			}
			bodyLimit, err := parseSize(maxBody)
			if err != nil {
				return err
			}
			res, err := d.resolver()
			if err != nil {
				return err
			}

			server := api.NewServer(api.Config{
				MaxBodySize: bodyLimit,
				RateLimit:   rps,
				Burst:       int(burst),
				Timeout:     d.timeout,
				Options:     d.options(),
				Resolver:    res,
				Logger:      log,
			})
			e := echo.New()
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
